package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/study-helper/internal/apperror"
	"github.com/sakif/study-helper/internal/service"
)

// AssistHandler exposes the quota-gated completion proxy and the usage
// endpoints. All routes require authentication.
type AssistHandler struct {
	assist *service.AssistService
	logger *slog.Logger
}

// NewAssistHandler creates an AssistHandler.
func NewAssistHandler(assist *service.AssistService, logger *slog.Logger) *AssistHandler {
	return &AssistHandler{
		assist: assist,
		logger: logger,
	}
}

// HandleRequest proxies one completion request.
//
// HTTP: POST /api/ai/request {systemPrompt, userText}
//   - 200 {result, usage} on success (quota consumed)
//   - 400 on missing fields or input over the length cap
//   - 429 {error, message, usage} when the daily limit is exhausted; the
//     usage payload carries the reset hint
//   - 502 when the upstream call fails (quota NOT consumed)
func (h *AssistHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	var req struct {
		SystemPrompt string `json:"systemPrompt"`
		UserText     string `json:"userText"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.assist.Complete(r.Context(), user, req.SystemPrompt, req.UserText)
	if err != nil {
		if errors.Is(err, apperror.ErrQuotaExceeded) {
			// 429 gets the usage snapshot so the client can show
			// used/limit and when the window resets.
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":   "quota_exceeded",
				"message": err.Error(),
				"usage":   h.assist.Usage(user),
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"result": result.Result,
		"usage":  result.Usage,
	})
}

// HandleUsage returns the caller's current usage snapshot.
//
// HTTP: GET /api/ai/usage → 200 {usage}
func (h *AssistHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"usage": h.assist.Usage(user),
	})
}

// HandleReset forces the caller's usage window to restart now.
//
// HTTP: POST /api/ai/reset → 200 {usage}
func (h *AssistHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	usage, err := h.assist.ResetUsage(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "usage reset successfully",
		"usage":   usage,
	})
}
