package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/study-helper/internal/service"
)

// HistoryHandler exposes the saved-interaction CRUD endpoints. All routes
// require authentication and operate strictly on the caller's own entries.
type HistoryHandler struct {
	history *service.HistoryService
	logger  *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(history *service.HistoryService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		logger:  logger,
	}
}

// HandleSave stores a new history entry.
//
// HTTP: POST /api/history {type, inputText, result, url?} → 201 {history}
func (h *HistoryHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	var req struct {
		Type      string `json:"type"`
		InputText string `json:"inputText"`
		Result    string `json:"result"`
		URL       string `json:"url"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	entry, err := h.history.Save(r.Context(), user, req.Type, req.InputText, req.Result, req.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "history saved successfully",
		"history": entry,
	})
}

// HandleList returns the caller's entries, newest first.
//
// HTTP: GET /api/history?type=&search=&limit=&skip=
// → 200 {count, history, pagination}
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := service.ListParams{
		Type:   q.Get("type"),
		Search: q.Get("search"),
		Limit:  intQuery(q.Get("limit"), 0),
		Skip:   intQuery(q.Get("skip"), 0),
	}

	entries, pagination, err := h.history.List(r.Context(), user, params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(entries),
		"history":    entries,
		"pagination": pagination,
	})
}

// HandleGet returns one entry by ID, scoped to the caller.
//
// HTTP: GET /api/history/{id} → 200 {history} | 404
func (h *HistoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	entry, err := h.history.GetByID(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"history": entry,
	})
}

// HandleDelete removes one entry by ID, scoped to the caller.
//
// HTTP: DELETE /api/history/{id} → 200 | 404
func (h *HistoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.history.Delete(r.Context(), user, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "history entry deleted successfully",
	})
}

// HandleClear removes all of the caller's entries.
//
// HTTP: DELETE /api/history/clear → 200 {deletedCount}
func (h *HistoryHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	deleted, err := h.history.Clear(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "all history cleared",
		"deletedCount": deleted,
	})
}

// HandleStats returns per-type counts and recent activity.
//
// HTTP: GET /api/history/stats → 200 {stats}
func (h *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	stats, err := h.history.Stats(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats": stats,
	})
}

// HandleCleanup removes the caller's entries older than ?days (default 90).
//
// HTTP: DELETE /api/history/cleanup?days=30 → 200 {deletedCount}
func (h *HistoryHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	days := intQuery(r.URL.Query().Get("days"), 0)

	deleted, err := h.history.Cleanup(r.Context(), user, days)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "old history deleted",
		"deletedCount": deleted,
	})
}

// intQuery parses an integer query parameter, falling back to def on
// missing or malformed values.
func intQuery(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
