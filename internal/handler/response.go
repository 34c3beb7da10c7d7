// Package handler is the HTTP layer: request parsing, response writing,
// and the mapping from domain errors to status codes. Business rules live
// in the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/study-helper/internal/apperror"
	"github.com/sakif/study-helper/internal/auth"
	"github.com/sakif/study-helper/internal/model"
)

// ErrorResponse is the standard error format returned by all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable error type (e.g. "not_found")
	Message string `json:"message"` // human-readable description
}

// writeJSON sends a JSON response with the given status code. Headers and
// status must go out before the body — changes after the first Write are
// silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends it.
//
// The service layer knows nothing about HTTP; this single switch is where
// apperror categories become status codes. Duplicates map to 400 (not 409)
// per the API contract. Unknown errors become a generic 500 — internal
// details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrDuplicate):
			status = http.StatusBadRequest
			errorType = "duplicate_resource"
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
			errorType = "unauthenticated"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrQuotaExceeded):
			status = http.StatusTooManyRequests
			errorType = "quota_exceeded"
		case errors.Is(err, apperror.ErrUpstream):
			status = http.StatusBadGateway
			errorType = "upstream_error"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// caller returns the authenticated user from the request context, writing
// a 401 if it's missing. Routes behind the auth middleware always have
// one; the check guards against wiring mistakes.
func caller(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthenticated",
			Message: "authorization required",
		})
		return nil, false
	}
	return user, true
}

// decodeBody decodes a JSON request body into dst, writing a 400 on
// malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return false
	}
	return true
}

// userPayload is the account shape returned by the API. Built explicitly
// instead of encoding model.User so the stored hash can never leak.
type userPayload struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	APIUsage  usagePayload `json:"apiUsage"`
	CreatedAt time.Time    `json:"createdAt"`
}

type usagePayload struct {
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
	Remaining   int       `json:"remaining"`
	WindowStart time.Time `json:"windowStart"`
}

func newUserPayload(user *model.User) userPayload {
	return userPayload{
		ID:    user.ID,
		Email: user.Email,
		APIUsage: usagePayload{
			Used:        user.Usage.RequestCount,
			Limit:       user.Usage.DailyLimit,
			Remaining:   user.Usage.Remaining(),
			WindowStart: user.Usage.WindowStart,
		},
		CreatedAt: user.CreatedAt,
	}
}
