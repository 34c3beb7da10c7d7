package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/study-helper/internal/service"
)

// AuthHandler exposes registration, login, and account management.
//
// Register and Login are public; Me, UpdatePassword, and DeleteAccount sit
// behind the auth middleware, which resolves the caller into the request
// context.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authSvc,
		logger: logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

// HandleRegister creates a new account.
//
// HTTP: POST /api/register {email, password} → 201 {token, user}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Token: result.Token,
		User:  newUserPayload(result.User),
	})
}

// HandleLogin authenticates an existing account.
//
// HTTP: POST /api/login {email, password} → 200 {token, user}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: result.Token,
		User:  newUserPayload(result.User),
	})
}

// HandleMe returns the calling account's profile.
//
// HTTP: GET /api/me → 200 {user}
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": newUserPayload(user),
	})
}

// HandleUpdatePassword changes the caller's password after re-verifying
// the current one. Outstanding tokens stay valid.
//
// HTTP: PUT /api/password {currentPassword, newPassword} → 200
func (h *AuthHandler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.auth.UpdatePassword(r.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "password updated successfully",
	})
}

// HandleDeleteAccount deletes the caller's account after password
// confirmation. The account's history entries are removed with it.
//
// HTTP: DELETE /api/account {password} → 200
func (h *AuthHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.auth.DeleteAccount(r.Context(), user, req.Password); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "account deleted successfully",
	})
}
