package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/study-helper/internal/apperror"
	"github.com/sakif/study-helper/internal/model"
	"github.com/sakif/study-helper/internal/repository"
)

// contextKey is an unexported type for context keys in this package.
// A package-private key type means only this package can read or write the
// authenticated user in a request context — no collisions with other
// packages' context values.
type contextKey string

const userKey contextKey = "user"

const bearerPrefix = "Bearer "

// RequireAuth enforces authentication on protected routes.
//
// Per-request pipeline:
//  1. Extract the bearer token from the Authorization header; reject if
//     the header is absent, has the wrong scheme, or an empty token part.
//  2. Verify the token signature and expiry. Expired and malformed tokens
//     get distinct messages so clients know whether to re-login.
//  3. Resolve the subject to an account. A valid token whose account was
//     deleted is rejected here.
//  4. Attach the resolved user to the request context — downstream
//     handlers learn "who is calling" only through UserFromContext.
//
// Identities are re-verified on every request; nothing is cached across
// calls.
func RequireAuth(tokens *TokenService, users repository.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "authorization required")
				return
			}

			userID, err := tokens.Verify(tokenStr)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					writeUnauthorized(w, "token expired, please log in again")
					return
				}
				writeUnauthorized(w, "invalid token")
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					// The token outlived its account.
					writeUnauthorized(w, "account no longer exists")
					return
				}
				logger.Error("auth: resolving user failed",
					slog.String("userID", userID),
					slog.String("error", err.Error()),
				)
				writeInternal(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// ContextWithUser returns a context carrying the resolved user. Outside of
// RequireAuth it is mainly useful for handler tests.
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user from the request context.
//
// Returns (nil, false) outside of RequireAuth-protected routes. Handlers
// behind the middleware can rely on ok being true.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// bearerToken extracts the token part of an "Authorization: Bearer x"
// header. The scheme comparison is case-insensitive per RFC 7235.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeAuthError(w, http.StatusUnauthorized, "unauthenticated", message)
}

func writeInternal(w http.ResponseWriter) {
	writeAuthError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
}

// writeAuthError mirrors handler.ErrorResponse so middleware rejections
// have the same JSON shape as handler errors. The auth package can't import
// handler (handler imports auth for UserFromContext).
func writeAuthError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errType,
		"message": message,
	})
}
