package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/study-helper/internal/auth"
	"github.com/sakif/study-helper/internal/completion"
	"github.com/sakif/study-helper/internal/handler"
	"github.com/sakif/study-helper/internal/model"
	"github.com/sakif/study-helper/internal/quota"
	"github.com/sakif/study-helper/internal/repository/sqlite"
	"github.com/sakif/study-helper/internal/service"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeClient stands in for the completion provider; set result or err
// before the call.
type fakeClient struct {
	result *completion.Result
	err    error
	calls  int
}

func (f *fakeClient) Complete(_ context.Context, _ completion.Request) (*completion.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// env wires real services onto a throwaway database, with the upstream
// provider faked out.
type env struct {
	db      *sqlite.DB
	tokens  *auth.TokenService
	client  *fakeClient
	auth    *handler.AuthHandler
	assist  *handler.AssistHandler
	history *handler.HistoryHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars")
	if err != nil {
		t.Fatalf("creating token service: %v", err)
	}
	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)
	client := &fakeClient{result: &completion.Result{Text: "the answer", TotalTokens: 12}}
	tracker := quota.New(db.Users, testLogger)

	return &env{
		db:      db,
		tokens:  tokens,
		client:  client,
		auth:    handler.NewAuthHandler(service.NewAuthService(db.Users, tokens, passwords, testLogger), testLogger),
		assist:  handler.NewAssistHandler(service.NewAssistService(client, tracker, testLogger), testLogger),
		history: handler.NewHistoryHandler(service.NewHistoryService(db.History, testLogger), testLogger),
	}
}

// registerUser creates an account through the real service path and
// returns the stored user.
func (e *env) registerUser(t *testing.T, email string) *model.User {
	t.Helper()

	rec := e.do(t, e.auth.HandleRegister, http.MethodPost, "/api/register", map[string]string{
		"email":    email,
		"password": "secret1",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("registering %s: status %d, body %s", email, rec.Code, rec.Body.String())
	}

	var resp struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decodeResponse(t, rec, &resp)

	user, err := e.db.Users.GetByID(context.Background(), resp.User.ID)
	if err != nil {
		t.Fatalf("loading registered user: %v", err)
	}
	return user
}

// do invokes a handler directly with an optional JSON body and an
// optional authenticated user injected into the context.
func (e *env) do(t *testing.T, h http.HandlerFunc, method, target string, body any, user *model.User) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(auth.ContextWithUser(req.Context(), user))
	}

	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %s: %v", rec.Body.String(), err)
	}
}
