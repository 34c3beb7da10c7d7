package groq

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/sakif/study-helper/internal/completion"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig("test-api-key")
	cfg.BaseURL = srv.URL

	client, err := New(cfg, testLogger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing API key", Config{BaseURL: "https://api.groq.com/openai/v1", Model: "m"}},
		{"missing base URL", Config{APIKey: "k", Model: "m"}},
		{"missing model", Config{APIKey: "k", BaseURL: "https://api.groq.com/openai/v1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, testLogger); err == nil {
				t.Error("New() should reject incomplete config")
			}
		})
	}
}

func TestComplete(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq chatRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "Photosynthesis converts light into energy."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 9, "total_tokens": 29}
		}`))
	})

	result, err := client.Complete(context.Background(), completion.Request{
		SystemPrompt: "You are a biology tutor.",
		UserText:     "What is photosynthesis?",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if result.Text != "Photosynthesis converts light into energy." {
		t.Errorf("Text = %q", result.Text)
	}
	if result.TotalTokens != 29 || result.PromptTokens != 20 || result.CompletionTokens != 9 {
		t.Errorf("token counts = %+v", result)
	}

	if gotPath != "/chat/completions" {
		t.Errorf("path = %q, want /chat/completions", gotPath)
	}
	if gotAuth != "Bearer test-api-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != DefaultModel {
		t.Errorf("model = %q, want %q", gotReq.Model, DefaultModel)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("messages = %+v, want system then user", gotReq.Messages)
	}
}

func TestComplete_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "Invalid API Key", "type": "invalid_request_error", "code": "invalid_api_key"}}`))
	})

	_, err := client.Complete(context.Background(), completion.Request{
		SystemPrompt: "s", UserText: "u",
	})
	if err == nil {
		t.Fatal("Complete() should fail on an API error")
	}
	if !strings.Contains(err.Error(), "Invalid API Key") {
		t.Errorf("error = %v, want the provider message surfaced", err)
	}
}

func TestComplete_UnexpectedStatusWithoutEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{}`))
	})

	_, err := client.Complete(context.Background(), completion.Request{
		SystemPrompt: "s", UserText: "u",
	})
	if err == nil || !strings.Contains(err.Error(), "unexpected status 502") {
		t.Errorf("error = %v, want unexpected status", err)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [], "usage": {"total_tokens": 5}}`))
	})

	_, err := client.Complete(context.Background(), completion.Request{
		SystemPrompt: "s", UserText: "u",
	})
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("error = %v, want no-choices failure", err)
	}
}

func TestComplete_MalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway error</html>`))
	})

	_, err := client.Complete(context.Background(), completion.Request{
		SystemPrompt: "s", UserText: "u",
	})
	if err == nil {
		t.Error("Complete() should fail on non-JSON responses")
	}
}

func TestComplete_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, completion.Request{SystemPrompt: "s", UserText: "u"})
	if err == nil {
		t.Error("Complete() should fail when the context is cancelled")
	}
}
