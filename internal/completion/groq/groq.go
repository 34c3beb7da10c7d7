// Package groq implements completion.Client against the Groq API.
//
// Groq exposes the OpenAI-compatible chat-completions surface, so the wire
// format is the familiar {model, messages[], temperature, max_tokens}
// request and {choices[], usage} response. The client is a plain net/http
// wrapper — one POST per completion, no streaming, no retries (a failed
// call is surfaced to the caller as-is).
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/study-helper/internal/completion"
)

// compile-time check that *Client implements completion.Client
var _ completion.Client = (*Client)(nil)

// Client calls the Groq chat-completions endpoint.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// message is one entry of the chat transcript.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request payload for /chat/completions.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// chatResponse is the (non-streaming) response payload.
type chatResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

// apiError is the provider's error envelope.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// New creates a Groq client from the given config.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("groq: API key is required")
	}
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, errors.New("groq: base URL and model are required")
	}

	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Complete sends one system+user message pair and returns the first
// choice's content.
func (c *Client) Complete(ctx context.Context, req completion.Request) (*completion.Result, error) {
	payload := chatRequest{
		Model: c.config.Model,
		Messages: []message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserText},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("groq: encoding request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("groq: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("groq: calling completion API: %w", err)
	}
	defer resp.Body.Close()

	// Bound the response read — a well-formed completion is far below this.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("groq: reading response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("groq: decoding response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return nil, fmt.Errorf("groq: API error (status %d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("groq: unexpected status %d", resp.StatusCode)
	}

	if len(parsed.Choices) == 0 {
		return nil, errors.New("groq: response contained no choices")
	}

	c.logger.Debug("completion finished",
		slog.String("model", c.config.Model),
		slog.String("finishReason", parsed.Choices[0].FinishReason),
		slog.Int("totalTokens", parsed.Usage.TotalTokens),
	)

	return &completion.Result{
		Text:             parsed.Choices[0].Message.Content,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}, nil
}
