// Package completion defines the interface to the external language-model
// API. The concrete Groq client lives in completion/groq; tests substitute
// fakes.
package completion

import "context"

// Request is one stateless completion call.
type Request struct {
	SystemPrompt string `json:"systemPrompt"`
	UserText     string `json:"userText"`
}

// Result is the completion text plus the provider's token accounting.
type Result struct {
	Text             string `json:"text"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
	TotalTokens      int    `json:"totalTokens"`
}

// Client is the core interface for requesting completions from the
// upstream provider. Implementations may fail or time out; callers must
// not count a failed call against the user's quota.
type Client interface {
	Complete(ctx context.Context, req Request) (*Result, error)
}
