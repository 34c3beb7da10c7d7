package groq

import "time"

// Production defaults. The model and base URL can be overridden through
// configuration without rebuilding.
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

// Config holds the configuration for the Groq completion client.
type Config struct {
	// APIKey authenticates against the Groq API. Required.
	APIKey string
	// BaseURL is the API root. Groq serves an OpenAI-compatible surface.
	BaseURL string
	// Model is the model identifier sent with every request.
	Model string
	// Temperature controls sampling randomness.
	Temperature float64
	// MaxTokens caps the completion length.
	MaxTokens int
	// Timeout bounds one round trip, including connection setup.
	Timeout time.Duration
}

// DefaultConfig provides the defaults used in production.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:      apiKey,
		BaseURL:     DefaultBaseURL,
		Model:       DefaultModel,
		Temperature: 0.7,
		MaxTokens:   1024,
		Timeout:     60 * time.Second,
	}
}
