package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nexthire/server/internal/config"
)

// Message is one chat turn sent to the model
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the chat-completion contract shared by all providers
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Provider turns a request into the assistant's text reply
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// Error codes carried by ProviderError
const (
	ErrCodeNotConfigured = "NOT_CONFIGURED"
	ErrCodeServiceDown   = "SERVICE_DOWN"
	ErrCodeBadStatus     = "BAD_STATUS"
	ErrCodeEmptyResponse = "EMPTY_RESPONSE"
	ErrCodeRateLimit     = "RATE_LIMIT"
)

// ProviderError wraps a failure from a model backend
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Provider, e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// New builds the configured provider. It returns nil when no credentials are present,
// which callers treat as "model unavailable".
func New(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil
		}
		return NewGeminiProvider(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, &http.Client{Timeout: cfg.Timeout})
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, nil
		}
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
}
