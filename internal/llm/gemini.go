package llm

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const providerGemini = "gemini"

// GeminiProvider sends the flattened conversation to the Gemini API
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini-backed provider. The HTTP client carries the round-trip timeout.
func NewGeminiProvider(ctx context.Context, apiKey, model string, httpClient *http.Client) (*GeminiProvider, error) {
	return newGeminiProvider(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}, model)
}

func newGeminiProvider(ctx context.Context, cc *genai.ClientConfig, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &ProviderError{Provider: providerGemini, Code: ErrCodeNotConfigured, Message: "failed to create Gemini client", Err: err}
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return providerGemini }

// Complete ignores MaxTokens and Temperature; the model defaults apply.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" || !strings.HasPrefix(model, "gemini") {
		model = p.model
	}

	result, err := p.client.Models.GenerateContent(ctx, model, genai.Text(flatten(req.Messages)), nil)
	if err != nil {
		code := ErrCodeServiceDown
		if strings.Contains(err.Error(), "429") {
			code = ErrCodeRateLimit
		}
		return "", &ProviderError{Provider: providerGemini, Code: code, Message: "generate content", Err: err}
	}
	if result == nil {
		return "", &ProviderError{Provider: providerGemini, Code: ErrCodeEmptyResponse, Message: "no response generated"}
	}
	text, err := result.Text()
	if err != nil {
		return "", &ProviderError{Provider: providerGemini, Code: ErrCodeEmptyResponse, Message: "extract response text", Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &ProviderError{Provider: providerGemini, Code: ErrCodeEmptyResponse, Message: "empty response generated"}
	}
	return text, nil
}

// flatten renders chat messages as a single prompt, system text first
func flatten(msgs []Message) string {
	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if m.Role != "" && m.Role != "user" {
			sb.WriteString(strings.ToUpper(m.Role))
			sb.WriteString(": ")
		}
		sb.WriteString(m.Content)
	}
	return sb.String()
}
