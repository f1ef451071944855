package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/nexthire/server/internal/config"
)

type evaluation struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    evaluation
		wantErr bool
	}{
		{name: "plain", raw: `{"score": 7, "feedback": "ok"}`, want: evaluation{7, "ok"}},
		{name: "fenced", raw: "```json\n{\"score\": 9, \"feedback\": \"great\"}\n```", want: evaluation{9, "great"}},
		{name: "wrapped in prose", raw: "Sure! Here is the result:\n{\"score\": 3, \"feedback\": \"thin\"}\nHope this helps.", want: evaluation{3, "thin"}},
		{name: "no braces", raw: "I cannot evaluate this answer.", wantErr: true},
		{name: "broken object", raw: "{score: nine}", wantErr: true},
		{name: "empty", raw: "   ", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got evaluation
			err := DecodeJSON(tc.raw, &got)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrNoJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeOr(t *testing.T) {
	fallback := evaluation{Score: 5, Feedback: "default"}

	var got evaluation
	assert.False(t, DecodeOr("nothing here", &got, fallback))
	assert.Equal(t, fallback, got)

	assert.True(t, DecodeOr(`{"score": 8}`, &got, fallback))
	assert.Equal(t, evaluation{Score: 8}, got)
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL+"/", "key", "default-model", 5*time.Second)
	out, err := p.Complete(context.Background(), Request{
		Messages:    []Message{{Role: "user", Content: "hi"}},
		MaxTokens:   100,
		Temperature: 0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "default-model", captured.Model)
	assert.Equal(t, 100, captured.MaxTokens)
	assert.Equal(t, "hi", captured.Messages[0].Content)
}

func TestOpenAIProvider_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", wantCode: ErrCodeRateLimit},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantCode: ErrCodeBadStatus},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantCode: ErrCodeEmptyResponse},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewOpenAIProvider(srv.URL, "k", "m", time.Second).Complete(context.Background(), Request{})
			var pe *ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tc.wantCode, pe.Code)
		})
	}
}

func TestOpenAIProvider_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewOpenAIProvider(srv.URL, "k", "m", 50*time.Millisecond).Complete(context.Background(), Request{})
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrCodeServiceDown, pe.Code)
}

func newStubGemini(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := newGeminiProvider(context.Background(), &genai.ClientConfig{
		APIKey:     "test",
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: srv.Client(),
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    srv.URL,
			APIVersion: "v1beta",
		},
	}, "test-model")
	require.NoError(t, err)
	return p
}

func TestGeminiProvider_Complete(t *testing.T) {
	p := newStubGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": `{"score": 6}`}}}},
			},
		})
	})

	out, err := p.Complete(context.Background(), Request{Messages: []Message{
		{Role: "system", Content: "be strict"},
		{Role: "user", Content: "grade this"},
	}})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 6}`, out)
}

func TestGeminiProvider_RateLimit(t *testing.T) {
	p := newStubGemini(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "429 rate limit", http.StatusTooManyRequests)
	})

	_, err := p.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrCodeRateLimit, pe.Code)
}

func TestFlatten(t *testing.T) {
	got := flatten([]Message{{Role: "system", Content: "rules"}, {Role: "user", Content: "question"}})
	assert.Equal(t, "SYSTEM: rules\n\nquestion", got)
}

func TestNew(t *testing.T) {
	p, err := New(config.LLMConfig{Provider: "openai"})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = New(config.LLMConfig{Provider: "openai", APIKey: "k", BaseURL: "http://x", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = New(config.LLMConfig{Provider: "llama.cpp"})
	assert.Error(t, err)
}
