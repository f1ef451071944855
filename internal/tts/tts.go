package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nexthire/server/internal/config"
)

// Synthesizer turns text into audio bytes
type Synthesizer interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

// New returns an OpenAI speech client, or Nop when no key is configured
func New(cfg config.TTSConfig, timeout time.Duration) Synthesizer {
	if cfg.APIKey == "" {
		return Nop{}
	}
	return NewOpenAISpeech(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Voice, timeout)
}

// Nop produces no audio
type Nop struct{}

func (Nop) Speak(context.Context, string) ([]byte, error) { return nil, nil }

// OpenAISpeech calls the /audio/speech endpoint and returns WAV bytes
type OpenAISpeech struct {
	baseURL string
	apiKey  string
	model   string
	voice   string
	client  *http.Client
}

func NewOpenAISpeech(baseURL, apiKey, model, voice string, timeout time.Duration) *OpenAISpeech {
	return &OpenAISpeech{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		voice:   voice,
		client:  &http.Client{Timeout: timeout},
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

func (s *OpenAISpeech) Speak(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	body, err := json.Marshal(speechRequest{Model: s.model, Voice: s.voice, Input: text, ResponseFormat: "wav"})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("speech request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech body: %w", err)
	}
	return audio, nil
}
