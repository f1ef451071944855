package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string
	OTPSalt     string
	DevMode     bool

	OTPTTL      time.Duration
	TokenTTL    time.Duration
	CORSOrigins []string
	UploadDir   string

	LLM   LLMConfig
	TTS   TTSConfig
	SMTP  SMTPConfig
	Redis string

	Interview InterviewConfig
	Weights   WeightConfig
}

// LLMConfig selects and configures the chat-completion backend.
type LLMConfig struct {
	Provider     string
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	GeminiAPIKey string
	GeminiModel  string
}

// TTSConfig configures the speech synthesis endpoint.
type TTSConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Voice   string
}

// SMTPConfig configures outbound OTP mail. Host empty means log-only.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// InterviewConfig carries the difficulty ladder thresholds and live-session policy.
type InterviewConfig struct {
	RaiseAt       int
	LowerAt       int
	IdleTimeout   time.Duration
	SweepSchedule string
}

// WeightConfig holds the overall-score blend in percent.
type WeightConfig struct {
	Interview int
	Mock      int
	Resume    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg.OTPSalt = os.Getenv("OTP_SALT")
	if cfg.OTPSalt == "" {
		return nil, fmt.Errorf("OTP_SALT environment variable is required")
	}

	cfg.DevMode = os.Getenv("DEV_MODE") == "true"

	var err error
	if cfg.OTPTTL, err = getEnvDuration("OTP_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getEnvDuration("TOKEN_TTL", 100*time.Hour); err != nil {
		return nil, err
	}
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "*"))
	cfg.UploadDir = getEnv("UPLOAD_DIR", "uploads/resumes")

	cfg.LLM = LLMConfig{
		Provider:     strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		BaseURL:      strings.TrimRight(getEnv("LLM_BASE_URL", "https://api.sambanova.ai/v1"), "/"),
		APIKey:       getEnv("LLM_API_KEY", os.Getenv("SAMBANOVA_API_KEY")),
		Model:        getEnv("LLM_MODEL", "Meta-Llama-3.1-8B-Instruct"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
	}
	if cfg.LLM.Timeout, err = getEnvDuration("LLM_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	cfg.TTS = TTSConfig{
		BaseURL: strings.TrimRight(getEnv("TTS_BASE_URL", "https://api.openai.com/v1"), "/"),
		APIKey:  getEnv("TTS_API_KEY", os.Getenv("OPENAI_API_KEY")),
		Model:   getEnv("TTS_MODEL", "gpt-4o-mini-tts"),
		Voice:   getEnv("TTS_VOICE", "alloy"),
	}

	cfg.SMTP = SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		User:     os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     getEnv("MAIL_FROM", os.Getenv("SMTP_USER")),
	}
	if cfg.SMTP.Port, err = getEnvInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}

	cfg.Redis = os.Getenv("REDIS_URL")

	cfg.Interview.SweepSchedule = getEnv("SWEEP_INTERVAL", "@every 1m")
	if cfg.Interview.RaiseAt, err = getEnvInt("LADDER_RAISE_AT", 8); err != nil {
		return nil, err
	}
	if cfg.Interview.LowerAt, err = getEnvInt("LADDER_LOWER_AT", 4); err != nil {
		return nil, err
	}
	if cfg.Interview.LowerAt >= cfg.Interview.RaiseAt {
		return nil, fmt.Errorf("LADDER_LOWER_AT (%d) must be below LADDER_RAISE_AT (%d)", cfg.Interview.LowerAt, cfg.Interview.RaiseAt)
	}
	if cfg.Interview.IdleTimeout, err = getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}

	if cfg.Weights.Interview, err = getEnvInt("WEIGHT_INTERVIEW", 60); err != nil {
		return nil, err
	}
	if cfg.Weights.Mock, err = getEnvInt("WEIGHT_MOCK", 20); err != nil {
		return nil, err
	}
	if cfg.Weights.Resume, err = getEnvInt("WEIGHT_RESUME", 20); err != nil {
		return nil, err
	}
	if sum := cfg.Weights.Interview + cfg.Weights.Mock + cfg.Weights.Resume; sum != 100 {
		return nil, fmt.Errorf("score weights must sum to 100, got %d", sum)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
