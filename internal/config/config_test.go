package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://user:pw@localhost:5432/nexthire?sslmode=disable")
	t.Setenv("JWT_SECRET", "test-jwt-secret")
	t.Setenv("OTP_SALT", "salt")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 8, cfg.Interview.RaiseAt)
	assert.Equal(t, 4, cfg.Interview.LowerAt)
	assert.Equal(t, WeightConfig{Interview: 60, Mock: 20, Resume: 20}, cfg.Weights)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "JWT_SECRET", "OTP_SALT"} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LADDER_RAISE_AT", "9")
	t.Setenv("LADDER_LOWER_AT", "3")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("SAMBANOVA_API_KEY", "sn-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Interview.RaiseAt)
	assert.Equal(t, 3, cfg.Interview.LowerAt)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "sn-key", cfg.LLM.APIKey)
}

func TestLoad_RejectsBadPolicy(t *testing.T) {
	t.Run("ladder", func(t *testing.T) {
		setRequired(t)
		t.Setenv("LADDER_RAISE_AT", "4")
		t.Setenv("LADDER_LOWER_AT", "4")
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("weights", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WEIGHT_MOCK", "30")
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("duration", func(t *testing.T) {
		setRequired(t)
		t.Setenv("OTP_TTL", "ten minutes")
		_, err := Load()
		require.Error(t, err)
	})
}
