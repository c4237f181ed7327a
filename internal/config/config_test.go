package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reality-studio-backend/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3, cfg.BatchSize)
	assert.Equal(t, 3, cfg.RecoveryMaxAttempts)
	assert.Equal(t, time.Second, cfg.RecoveryBaseDelay)
	assert.Equal(t, 30*time.Minute, cfg.StaleJobAfter)
	assert.Equal(t, "episode-media", cfg.SupabaseStorageBucket)
	assert.Zero(t, cfg.GenerationCacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-test")
	t.Setenv("BATCH_SIZE", "5")
	t.Setenv("VIDEO_ENGINE_TIMEOUT", "45s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.ProviderGemini, cfg.LLMProvider)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 45*time.Second, cfg.VideoEngineTimeout)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	_, err := config.Load()
	assert.ErrorContains(t, err, "SUPABASE_JWT_SECRET")
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			LLMProvider:         config.ProviderOpenAI,
			OpenAIAPIKey:        "sk-test",
			SupabaseJWTSecret:   "secret",
			BatchSize:           3,
			RecoveryMaxAttempts: 3,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{"valid", func(c *config.Config) {}, ""},
		{"missing openai key", func(c *config.Config) { c.OpenAIAPIKey = "" }, "OPENAI_API_KEY"},
		{"gemini without key", func(c *config.Config) { c.LLMProvider = config.ProviderGemini }, "GEMINI_API_KEY"},
		{"unknown provider", func(c *config.Config) { c.LLMProvider = "claude" }, "LLM_PROVIDER"},
		{"zero batch size", func(c *config.Config) { c.BatchSize = 0 }, "BATCH_SIZE"},
		{"zero attempts", func(c *config.Config) { c.RecoveryMaxAttempts = 0 }, "RECOVERY_MAX_ATTEMPTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
