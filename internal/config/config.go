package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// LLM
	LLMProvider      string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	OpenAIImageModel string
	GeminiAPIKey     string
	GeminiModel      string

	// Text-to-speech
	TTSAPIKey       string
	TTSBaseURL      string
	TTSDefaultVoice string

	// Video engine
	VideoEngineURL     string
	VideoEngineTimeout time.Duration

	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string

	// Database
	DatabaseURL string

	// Internal bot-to-bot calls
	InternalAPIKey string

	// Pipeline
	BatchSize           int
	RecoveryMaxAttempts int
	RecoveryBaseDelay   time.Duration
	RenderDedupTTL      time.Duration
	GenerationCacheTTL  time.Duration
	StaleJobAfter       time.Duration
	SweepCronSpec       string

	// Server
	Port        string
	Environment string
	BaseURL     string
	LogLevel    string
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

func Load() (*Config, error) {
	// .env is a local-dev convenience; deployed environments set real vars.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		LLMProvider:      v.GetString("LLM_PROVIDER"),
		OpenAIAPIKey:     v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:    v.GetString("OPENAI_BASE_URL"),
		OpenAIModel:      v.GetString("OPENAI_MODEL"),
		OpenAIImageModel: v.GetString("OPENAI_IMAGE_MODEL"),
		GeminiAPIKey:     v.GetString("GEMINI_API_KEY"),
		GeminiModel:      v.GetString("GEMINI_MODEL"),

		TTSAPIKey:       v.GetString("TTS_API_KEY"),
		TTSBaseURL:      v.GetString("TTS_BASE_URL"),
		TTSDefaultVoice: v.GetString("TTS_DEFAULT_VOICE"),

		VideoEngineURL:     v.GetString("VIDEO_ENGINE_URL"),
		VideoEngineTimeout: v.GetDuration("VIDEO_ENGINE_TIMEOUT"),

		SupabaseURL:            v.GetString("SUPABASE_URL"),
		SupabasePublishableKey: v.GetString("SUPABASE_PUBLISHABLE_KEY"),
		SupabaseJWTSecret:      v.GetString("SUPABASE_JWT_SECRET"),
		SupabaseStorageBucket:  v.GetString("SUPABASE_STORAGE_BUCKET"),

		DatabaseURL: v.GetString("DATABASE_URL"),

		InternalAPIKey: v.GetString("INTERNAL_API_KEY"),

		BatchSize:           v.GetInt("BATCH_SIZE"),
		RecoveryMaxAttempts: v.GetInt("RECOVERY_MAX_ATTEMPTS"),
		RecoveryBaseDelay:   v.GetDuration("RECOVERY_BASE_DELAY"),
		RenderDedupTTL:      v.GetDuration("RENDER_DEDUP_TTL"),
		GenerationCacheTTL:  v.GetDuration("GENERATION_CACHE_TTL"),
		StaleJobAfter:       v.GetDuration("STALE_JOB_AFTER"),
		SweepCronSpec:       v.GetString("SWEEP_CRON_SPEC"),

		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENVIRONMENT"),
		BaseURL:     v.GetString("BASE_URL"),
		LogLevel:    v.GetString("LOG_LEVEL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LLM_PROVIDER", ProviderOpenAI)
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_IMAGE_MODEL", "dall-e-3")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash-latest")
	v.SetDefault("TTS_BASE_URL", "https://api.elevenlabs.io/v1")
	v.SetDefault("TTS_DEFAULT_VOICE", "21m00Tcm4TlvDq8ikWAM")
	v.SetDefault("VIDEO_ENGINE_TIMEOUT", 15*time.Second)
	v.SetDefault("SUPABASE_STORAGE_BUCKET", "episode-media")
	v.SetDefault("BATCH_SIZE", 3)
	v.SetDefault("RECOVERY_MAX_ATTEMPTS", 3)
	v.SetDefault("RECOVERY_BASE_DELAY", time.Second)
	v.SetDefault("RENDER_DEDUP_TTL", 30*time.Minute)
	v.SetDefault("GENERATION_CACHE_TTL", time.Duration(0))
	v.SetDefault("STALE_JOB_AFTER", 30*time.Minute)
	v.SetDefault("SWEEP_CRON_SPEC", "0 */5 * * * *")
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("LOG_LEVEL", "info")
}

func (c *Config) Validate() error {
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.LLMProvider)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be at least 1")
	}
	if c.RecoveryMaxAttempts < 1 {
		return fmt.Errorf("RECOVERY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}
