package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultMaxBodyBytes caps chat request bodies and WebSocket frames.
const DefaultMaxBodyBytes = 1 << 20

// DefaultSystemPrompt is prepended to every upstream request.
const DefaultSystemPrompt = "You are a friendly, concise, cute assistant that replies helpfully and briefly. " +
	"Keep responses pleasant and slightly playful, suitable for a pastel-themed chat UI."

type Config struct {
	// Server
	Port string
	Env  string

	// Upstream completion API
	Provider      string
	APIKey        string
	OpenAIBaseURL string
	Model         string
	SystemPrompt  string

	// Limits
	UpstreamTimeout    time.Duration
	ConcurrentUpstream int
	MaxHistoryTokens   int
	MaxBodyBytes       int64
	RateLimitPerMinute int

	// Optional signed session cookie; empty disables it
	SessionSecret string

	// CORS
	AllowedOrigin string

	// Honor X-Forwarded-For / X-Real-IP; only behind a proxy that sets them
	TrustProxy bool
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	provider := getEnvOrDefault("PROVIDER", ProviderOpenAI)

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "7860"),
		Env:                getEnvOrDefault("ENV", "development"),
		Provider:           provider,
		OpenAIBaseURL:      getEnvOrDefault("OPENAI_BASE_URL", ""),
		SystemPrompt:       getEnvOrDefault("SYSTEM_PROMPT", DefaultSystemPrompt),
		UpstreamTimeout:    getEnvAsDurationOrDefault("UPSTREAM_TIMEOUT", 60*time.Second),
		ConcurrentUpstream: getEnvAsIntOrDefault("CONCURRENT_UPSTREAM_REQUESTS", 10),
		MaxHistoryTokens:   getEnvAsIntOrDefault("MAX_HISTORY_TOKENS", 0),
		MaxBodyBytes:       int64(getEnvAsIntOrDefault("MAX_BODY_BYTES", DefaultMaxBodyBytes)),
		RateLimitPerMinute: getEnvAsIntOrDefault("RATE_LIMIT_PER_MINUTE", 60),
		SessionSecret:      getEnvOrDefault("SESSION_SECRET", ""),
		AllowedOrigin:      getEnvOrDefault("ALLOWED_ORIGIN", ""),
		TrustProxy:         getEnvAsBoolOrDefault("TRUST_PROXY", false),
	}

	switch provider {
	case ProviderOpenAI:
		cfg.APIKey = mustGetEnv("OPENAI_API_KEY")
		cfg.Model = getEnvOrDefault("MODEL", "gpt-4o-mini")
	case ProviderGemini:
		cfg.APIKey = mustGetEnv("GEMINI_API_KEY")
		cfg.Model = getEnvOrDefault("MODEL", "gemini-1.5-flash")
	default:
		panic(fmt.Sprintf("unsupported PROVIDER %q (expected %q or %q)", provider, ProviderOpenAI, ProviderGemini))
	}

	if cfg.ConcurrentUpstream < 1 {
		cfg.ConcurrentUpstream = 1
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
