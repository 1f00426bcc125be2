// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Storage
	SQLitePath string

	// Shared-secret API auth (disabled when empty)
	APIToken string

	// Generation capability
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAITimeout   time.Duration
	AnthropicAPIKey string
	DefaultLLM      string

	// WordPress publishing
	WPBaseURL     string
	WPUsername    string
	WPAppPassword string
	WPTimeout     time.Duration

	// Guardrails
	MessageMaxChars    int
	SessionMaxMessages int

	// Transcript truncation
	DraftMaxMessages int
	DraftMaxChars    int

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// NATS lifecycle events (disabled when URL empty)
	NATSURL   string
	NATSToken string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Storage
		SQLitePath: getEnv("SQLITE_PATH", "convergo.db"),

		// Auth
		APIToken: getEnv("API_TOKEN", ""),

		// Generation
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAITimeout:   getDurationEnv("OPENAI_TIMEOUT", 20*time.Second),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "openai"),

		// WordPress
		WPBaseURL:     getEnv("WP_BASE_URL", ""),
		WPUsername:    getEnv("WP_USERNAME", ""),
		WPAppPassword: getEnv("WP_APP_PASSWORD", ""),
		WPTimeout:     getDurationEnv("WP_TIMEOUT", 15*time.Second),

		// Guardrails
		MessageMaxChars:    getIntEnv("MESSAGE_MAX_CHARS", 4000),
		SessionMaxMessages: getIntEnv("SESSION_MAX_MESSAGES", 80),

		// Transcript truncation
		DraftMaxMessages: getIntEnv("DRAFT_MAX_MESSAGES", 120),
		DraftMaxChars:    getIntEnv("DRAFT_MAX_CHARS", 120000),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// NATS
		NATSURL:   getEnv("NATS_URL", ""),
		NATSToken: getEnv("NATS_TOKEN", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
