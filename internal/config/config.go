package config

import (
	"os"
)

// Config is the process configuration, environment-driven. GeminiAPIKey is
// deliberately not validated at load time: its absence is reported per
// request as a configuration error (500), matching the hosted deployment.
type Config struct {
	ServerPort string

	RedisAddr      string
	RateLimitStore string // "redis" or "memory"

	AuthMode     string // "gotrue", "jwt" or "oidc"
	AuthBaseURL  string
	AuthAnonKey  string
	JWTSecret    string
	OIDCIssuer   string
	OIDCClientID string

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	AuditDBPath string // "" disables the SQLite audit sink
	LimitsFile  string // "" keeps the built-in default rule
}

func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RateLimitStore: getEnv("RATE_LIMIT_STORE", "redis"),

		AuthMode:     getEnv("AUTH_MODE", "gotrue"),
		AuthBaseURL:  getEnv("AUTH_BASE_URL", ""),
		AuthAnonKey:  getEnv("AUTH_ANON_KEY", ""),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		OIDCIssuer:   getEnv("OIDC_ISSUER", ""),
		OIDCClientID: getEnv("OIDC_CLIENT_ID", ""),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", ""),

		AuditDBPath: getEnv("AUDIT_DB_PATH", ""),
		LimitsFile:  getEnv("LIMITS_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
