package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port             string
	Env              string
	LogLevel         string
	DatabaseURL      string
	ServiceToken     string
	ServiceJWTSecret string
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool

	// Sync behaviour
	SyncWindowDays   int
	StatusCacheTTL   time.Duration
	AutoSyncEnabled  bool
	AutoSyncInterval time.Duration

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", "8001"),
		Env:              getEnv("ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ServiceToken:     getEnv("SIGNUP_SYNC_SERVICE_TOKEN", ""),
		ServiceJWTSecret: getEnv("SERVICE_JWT_SECRET", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),

		SyncWindowDays:   getEnvAsInt("SYNC_WINDOW_DAYS", 7),
		StatusCacheTTL:   getEnvAsDuration("SYNC_STATUS_CACHE_TTL", 5*time.Minute),
		AutoSyncEnabled:  getEnvAsBool("AUTO_SYNC_ENABLED", false),
		AutoSyncInterval: getEnvAsDuration("AUTO_SYNC_INTERVAL", 15*time.Minute),

		CORSAllowedOrigins: getEnvAsList("CORS_ORIGINS", nil),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
