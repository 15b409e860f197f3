package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	APIBaseURL      string
	AccessToken     string
	RefreshToken    string
	RedisURL        string // empty disables the definition cache
	Environment     string
	MaxUploadBytes  int64
	DefinitionTTL   time.Duration
	ReconcileWindow time.Duration
}

func LoadConfig() (*Config, error) {
	// A missing .env file is fine; the process environment still applies.
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:8000"),
		AccessToken:     getEnv("ACCESS_TOKEN", ""),
		RefreshToken:    getEnv("REFRESH_TOKEN", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		Environment:     getEnv("ENVIRONMENT", "development"),
		MaxUploadBytes:  getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
		DefinitionTTL:   getEnvDuration("DEFINITION_CACHE_TTL", 5*time.Minute),
		ReconcileWindow: getEnvDuration("RECONCILE_WINDOW", 5*time.Minute),
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
