package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	Env         string

	MethodAPIURL string
	MethodAPIKey string

	WorkerInterval       time.Duration
	RateLimitRPM         int
	RateLimitConcurrency int

	WebhookURL    string
	WebhookSecret string

	// APIKey guards the dashboard API. Empty disables auth.
	APIKey string
}

// LoadConfig reads .env file and returns a Config struct
func LoadConfig() *Config {
	// Try loading .env file (it might not exist in Production, which is fine)
	err := godotenv.Load()
	if err != nil {
		slog.Warn("No .env file found, relying on System Env Variables")
	}

	return &Config{
		Port:        getEnv("PORT", "3000"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Env:         getEnv("ENV", "development"),

		MethodAPIURL: getEnv("METHOD_API_URL", "https://dev.methodfi.com"),
		MethodAPIKey: getEnv("METHOD_API_KEY", ""),

		WorkerInterval:       getEnvDuration("WORKER_INTERVAL", 60*time.Second),
		RateLimitRPM:         getEnvInt("RATE_LIMIT_RPM", 600),
		RateLimitConcurrency: getEnvInt("RATE_LIMIT_CONCURRENCY", 100),

		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

		APIKey: getEnv("API_KEY", ""),
	}
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Invalid integer in env, using fallback", "key", key, "value", value)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration in env, using fallback", "key", key, "value", value)
		return fallback
	}
	return d
}
