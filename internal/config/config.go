// Package config handles loading and validation of application configuration
// from environment variables. Supports .env files via godotenv.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Backend API
	APIBaseURL     string
	RequestTimeout time.Duration

	// Credential persistence
	CredentialsFile string

	// Cron relay
	CronSecret  string
	CronTimeout time.Duration

	// Mock server
	MockPort       int
	MockJWTSecret  string
	AllowedOrigins []string

	Environment string // "development" | "staging" | "production"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (development)
	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8080/api"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),

		CredentialsFile: getEnv("CREDENTIALS_FILE", defaultCredentialsFile()),

		CronSecret:  getEnv("CRON_SECRET", ""),
		CronTimeout: getEnvDuration("CRON_TIMEOUT", 30*time.Second),

		MockPort:       getEnvInt("MOCK_PORT", 8080),
		MockJWTSecret:  getEnv("MOCK_JWT_SECRET", "dev-secret-change-in-production"),
		AllowedOrigins: []string{getEnv("ALLOWED_ORIGIN", "http://localhost:5173")},

		Environment: getEnv("ENVIRONMENT", "development"),
	}

	// Validate required fields in production
	if cfg.Environment == "production" {
		if cfg.APIBaseURL == "" {
			return nil, fmt.Errorf("API_BASE_URL is required in production")
		}
		if cfg.CronSecret == "" {
			return nil, fmt.Errorf("CRON_SECRET is required in production")
		}
	}

	return cfg, nil
}

func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".padosi-credentials.json"
	}
	return filepath.Join(home, ".config", "padosi", "credentials.json")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
