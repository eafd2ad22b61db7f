package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8080/api" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %q", cfg.Environment)
	}
	if cfg.CredentialsFile == "" {
		t.Error("CredentialsFile empty")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.padosi.app/api")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("MOCK_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "https://api.padosi.app/api" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.MockPort != 9090 {
		t.Errorf("MockPort = %d", cfg.MockPort)
	}
}

func TestProductionRequiresCronSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CRON_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load accepted production config without CRON_SECRET")
	}

	t.Setenv("CRON_SECRET", "s3cret")
	if _, err := Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestMalformedNumbersFallBack(t *testing.T) {
	t.Setenv("MOCK_PORT", "not-a-number")
	t.Setenv("REQUEST_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MockPort != 8080 {
		t.Errorf("MockPort = %d, want fallback 8080", cfg.MockPort)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want fallback 30s", cfg.RequestTimeout)
	}
}
