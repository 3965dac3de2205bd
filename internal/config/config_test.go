package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Ensure optional envs are unset
	optionals := []string{
		"API_BASE_URL",
		"PUSH_URL",
		"API_TIMEOUT_SEC",
		"PUSH_RECONNECT",
		"PUSH_BUFFER",
		"SESSION_FILE",
		"LOG_LEVEL",
	}
	for _, k := range optionals {
		if v, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			defer os.Setenv(k, v)
		}
	}

	cfg := Load()

	if cfg.APIBaseURL != DefaultBaseURL {
		t.Errorf("Expected APIBaseURL %q, got %q", DefaultBaseURL, cfg.APIBaseURL)
	}
	if cfg.PushURL != DefaultBaseURL {
		t.Errorf("Expected PushURL to follow APIBaseURL, got %q", cfg.PushURL)
	}
	if cfg.APITimeout != 0 {
		t.Errorf("Expected no API timeout, got %s", cfg.APITimeout)
	}
	if cfg.PushReconnect {
		t.Error("Expected PushReconnect to default to false")
	}
	if cfg.PushBuffer != 16 {
		t.Errorf("Expected PushBuffer 16, got %d", cfg.PushBuffer)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("Expected LogLevel 'INFO', got '%s'", cfg.LogLevel)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://sim.example:4000/")
	t.Setenv("API_TIMEOUT_SEC", "7")
	t.Setenv("PUSH_RECONNECT", "true")
	t.Setenv("PUSH_BUFFER", "-3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PUSH_URL", "")

	cfg := Load()

	if cfg.APIBaseURL != "http://sim.example:4000" {
		t.Errorf("Expected trailing slash trimmed, got %q", cfg.APIBaseURL)
	}
	if cfg.PushURL != cfg.APIBaseURL {
		t.Errorf("Expected empty PUSH_URL to fall back to API base, got %q", cfg.PushURL)
	}
	if cfg.APITimeout != 7*time.Second {
		t.Errorf("Expected 7s timeout, got %s", cfg.APITimeout)
	}
	if !cfg.PushReconnect {
		t.Error("Expected PushReconnect true")
	}
	if cfg.PushBuffer != 16 {
		t.Errorf("Expected invalid PUSH_BUFFER to fall back to 16, got %d", cfg.PushBuffer)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("Expected LogLevel upper-cased, got %q", cfg.LogLevel)
	}
}

func TestGetEnvAsInt_Invalid(t *testing.T) {
	t.Setenv("SOME_INT", "twelve")
	if got := getEnvAsInt("SOME_INT", 12); got != 12 {
		t.Errorf("Expected fallback 12, got %d", got)
	}
}
