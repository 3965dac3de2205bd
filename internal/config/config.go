package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultBaseURL = "http://localhost:3000"

// Config holds everything the terminal needs to reach the trading backend.
// All values come from the environment (optionally seeded from a .env file).
type Config struct {
	APIBaseURL    string
	PushURL       string        // Socket.IO endpoint, defaults to APIBaseURL
	APITimeout    time.Duration // 0 leaves the transport default in place
	PushReconnect bool
	PushBuffer    int // per-subscriber update buffer
	SessionFile   string

	LogLevel      string
	LogFile       string
	MaxLogSizeMB  int64
	MaxLogBackups int
}

// Load initializes the configuration.
// It tries to read a .env file and then reads the process environment, falling back to
// defaults for anything missing or malformed. Nothing here is required, so Load never fails.
func Load() *Config {
	// Load .env variables into the process environment
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	baseURL := strings.TrimRight(getEnvAsString("API_BASE_URL", DefaultBaseURL), "/")

	cfg := &Config{
		APIBaseURL:    baseURL,
		PushURL:       strings.TrimRight(getEnvAsString("PUSH_URL", baseURL), "/"),
		APITimeout:    time.Duration(getEnvAsInt("API_TIMEOUT_SEC", 0)) * time.Second,
		PushReconnect: getEnvAsBool("PUSH_RECONNECT", false),
		PushBuffer:    getEnvAsInt("PUSH_BUFFER", 16),
		SessionFile:   getEnvAsString("SESSION_FILE", "session.json"),
		LogLevel:      strings.ToUpper(getEnvAsString("LOG_LEVEL", "INFO")),
		LogFile:       getEnvAsString("LOG_FILE", "trading_terminal.log"),
		MaxLogSizeMB:  int64(getEnvAsInt("LOG_MAX_SIZE_MB", 10)),
		MaxLogBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
	}

	if cfg.PushBuffer <= 0 {
		log.Printf("Warning: PUSH_BUFFER must be positive, using 16")
		cfg.PushBuffer = 16
	}
	if cfg.APITimeout < 0 {
		cfg.APITimeout = 0
	}

	return cfg
}
