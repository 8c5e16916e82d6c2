package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	// Identifier of the signed-in user whose data this process caches.
	// Supplied by the auth layer; the sync core only threads it through.
	SyncUserID string

	// Local cache database.
	DatabasePath string

	// Remote backend.
	RemoteBaseURL string
	RemoteAPIKey  string
	StorageBucket string
	SignedURLTTL  time.Duration
	HTTPTimeout   time.Duration

	// Background refresh. Zero disables the loop.
	SyncInterval time.Duration

	// Retry policy for remote operations.
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	RetryMultiplier   float64
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "ledgerline"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		SyncUserID: strings.TrimSpace(getenv("SYNC_USER_ID", "")),

		DatabasePath: getenv("DATABASE_PATH", "ledgerline.db"),

		RemoteBaseURL: strings.TrimRight(getenv("REMOTE_BASE_URL", "http://localhost:54321"), "/"),
		RemoteAPIKey:  strings.TrimSpace(getenv("REMOTE_API_KEY", "")),
		StorageBucket: getenv("STORAGE_BUCKET", "scans"),
		SignedURLTTL:  getenvDuration("SIGNED_URL_TTL", time.Hour),
		HTTPTimeout:   getenvDuration("HTTP_TIMEOUT", 30*time.Second),

		SyncInterval: getenvDuration("SYNC_INTERVAL", 5*time.Minute),

		RetryMaxAttempts:  getenvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: getenvDuration("RETRY_INITIAL_DELAY", time.Second),
		RetryMaxDelay:     getenvDuration("RETRY_MAX_DELAY", 10*time.Second),
		RetryMultiplier:   getenvFloat("RETRY_MULTIPLIER", 2.0),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

// getenvDuration accepts Go duration strings ("30s", "5m") and falls back to
// plain integers interpreted as seconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
