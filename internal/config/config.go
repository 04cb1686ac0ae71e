// Package config loads the environment-driven configuration for the Kollab
// backend. Required settings abort startup; everything else has a default.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults and caps for optional settings.
const (
	DefaultSessionExpiryDays   = 30
	DefaultSearchSyncBatchSize = 500
	MaxSearchSyncBatchSize     = 2000
	DefaultMaxUploadSizeBytes  = 100 << 20 // 100 MiB
	DefaultListenAddr          = ":8080"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the full runtime configuration of the backend.
type Config struct {
	// DatabaseURL is the source-of-truth DSN. Required.
	DatabaseURL string

	// CacheURL is the cache datastore DSN (redis://...). Required.
	CacheURL string

	// AuthSecret is the HMAC material for session cookies. Required.
	AuthSecret string

	// FrontendURL anchors the CORS allow list. Required.
	FrontendURL string

	// SessionExpiry is the absolute session lifetime.
	SessionExpiry time.Duration

	// SystemAdminIDs and SystemAdminEmails form the system-admin override
	// set. Matching principals are treated as owner on every workspace for
	// routes that opt in.
	SystemAdminIDs     []string
	SystemAdminEmails  []string
	SearchSyncBatch    int
	MaxUploadSizeBytes int64
	EnableDemoMode     bool

	// ListenAddr is the HTTP bind address.
	ListenAddr string

	// Environment selects production behavior (JSON logs, suppressed
	// internal error detail). One of "development" or "production".
	Environment string

	// LogFormat is "json" or "text". Defaults to json in production.
	LogFormat string
}

// Load reads configuration from the environment. It returns an error naming
// the first missing required variable.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		CacheURL:           os.Getenv("CACHE_URL"),
		AuthSecret:         os.Getenv("AUTH_SECRET"),
		FrontendURL:        os.Getenv("FRONTEND_URL"),
		SessionExpiry:      time.Duration(getEnvIntOrDefault("SESSION_EXPIRY_DAYS", DefaultSessionExpiryDays)) * 24 * time.Hour,
		SystemAdminIDs:     splitList(os.Getenv("SYSTEM_ADMIN_IDS")),
		SystemAdminEmails:  splitList(os.Getenv("SYSTEM_ADMIN_EMAILS")),
		SearchSyncBatch:    getEnvIntOrDefault("SEARCH_SYNC_BATCH_SIZE", DefaultSearchSyncBatchSize),
		MaxUploadSizeBytes: getEnvInt64OrDefault("MAX_UPLOAD_SIZE_BYTES", DefaultMaxUploadSizeBytes),
		EnableDemoMode:     getEnvBoolOrDefault("ENABLE_DEMO_MODE", false),
		ListenAddr:         getEnvOrDefault("LISTEN_ADDR", DefaultListenAddr),
		Environment:        getEnvOrDefault("KOLLAB_ENV", EnvDevelopment),
	}
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", defaultLogFormat(cfg.Environment))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and normalizes bounded ones.
func (c *Config) Validate() error {
	for _, req := range []struct {
		name, value string
	}{
		{"DATABASE_URL", c.DatabaseURL},
		{"CACHE_URL", c.CacheURL},
		{"AUTH_SECRET", c.AuthSecret},
		{"FRONTEND_URL", c.FrontendURL},
	} {
		if req.value == "" {
			return fmt.Errorf("missing required configuration %s", req.name)
		}
	}

	if u, err := url.Parse(c.FrontendURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("FRONTEND_URL %q must be an absolute URL", c.FrontendURL)
	}

	if c.SearchSyncBatch <= 0 {
		c.SearchSyncBatch = DefaultSearchSyncBatchSize
	}
	if c.SearchSyncBatch > MaxSearchSyncBatchSize {
		c.SearchSyncBatch = MaxSearchSyncBatchSize
	}
	if c.SessionExpiry <= 0 {
		c.SessionExpiry = DefaultSessionExpiryDays * 24 * time.Hour
	}
	return nil
}

// Production reports whether the backend runs with production behavior.
func (c *Config) Production() bool {
	return c.Environment == EnvProduction
}

func defaultLogFormat(environment string) string {
	if environment == EnvProduction {
		return "json"
	}
	return "text"
}

// splitList parses a comma-separated env list, trimming blanks.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBoolOrDefault returns the boolean value of an environment variable or a default value.
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// getEnvIntOrDefault returns the integer value of an environment variable or a default value.
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// getEnvInt64OrDefault returns the int64 value of an environment variable or a default value.
func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
