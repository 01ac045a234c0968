// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/simplainvest/wealthboard/internal/scheduler"
)

// DefaultFeedBaseURL is the production wealth feed
const DefaultFeedBaseURL = "https://api-wealth.simplainvest.com.br"

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for the cache database (always absolute)
	FeedBaseURL      string
	FeedTimeout      time.Duration
	FeedMaxRetries   int
	RefreshSchedule  string // cron spec for the periodic dashboard reload
	RefreshRateLimit time.Duration
	ScaleDivisor     float64 // unit divisor for monetary feed values
	ActivityFile     string  // optional JSON with gauge and funnel figures
	LogLevel         string
	Port             int
	DevMode          bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("WEALTHBOARD_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		FeedBaseURL:      strings.TrimRight(getEnv("FEED_BASE_URL", DefaultFeedBaseURL), "/"),
		FeedTimeout:      time.Duration(getEnvAsInt("FEED_TIMEOUT_SECONDS", 10)) * time.Second,
		FeedMaxRetries:   getEnvAsInt("FEED_MAX_RETRIES", 3),
		RefreshSchedule:  getEnv("REFRESH_SCHEDULE", "@every 5m"),
		RefreshRateLimit: time.Duration(getEnvAsInt("REFRESH_RATE_LIMIT_SECONDS", 10)) * time.Second,
		ScaleDivisor:     getEnvAsFloat("SCALE_DIVISOR", 1_000_000),
		ActivityFile:     getEnv("ACTIVITY_FILE", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Port:             getEnvAsInt("PORT", 8080),
		DevMode:          getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	u, err := url.Parse(c.FeedBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid FEED_BASE_URL %q", c.FeedBaseURL)
	}
	if c.FeedTimeout <= 0 {
		return fmt.Errorf("FEED_TIMEOUT_SECONDS must be positive")
	}
	if c.FeedMaxRetries < 0 {
		return fmt.Errorf("FEED_MAX_RETRIES must not be negative")
	}
	if err := scheduler.ValidateSchedule(c.RefreshSchedule); err != nil {
		return fmt.Errorf("invalid REFRESH_SCHEDULE: %w", err)
	}
	if c.RefreshRateLimit < 0 {
		return fmt.Errorf("REFRESH_RATE_LIMIT_SECONDS must not be negative")
	}
	if !(c.ScaleDivisor > 0) {
		return fmt.Errorf("SCALE_DIVISOR must be positive, got %v", c.ScaleDivisor)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}

// RefreshTimeout bounds one full dashboard refresh: every attempt of the
// feed client may run to its timeout
func (c *Config) RefreshTimeout() time.Duration {
	return c.FeedTimeout * time.Duration(c.FeedMaxRetries+1)
}

// CacheDBPath is the location of the feed cache database
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
