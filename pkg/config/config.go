package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string
	DataDir  string

	// Compression
	MaxOutputDepth int

	// Traversal
	CacheFrequencySeconds int

	// Replay service
	ListingCacheTTL time.Duration

	// Feed recorder
	BybitWSURL              string
	FeedDepth               int
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// feedDepths are the orderbook depths Bybit's v5 public stream offers.
var feedDepths = map[int]bool{1: true, 50: true, 200: true, 500: true}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),
		DataDir:  getEnvOrDefault("DATA_DIR", "./orderbooks"),

		// Compression defaults
		MaxOutputDepth: getIntOrDefault("MAX_OUTPUT_DEPTH", 20),

		// Traversal defaults
		CacheFrequencySeconds: getIntOrDefault("CACHE_FREQUENCY_SECONDS", 10),

		// Replay service defaults
		ListingCacheTTL: getDurationOrDefault("LISTING_CACHE_TTL", time.Minute),

		// Feed recorder defaults
		BybitWSURL:              getEnvOrDefault("BYBIT_WS_URL", "wss://stream.bybit.com/v5/public/linear"),
		FeedDepth:               getIntOrDefault("FEED_DEPTH", 500),
		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "obreplay"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "obreplay"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "obreplay"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}

	if c.DataDir == "" {
		return errors.New("DATA_DIR cannot be empty")
	}

	if c.MaxOutputDepth <= 0 {
		return fmt.Errorf("MAX_OUTPUT_DEPTH must be positive, got %d", c.MaxOutputDepth)
	}

	if c.CacheFrequencySeconds <= 0 {
		return fmt.Errorf("CACHE_FREQUENCY_SECONDS must be positive, got %d", c.CacheFrequencySeconds)
	}

	if c.ListingCacheTTL <= 0 {
		return fmt.Errorf("LISTING_CACHE_TTL must be positive, got %s", c.ListingCacheTTL)
	}

	if c.BybitWSURL == "" {
		return errors.New("BYBIT_WS_URL cannot be empty")
	}

	if !feedDepths[c.FeedDepth] {
		return fmt.Errorf("FEED_DEPTH must be one of 1, 50, 200, 500, got %d", c.FeedDepth)
	}

	if c.StorageMode != "console" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be 'console' or 'postgres', got %q", c.StorageMode)
	}

	if c.WSReconnectBackoffMult < 1.0 {
		return fmt.Errorf("WS_RECONNECT_BACKOFF_MULTIPLIER must be >= 1.0, got %f", c.WSReconnectBackoffMult)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
