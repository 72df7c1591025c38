package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "./orderbooks", cfg.DataDir)
	assert.Equal(t, 20, cfg.MaxOutputDepth)
	assert.Equal(t, 10, cfg.CacheFrequencySeconds)
	assert.Equal(t, time.Minute, cfg.ListingCacheTTL)
	assert.Equal(t, 500, cfg.FeedDepth)
	assert.Equal(t, "console", cfg.StorageMode)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("MAX_OUTPUT_DEPTH", "50")
	t.Setenv("CACHE_FREQUENCY_SECONDS", "5")
	t.Setenv("FEED_DEPTH", "50")
	t.Setenv("WS_DIAL_TIMEOUT", "3s")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxOutputDepth)
	assert.Equal(t, 5, cfg.CacheFrequencySeconds)
	assert.Equal(t, 50, cfg.FeedDepth)
	assert.Equal(t, 3*time.Second, cfg.WSDialTimeout)
}

func TestLoadFromEnvBadValueFallsBackToDefault(t *testing.T) {
	t.Setenv("MAX_OUTPUT_DEPTH", "not-a-number")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.MaxOutputDepth)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.MaxOutputDepth = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.CacheFrequencySeconds = -1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.FeedDepth = 7
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.StorageMode = "s3"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.DataDir = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.WSReconnectBackoffMult = 0.5
	assert.Error(t, cfg.Validate())
}
