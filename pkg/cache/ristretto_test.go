package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()
	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c.(*RistrettoCache)
}

func TestSetAndGet(t *testing.T) {
	c := newTestCache(t)

	ok := c.Set("listing:2024-01-15", []string{"BTCUSDT"}, time.Minute)
	require.True(t, ok)
	c.Wait()

	value, found := c.Get("listing:2024-01-15")
	require.True(t, found)
	assert.Equal(t, []string{"BTCUSDT"}, value)
}

func TestGetMissing(t *testing.T) {
	c := newTestCache(t)

	_, found := c.Get("nope")
	assert.False(t, found)
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)

	c.Set("key", "value", time.Minute)
	c.Wait()
	c.Delete("key")

	_, found := c.Get("key")
	assert.False(t, found)
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t)

	c.Set("key", "value", 10*time.Millisecond)
	c.Wait()
	time.Sleep(50 * time.Millisecond)

	_, found := c.Get("key")
	assert.False(t, found)
}
