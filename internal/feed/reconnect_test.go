package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testReconnectManager() *ReconnectManager {
	return NewReconnectManager(ReconnectConfig{
		InitialDelay:      time.Millisecond,
		MaxDelay:          8 * time.Millisecond,
		BackoffMultiplier: 2.0,
		JitterPercent:     0,
	}, zap.NewNop())
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	rm := testReconnectManager()

	assert.Equal(t, time.Millisecond, rm.nextBackoff())
	rm.incrementBackoff()
	assert.Equal(t, 2*time.Millisecond, rm.nextBackoff())
	rm.incrementBackoff()
	assert.Equal(t, 4*time.Millisecond, rm.nextBackoff())
	rm.incrementBackoff()
	rm.incrementBackoff()
	rm.incrementBackoff()
	assert.Equal(t, 8*time.Millisecond, rm.nextBackoff())

	rm.Reset()
	assert.Equal(t, time.Millisecond, rm.nextBackoff())
}

func TestReconnectRetriesUntilSuccess(t *testing.T) {
	rm := testReconnectManager()

	attempts := 0
	err := rm.Reconnect(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	// Success resets the backoff.
	assert.Equal(t, time.Millisecond, rm.nextBackoff())
}

func TestReconnectStopsOnContextCancel(t *testing.T) {
	rm := testReconnectManager()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rm.Reconnect(ctx, func(ctx context.Context) error {
		return errors.New("never succeeds")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
