package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBurstThenRefill(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := NewMemory(Config{Burst: 3, PerMinute: 60})
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := m.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "attempt %d", i+1)
	}

	d, err := m.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.InDelta(t, time.Second, d.RetryAfter, float64(10*time.Millisecond))

	other, err := m.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")

	now = now.Add(time.Second)
	d, err = m.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "one token refilled after a second")
}

func TestMemorySweepsIdleKeys(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := NewMemory(Config{Burst: 1})
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = m.Allow(ctx, "stale")
	now = now.Add(idleTTL + time.Minute)
	for i := 0; i < sweepEvery; i++ {
		_, _ = m.Allow(ctx, "fresh")
	}
	assert.Equal(t, 1, m.Len())
}

func newRedisLimiter(t *testing.T, perMinute int) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, Config{Burst: perMinute, PerMinute: perMinute}, "test"), mr
}

func TestRedisFixedWindow(t *testing.T) {
	rl, mr := newRedisLimiter(t, 2)
	ctx := context.Background()

	d, err := rl.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, err = rl.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = rl.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)

	mr.FastForward(time.Minute + time.Second)

	d, err = rl.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "window resets after expiry")
	require.NoError(t, rl.Ping(ctx))
}

func TestRedisFailsOpen(t *testing.T) {
	rl, mr := newRedisLimiter(t, 1)
	mr.Close()

	d, err := rl.Allow(context.Background(), "ip:1")
	assert.Error(t, err)
	assert.True(t, d.Allowed)
}
