package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLimiter(rdb), mr
}

func TestRedisLimiterSlidingWindow(t *testing.T) {
	limiter, _ := newRedisLimiter(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	current := base
	limiter.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		limited, err := limiter.IsLimited(ctx, "license-heartbeat:1.1.1.1", 5, time.Minute)
		require.NoError(t, err)
		require.False(t, limited, "request %d", i+1)
		current = current.Add(time.Second)
	}

	limited, err := limiter.IsLimited(ctx, "license-heartbeat:1.1.1.1", 5, time.Minute)
	require.NoError(t, err)
	require.True(t, limited)

	other, err := limiter.IsLimited(ctx, "license-heartbeat:2.2.2.2", 5, time.Minute)
	require.NoError(t, err)
	require.False(t, other)

	// every earlier request has left the window
	current = base.Add(2 * time.Minute)
	limited, err = limiter.IsLimited(ctx, "license-heartbeat:1.1.1.1", 5, time.Minute)
	require.NoError(t, err)
	require.False(t, limited)
}

func TestRedisLimiterError(t *testing.T) {
	limiter, mr := newRedisLimiter(t)
	mr.Close()

	_, err := limiter.IsLimited(context.Background(), "k", 5, time.Minute)
	require.Error(t, err)
}

func TestMemoryLimiter(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	current := base
	limiter.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		limited, err := limiter.IsLimited(ctx, "ip", 5, time.Minute)
		require.NoError(t, err)
		require.False(t, limited)
	}

	limited, err := limiter.IsLimited(ctx, "ip", 5, time.Minute)
	require.NoError(t, err)
	require.True(t, limited)

	// all six hits sit exactly at base; one second past the window they expire
	current = base.Add(time.Minute + time.Second)
	limited, err = limiter.IsLimited(ctx, "ip", 5, time.Minute)
	require.NoError(t, err)
	require.False(t, limited)
}

func TestMemoryLimiterSlidingMinute(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	current := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	allowed := 0
	for i := 0; i < 60; i++ {
		limited, err := limiter.IsLimited(ctx, "license-heartbeat:1.1.1.1", 5, time.Minute)
		require.NoError(t, err)
		if !limited {
			allowed++
		}
		current = current.Add(time.Second)
	}
	require.Equal(t, 5, allowed)

	limited, err := limiter.IsLimited(ctx, "license-heartbeat:2.2.2.2", 5, time.Minute)
	require.NoError(t, err)
	require.False(t, limited)
}

func TestMemoryLimiterMatchesRedis(t *testing.T) {
	redisLimiter, _ := newRedisLimiter(t)
	memLimiter := NewMemoryLimiter()
	ctx := context.Background()

	current := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	redisLimiter.now = func() time.Time { return current }
	memLimiter.now = func() time.Time { return current }

	// bursts and pauses across several windows
	steps := []time.Duration{0, time.Second, time.Second, 20 * time.Second, 0, 0, 0, 30 * time.Second, 5 * time.Second, 0, 70 * time.Second, 0, 0}
	for i, step := range steps {
		current = current.Add(step)
		want, err := redisLimiter.IsLimited(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		got, err := memLimiter.IsLimited(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, got, "step %d", i)
	}
}
