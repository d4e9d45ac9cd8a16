package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepEvery = 1024

// MemoryLimiter is a per-process sliding window log for single node
// deployments. Like RedisLimiter it records denied calls too, so a client
// that keeps hammering stays limited.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	calls   int
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) IsLimited(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(now, window)
	}

	hits := append(prune(l.entries[key], now.Add(-window)), now)
	// only the newest limit+1 hits can decide the outcome
	if len(hits) > limit+1 {
		hits = append(hits[:0], hits[len(hits)-limit-1:]...)
	}
	l.entries[key] = hits

	return len(hits) > limit, nil
}

// prune drops hits strictly older than cutoff, matching the redis ZSET trim.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && hits[i].Before(cutoff) {
		i++
	}
	return hits[i:]
}

func (l *MemoryLimiter) sweep(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	for key, hits := range l.entries {
		if len(hits) == 0 || hits[len(hits)-1].Before(cutoff) {
			delete(l.entries, key)
		}
	}
}
