package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces operations at a fixed minimum interval. The brokerage
// meters historical-data queries, so the acquisition loop throttles its
// per-day tick fetches through one of these.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewRateLimiter creates a RateLimiter allowing perMinute operations per
// minute. perMinute <= 0 disables throttling.
func NewRateLimiter(perMinute int) *RateLimiter {
	var interval time.Duration
	if perMinute > 0 {
		interval = time.Minute / time.Duration(perMinute)
	}
	return &RateLimiter{interval: interval}
}

// Wait blocks until the minimum interval since the previous permitted
// operation has elapsed, or the context is cancelled. The first call never
// blocks.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	next := rl.last.Add(rl.interval)
	if rl.last.IsZero() || !next.After(now) {
		rl.last = now
		rl.mu.Unlock()
		return nil
	}
	rl.last = next
	rl.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(next.Sub(now)):
		return nil
	}
}
