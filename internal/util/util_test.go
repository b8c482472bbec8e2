package util

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "text")

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNewLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "json")
	logger.Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestRateLimiterFirstCallImmediate(t *testing.T) {
	rl := NewRateLimiter(60)
	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiterUnlimited(t *testing.T) {
	rl := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, rl.Wait(context.Background()))
	}
}

func TestRateLimiterCancelled(t *testing.T) {
	rl := NewRateLimiter(1) // one per minute
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.Canceled)
}

func TestWeekStart(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		// Thursday → preceding Monday.
		{time.Date(2025, 11, 20, 13, 30, 0, 0, time.UTC), time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC)},
		// Monday maps to itself.
		{time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC), time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC)},
		// Sunday belongs to the preceding Monday's week.
		{time.Date(2025, 11, 23, 23, 59, 0, 0, time.UTC), time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, WeekStart(c.in), "in=%s", c.in)
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	b := time.Date(2025, 11, 12, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, 9, DaysBetween(a, b))
	assert.Equal(t, -9, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}
