// Package infra provides shared infrastructure components used across
// the application: a clock-injected TTL cache, request rate limiting,
// and context-aware sleeping.
package infra

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Clock returns the current time. Tests substitute a fixed or stepping clock.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper. A non-positive d returns immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NewLimiter returns a token bucket allowing rps requests per second with a
// burst of the same size. A non-positive rps disables limiting.
func NewLimiter(rps int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), rps)
}
