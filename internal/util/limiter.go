package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter to provide a simpler interface.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a new token bucket limiter.
// r: tokens per second, r <= 0 disables limiting.
// b: burst size.
func NewLimiter(r float64, b int) *Limiter {
	if b < 1 {
		b = 1
	}
	limit := rate.Limit(r)
	if r <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		inner: rate.NewLimiter(limit, b),
	}
}

// Allow reports whether an event with weight n may happen now.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}
