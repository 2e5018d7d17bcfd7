package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket bounding outbound calls for one provider
// client. The bucket holds up to Capacity tokens and refills at Refill
// tokens per second; each permitted call consumes one token. Each remote
// source owns its own Limiter, since limits are provider-specific.
type Limiter struct {
	bucket *rate.Limiter
}

// New constructs a Limiter with the given capacity and refill rate.
// The bucket starts full, so an initial burst of up to capacity calls
// proceeds without waiting.
func New(capacity int, refillPerSecond float64) *Limiter {
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(refillPerSecond), capacity)}
}

// Acquire blocks until a token is available, then consumes it. It returns
// early with the context's error if ctx is cancelled or its deadline would
// pass before a token becomes available.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("acquiring rate limit token: %w", err)
	}
	return nil
}

// TryAcquire consumes a token if one is available without blocking.
func (l *Limiter) TryAcquire() bool {
	return l.bucket.Allow()
}
