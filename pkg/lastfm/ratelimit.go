package lastfm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket gating every request a Client makes.
//
// Tokens refill continuously from elapsed wall-clock time rather than on a
// timer, so there is no background goroutine. When the bucket is empty a
// caller waits exactly (1 - tokens) / rate for the next token, which bounds
// the latency any single caller pays to one refill period.
//
// The bucket is scoped to one Client. Concurrent callers sharing a Client
// contend for the same tokens.
type RateLimiter struct {
	lim *rate.Limiter
}

// NewRateLimiter creates a bucket holding up to capacity tokens that refills
// at perSecond tokens per second. The bucket starts full.
func NewRateLimiter(perSecond float64, capacity int) *RateLimiter {
	return &RateLimiter{
		lim: rate.NewLimiter(rate.Limit(perSecond), capacity),
	}
}

// Acquire takes one token, sleeping until one is available. Returns an
// error if ctx is cancelled first or its deadline cannot be met.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	if err := r.lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// Reserve takes one token as of now and returns how long the caller must
// wait before using it. A zero duration means a token was available.
func (r *RateLimiter) Reserve(now time.Time) time.Duration {
	return r.lim.ReserveN(now, 1).DelayFrom(now)
}

// Tokens returns the number of tokens available at now.
func (r *RateLimiter) Tokens(now time.Time) float64 {
	return r.lim.TokensAt(now)
}

// Capacity returns the bucket size.
func (r *RateLimiter) Capacity() int {
	return r.lim.Burst()
}
