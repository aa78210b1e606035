package antrian

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a global token bucket applied to every dispatch, retries
// included. It complements the per-class Throttler.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows rps dispatches per second with the given burst. A
// non-positive burst is raised to 1.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a dispatch is permitted or ctx is done. When ctx is
// done it returns the context cause. When the next token lies beyond the
// ctx deadline it returns ErrRateLimitDeadline without waiting.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	if err := rl.limiter.Wait(ctx); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return cause
		}
		return ErrRateLimitDeadline
	}
	return nil
}

// Allow reports whether a dispatch may happen now, consuming a token if so.
func (rl *RateLimiter) Allow() bool {
	if rl == nil {
		return true
	}
	return rl.limiter.Allow()
}

// Tokens returns the tokens currently available.
func (rl *RateLimiter) Tokens() float64 {
	if rl == nil {
		return 0
	}
	return rl.limiter.Tokens()
}
