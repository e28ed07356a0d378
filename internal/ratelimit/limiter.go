// Package ratelimit throttles outgoing API requests with a token bucket.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/drivemanager/drivectl/internal/constants"
)

// RateLimiter wraps a token bucket and warns when callers have to wait long.
// It allows bursts up to burst requests, then refills at perSecond tokens/second.
type RateLimiter struct {
	limiter      *rate.Limiter
	lastWarnTime time.Time
	mu           sync.Mutex
}

// NewRateLimiter creates a new rate limiter.
// A non-positive perSecond disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	r := rl.limiter.Reserve()
	if !r.OK() {
		return rl.limiter.Wait(ctx)
	}

	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	rl.warn(delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// warn logs at most once per ThrottleWarnInterval for waits over a second.
func (rl *RateLimiter) warn(delay time.Duration) {
	if delay < time.Second {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastWarnTime) < constants.ThrottleWarnInterval {
		return
	}
	rl.lastWarnTime = time.Now()
	log.Warn().Dur("wait", delay).Msg("Rate limited: waiting for API capacity")
}
