// Package ratelimit paces calls to external oracles (embedding and LLM
// providers) with a token bucket plus a backoff window after the
// provider reports rate limiting.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBackoff is used when a provider does not say when to retry.
const DefaultBackoff = 5 * time.Second

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained rate limit. Zero or less disables pacing.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// Limiter provides rate limiting for oracle requests.
// It uses a token bucket algorithm with a backoff for 429 responses.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// New creates a limiter with the given configuration.
func New(cfg Config) *Limiter {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by Backoff.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	now := l.now()
	l.mu.Unlock()

	if now.Before(retryAt) {
		timer := time.NewTimer(retryAt.Sub(now))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := l.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The limiter refuses early when the next token lands after the
		// deadline.
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return nil
}

// Backoff delays every subsequent request by d. Call this when a provider
// answers with HTTP 429. A non-positive d uses DefaultBackoff. An earlier
// deadline never shortens an existing window.
func (l *Limiter) Backoff(d time.Duration) {
	if d <= 0 {
		d = DefaultBackoff
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if until := l.now().Add(d); until.After(l.retryAt) {
		l.retryAt = until
	}
}
