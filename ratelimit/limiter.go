// Package ratelimit bounds the outgoing request rate with a sliding window log.
package ratelimit

import (
	"sync"
	"time"

	"github.com/KoduruNani/Flipkart-2/apierr"
)

const (
	DefaultLimit    = 50
	DefaultInterval = time.Minute
)

// Limiter admits at most limit requests within any trailing interval.
// Timestamps are pruned lazily on each check, never by a background timer.
// It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	limit    int
	interval time.Duration
	window   []time.Time
	now      func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a limiter. Non-positive arguments fall back to the defaults.
func New(limit int, interval time.Duration, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	l := &Limiter{
		limit:    limit,
		interval: interval,
		window:   make([]time.Time, 0, limit),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckLimit records the current request, or fails with a rate limit error
// when the window is already at capacity. Rejected calls are not recorded.
func (l *Limiter) CheckLimit() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.window) >= l.limit {
		return apierr.RateLimited(l.limit)
	}
	l.window = append(l.window, now)
	return nil
}

// Len returns the number of requests in the current window.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.window)
}

// Limit returns the configured capacity.
func (l *Limiter) Limit() int { return l.limit }

// Interval returns the configured window length.
func (l *Limiter) Interval() time.Duration { return l.interval }

// prune drops timestamps that are interval or more in the past. The window is
// append-only in time order so expired entries are always a prefix.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.interval)
	i := 0
	for i < len(l.window) && !l.window[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(l.window, l.window[i:])
	l.window = l.window[:n]
}
