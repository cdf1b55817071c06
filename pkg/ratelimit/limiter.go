package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// MultiLimiter manages multiple rate limiters for different services
type MultiLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter creates a new multi-limiter
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// AddLimiter adds a new rate limiter for a service
// requestsPerSecond: the rate limit (e.g., 10 means 10 requests per second)
// burst: maximum burst size
func (m *MultiLimiter) AddLimiter(name string, requestsPerSecond float64, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[name] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Wait blocks until the limiter allows an event
func (m *MultiLimiter) Wait(ctx context.Context, name string) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("limiter %s not found", name)
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (m *MultiLimiter) Allow(name string) bool {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return false
	}

	return limiter.Allow()
}

// Default rate limiter names
const (
	LimiterGoogleNews = "gnews"
	LimiterGDELT      = "gdelt"
	LimiterRSS        = "rss"
	LimiterSlack      = "slack"
)

// NewDefaultLimiter creates a limiter with default rate limits
func NewDefaultLimiter() *MultiLimiter {
	m := NewMultiLimiter()

	// Google News: one company feed per second, no burst. Keeps the
	// per-company query loop polite, matching the pacing the selection
	// cap assumes.
	m.AddLimiter(LimiterGoogleNews, 1, 1)

	// GDELT Doc 2.0: one query per company, 1 per second, burst 2
	m.AddLimiter(LimiterGDELT, 1, 2)

	// Plain RSS feeds: 1 per second, burst 10
	m.AddLimiter(LimiterRSS, 1, 10)

	// Slack incoming webhooks allow roughly 1 message per second
	m.AddLimiter(LimiterSlack, 1, 1)

	return m
}
