package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter limits request rates per key. Keys are caller-defined,
// the REST middleware uses "ip:<addr>" and "user:<id>".
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// TokenBucketLimiter is an in-process token bucket limiter. It serves the
// memory and sqlite drivers where a single instance owns all traffic.
type TokenBucketLimiter struct {
	mu             sync.Mutex
	buckets        map[string]*bucket
	burst          int
	refillInterval time.Duration
	cleanupEvery   time.Duration
}

type bucket struct {
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

// NewTokenBucketLimiter creates a limiter that refills ratePerMinute tokens
// per minute up to burst tokens per key.
func NewTokenBucketLimiter(ratePerMinute, burst int) *TokenBucketLimiter {
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}
	if burst <= 0 {
		burst = ratePerMinute
	}

	limiter := &TokenBucketLimiter{
		buckets:        make(map[string]*bucket),
		burst:          burst,
		refillInterval: time.Minute / time.Duration(ratePerMinute),
		cleanupEvery:   5 * time.Minute,
	}

	go limiter.cleanup()

	return limiter
}

// Allow takes a token for the key, reporting false when the bucket is empty
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     l.burst,
			lastRefill: time.Now(),
		}
		l.buckets[key] = b
	}
	l.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	tokensToAdd := int(now.Sub(b.lastRefill) / l.refillInterval)
	if tokensToAdd > 0 {
		b.tokens = min(b.tokens+tokensToAdd, l.burst)
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}

	return false, nil
}

// Reset clears the bucket for a key
func (l *TokenBucketLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buckets, key)
	return nil
}

// cleanup evicts buckets that have been idle long enough to be full again
func (l *TokenBucketLimiter) cleanup() {
	ticker := time.NewTicker(l.cleanupEvery)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, b := range l.buckets {
			b.mu.Lock()
			idle := now.Sub(b.lastRefill)
			b.mu.Unlock()
			if idle > time.Hour {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

var _ RateLimiter = (*TokenBucketLimiter)(nil)
