// Package ratelimit provides per-subscription token bucket limiting for
// outbound deliveries.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter tracks one token bucket per subscription. Buckets are created
// lazily on first use and refill continuously at the subscription's
// configured rate.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens   float64
	lastFill time.Time
	rate     float64 // tokens per second, also the burst size
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{buckets: make(map[string]*bucket)}
}

// Allow reports whether a delivery to the subscription may proceed now.
// A rate of 0 or below means unlimited.
func (l *Limiter) Allow(subscriptionID string, rate int) bool {
	if rate <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.bucket(subscriptionID, float64(rate))
	b.refill()

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or the context ends. A rate of 0
// or below returns immediately.
func (l *Limiter) Wait(ctx context.Context, subscriptionID string, rate int) error {
	if rate <= 0 {
		return nil
	}

	for {
		if l.Allow(subscriptionID, rate) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(float64(time.Second) / float64(rate))):
		}
	}
}

// Forget drops the bucket for a subscription, typically after it is deleted.
func (l *Limiter) Forget(subscriptionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, subscriptionID)
}

func (l *Limiter) bucket(subscriptionID string, rate float64) *bucket {
	b, ok := l.buckets[subscriptionID]
	if !ok {
		b = &bucket{
			tokens:   rate,
			lastFill: time.Now(),
			rate:     rate,
		}
		l.buckets[subscriptionID] = b
	}
	return b
}

func (b *bucket) refill() {
	now := time.Now()
	b.tokens += now.Sub(b.lastFill).Seconds() * b.rate
	if b.tokens > b.rate {
		b.tokens = b.rate
	}
	b.lastFill = now
}
