// Package ratelimit paces outbound sends per recipient so the engine
// stays under the chat platform's per-chat budget instead of provoking
// rate-limit errors and burning retry attempts.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a per-recipient token bucket sharing one configured rate.
// Every recipient gets the same budget: the pacing target is the
// platform's per-chat limit, which does not vary by recipient.
type Limiter struct {
	rate float64 // sends per second; 0 disables pacing

	mu      sync.Mutex
	buckets map[int64]*bucket
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// New creates a limiter pacing each recipient to perSecond sends.
// A perSecond of 0 disables pacing entirely.
func New(perSecond int) *Limiter {
	return &Limiter{
		rate:    float64(perSecond),
		buckets: make(map[int64]*bucket),
	}
}

// Allow reports whether a send to the recipient may proceed now, and if
// so consumes one token.
func (l *Limiter) Allow(recipientID int64) bool {
	if l.rate <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[recipientID]
	if !ok {
		b = &bucket{tokens: l.rate, lastFill: time.Now()} // start full
		l.buckets[recipientID] = b
	}
	l.refill(b)

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Wait blocks until the recipient's budget allows the send or the
// context is cancelled.
func (l *Limiter) Wait(ctx context.Context, recipientID int64) error {
	if l.rate <= 0 {
		return nil
	}

	for {
		if l.Allow(recipientID) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(float64(time.Second) / l.rate)):
			// Try again after roughly one token's worth of time.
		}
	}
}

// Forget drops the recipient's bucket. Called when they leave so state
// for departed recipients does not accumulate; a returning recipient
// starts with a full bucket.
func (l *Limiter) Forget(recipientID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, recipientID)
}

// refill credits tokens for the time elapsed since the last fill,
// capped at one second's burst.
func (l *Limiter) refill(b *bucket) {
	now := time.Now()
	b.tokens += now.Sub(b.lastFill).Seconds() * l.rate
	if b.tokens > l.rate {
		b.tokens = l.rate
	}
	b.lastFill = now
}
