package delivery

import (
	"errors"
	"time"

	"github.com/xraph/lounge/transport"
)

// Decision is the outcome of evaluating a failed delivery attempt.
type Decision int

const (
	// Retry means the same job should be retried in place after a
	// backoff. The job is never re-enqueued, to avoid reordering or
	// duplication.
	Retry Decision = iota

	// DropUnreachable means the recipient is permanently gone: mark
	// them left and drop the job without recording a mapping.
	DropUnreachable

	// Drop means an unclassified failure: log and drop the job.
	Drop
)

// DefaultMaxAttempts bounds rate-limit retries per job.
const DefaultMaxAttempts = 8

// DefaultMaxBackoff caps each rate-limit wait. The transport sometimes
// reports absurd retry-after values (hundreds or thousands of seconds);
// those are clamped here.
const DefaultMaxBackoff = 30 * time.Second

// Retrier decides what to do with a job after a failed attempt.
type Retrier struct {
	maxAttempts int
	maxBackoff  time.Duration
}

// NewRetrier creates a retrier. Zero values select the defaults.
func NewRetrier(maxAttempts int, maxBackoff time.Duration) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoff
	}
	return &Retrier{maxAttempts: maxAttempts, maxBackoff: maxBackoff}
}

// Decide classifies err after the given attempt count.
//
// Decision matrix:
//   - RateLimitedError → Retry while attempts remain, else Drop
//   - ErrRecipientUnreachable → DropUnreachable, never retried
//   - anything else → Drop
func (r *Retrier) Decide(err error, attempt int) Decision {
	var rl *transport.RateLimitedError
	switch {
	case errors.As(err, &rl):
		if attempt < r.maxAttempts {
			return Retry
		}
		return Drop
	case errors.Is(err, transport.ErrRecipientUnreachable):
		return DropUnreachable
	default:
		return Drop
	}
}

// Backoff returns the wait before the next attempt: the server-indicated
// retry-after, clamped to the configured cap and floored at one second.
func (r *Retrier) Backoff(err error) time.Duration {
	var rl *transport.RateLimitedError
	d := time.Second
	if errors.As(err, &rl) && rl.RetryAfter > d {
		d = rl.RetryAfter
	}
	if d > r.maxBackoff {
		d = r.maxBackoff
	}
	return d
}
