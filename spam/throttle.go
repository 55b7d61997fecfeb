package spam

import (
	"sync"
	"time"
)

// Throttle enforces a minimum interval between uses of one action per
// participant (message signing, upvoting, downvoting).
type Throttle struct {
	mu       sync.Mutex
	lastUsed map[int64]time.Time
	interval time.Duration
	now      func() time.Time
}

// NewThrottle creates a throttle with the given minimum interval.
// Intervals of one second or less disable the throttle entirely.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		lastUsed: make(map[int64]time.Time),
		interval: interval,
		now:      time.Now,
	}
}

// Allow reports whether the participant may use the action now, and if so
// records the use.
func (t *Throttle) Allow(uid int64) bool {
	if t.interval <= time.Second {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.lastUsed[uid]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastUsed[uid] = now
	return true
}
