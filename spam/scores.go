// Package spam implements lightweight submission rate limiting: decaying
// per-submitter scores and per-action minimum intervals.
package spam

import "sync"

// Default score parameters.
const (
	// DefaultLimit is the score above which submissions are rejected.
	DefaultLimit = 3

	// DefaultLimitHit is the score a submitter is bumped to when they
	// cross the limit, extending the penalty.
	DefaultLimitHit = 6
)

// ScoreKeeper tracks decaying per-submitter scores. Every accepted
// submission increases the submitter's score; a scheduled Decay tick
// lowers all scores by one. A submitter whose score would cross the limit
// is rejected and penalized so the rejection outlasts the burst.
type ScoreKeeper struct {
	mu       sync.Mutex
	scores   map[int64]int
	limit    int
	limitHit int
}

// NewScoreKeeper creates a score keeper with the given limit and
// penalty score. Zero values select the defaults.
func NewScoreKeeper(limit, limitHit int) *ScoreKeeper {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limitHit <= limit {
		limitHit = DefaultLimitHit
	}
	return &ScoreKeeper{
		scores:   make(map[int64]int),
		limit:    limit,
		limitHit: limitHit,
	}
}

// Increase adds n to the submitter's score and reports whether the
// submission is allowed. Crossing the limit bumps the score to the
// penalty value.
func (k *ScoreKeeper) Increase(uid int64, n int) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	s := k.scores[uid]
	if s > k.limit {
		return false
	}
	if s+n > k.limit {
		k.scores[uid] = k.limitHit
		return s+n <= k.limitHit
	}
	k.scores[uid] = s + n
	return true
}

// Decay lowers every score by one and forgets submitters that reach zero.
// Wire it to the scheduler at the configured spam interval.
func (k *ScoreKeeper) Decay() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for uid, s := range k.scores {
		if s <= 1 {
			delete(k.scores, uid)
		} else {
			k.scores[uid] = s - 1
		}
	}
}

// Score returns the current score of a submitter.
func (k *ScoreKeeper) Score(uid int64) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.scores[uid]
}
