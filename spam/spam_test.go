package spam

import (
	"testing"
	"time"
)

func TestScoreKeeperLimits(t *testing.T) {
	k := NewScoreKeeper(3, 6)

	for i := 0; i < 3; i++ {
		if !k.Increase(1, 1) {
			t.Fatalf("submission %d should be allowed", i+1)
		}
	}
	// Crossing the limit rejects and bumps to the penalty score.
	if k.Increase(1, 1) {
		t.Fatal("submission over the limit should be rejected")
	}
	if k.Score(1) != 6 {
		t.Fatalf("expected penalty score 6, got %d", k.Score(1))
	}
	if k.Increase(1, 1) {
		t.Fatal("penalized submitter should stay rejected")
	}
}

func TestScoreKeeperDecay(t *testing.T) {
	k := NewScoreKeeper(3, 6)
	k.Increase(1, 2)

	k.Decay()
	if k.Score(1) != 1 {
		t.Fatalf("expected score 1 after decay, got %d", k.Score(1))
	}
	k.Decay()
	if k.Score(1) != 0 {
		t.Fatalf("expected score forgotten, got %d", k.Score(1))
	}
}

func TestScoreKeeperIsolatesSubmitters(t *testing.T) {
	k := NewScoreKeeper(3, 6)
	k.Increase(1, 3)
	if !k.Increase(2, 1) {
		t.Fatal("another submitter should be unaffected")
	}
}

func TestThrottleInterval(t *testing.T) {
	tr := NewThrottle(time.Hour)

	if !tr.Allow(1) {
		t.Fatal("first use should be allowed")
	}
	if tr.Allow(1) {
		t.Fatal("second use inside the interval should be denied")
	}
	if !tr.Allow(2) {
		t.Fatal("other participants should be unaffected")
	}
}

func TestThrottleDisabled(t *testing.T) {
	tr := NewThrottle(0)
	for i := 0; i < 10; i++ {
		if !tr.Allow(1) {
			t.Fatal("disabled throttle should always allow")
		}
	}
}

func TestThrottleAllowsAfterInterval(t *testing.T) {
	tr := NewThrottle(time.Hour)
	base := time.Now()
	tr.now = func() time.Time { return base }

	tr.Allow(1)
	tr.now = func() time.Time { return base.Add(2 * time.Hour) }
	if !tr.Allow(1) {
		t.Fatal("use after the interval should be allowed")
	}
}
