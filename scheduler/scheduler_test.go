package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func runScheduler(t *testing.T, s *Scheduler) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestOneShotFiresOnceWithPayload(t *testing.T) {
	s := New(nil)
	got := make(chan any, 2)

	_, err := s.Register(func(payload any) {
		got <- payload
	}, Options{FirstRunDelay: 10 * time.Millisecond, Payload: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	runScheduler(t, s)

	select {
	case p := <-got:
		if p != "hello" {
			t.Fatalf("expected payload %q, got %v", "hello", p)
		}
	case <-time.After(time.Second):
		t.Fatal("one-shot task never fired")
	}

	select {
	case <-got:
		t.Fatal("one-shot task fired twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPeriodicReschedules(t *testing.T) {
	s := New(nil)
	var fired atomic.Int32

	_, err := s.Register(func(any) {
		fired.Add(1)
	}, Options{Interval: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	runScheduler(t, s)

	deadline := time.Now().Add(time.Second)
	for fired.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("periodic task fired %d times, expected at least 3", fired.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDuplicateNameRejected(t *testing.T) {
	s := New(nil)
	if _, err := s.Register(func(any) {}, Options{Name: "sweep", Interval: time.Hour}); err != nil {
		t.Fatal(err)
	}
	_, err := s.Register(func(any) {}, Options{Name: "sweep", Interval: time.Hour})
	if !errors.Is(err, ErrDuplicateTask) {
		t.Fatalf("expected ErrDuplicateTask, got %v", err)
	}
}

func TestByNameAndPayloadMutation(t *testing.T) {
	s := New(nil)
	got := make(chan any, 1)

	_, err := s.Register(func(payload any) {
		got <- payload
	}, Options{Name: "batch", FirstRunDelay: 50 * time.Millisecond, Payload: []int{1}})
	if err != nil {
		t.Fatal(err)
	}

	task := s.ByName("batch")
	if task == nil {
		t.Fatal("ByName should find the pending task")
	}
	task.MutatePayload(func(p any) any {
		return append(p.([]int), 2, 3)
	})

	runScheduler(t, s)
	select {
	case p := <-got:
		items := p.([]int)
		if len(items) != 3 {
			t.Fatalf("expected batched payload of 3, got %v", items)
		}
	case <-time.After(time.Second):
		t.Fatal("batch task never fired")
	}

	// A fired one-shot leaves the name free again.
	deadline := time.Now().Add(time.Second)
	for s.ByName("batch") != nil {
		if time.Now().After(deadline) {
			t.Fatal("fired one-shot still registered by name")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPanicDoesNotStopLoop(t *testing.T) {
	s := New(nil)
	fired := make(chan struct{}, 1)

	if _, err := s.Register(func(any) {
		panic("boom")
	}, Options{FirstRunDelay: 5 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Register(func(any) {
		fired <- struct{}{}
	}, Options{FirstRunDelay: 20 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}
	runScheduler(t, s)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("loop died after a task panic")
	}
}
