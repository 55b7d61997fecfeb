package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/lounge/queue"
	"github.com/xraph/lounge/registry"
	"github.com/xraph/lounge/transport"
)

type sentCall struct {
	target  int64
	payload transport.Payload
}

// fakeTransport scripts per-call errors: sends consume errs in order, and
// succeed (returning sequential mids) once the script runs out.
type fakeTransport struct {
	mu      sync.Mutex
	errs    []error
	sent    []sentCall
	deleted []transport.MessageID
	nextMID transport.MessageID
}

func (f *fakeTransport) Send(_ context.Context, target int64, payload transport.Payload) (transport.MessageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return 0, err
		}
	}
	f.sent = append(f.sent, sentCall{target: target, payload: payload})
	f.nextMID++
	return f.nextMID, nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, _ int64, mid transport.MessageID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.deleted = append(f.deleted, mid)
	return nil
}

func (f *fakeTransport) Probe(context.Context, int64) error { return nil }

func (f *fakeTransport) sends() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentCall(nil), f.sent...)
}

type recordingLeaver struct {
	mu   sync.Mutex
	left []int64
}

func (r *recordingLeaver) ForceLeave(_ context.Context, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.left = append(r.left, id)
}

func newTestEngine(tp transport.Transport, leaver LeaveEnforcer, cfg EngineConfig) (*Engine, *registry.Registry) {
	reg := registry.New(registry.DefaultTTL)
	e := NewEngine(queue.New(), reg, tp, leaver, cfg, nil)
	return e, reg
}

func TestForgetRecipientClearsPacing(t *testing.T) {
	e, _ := newTestEngine(&fakeTransport{}, nil, EngineConfig{SendRate: 1})

	if !e.limiter.Allow(7) {
		t.Fatal("first send should be within budget")
	}
	if e.limiter.Allow(7) {
		t.Fatal("second immediate send should be paced")
	}

	e.ForgetRecipient(7)
	if !e.limiter.Allow(7) {
		t.Fatal("a departed recipient's pacing state should be gone")
	}
}

func TestSendRecordsMapping(t *testing.T) {
	ft := &fakeTransport{}
	e, reg := newTestEngine(ft, nil, EngineConfig{})

	job := queue.NewSend(1, 42, 100, 0, transport.Payload{Text: "hello"})
	attempts, outcome := e.send(context.Background(), job)

	if attempts != 1 || outcome != "delivered" {
		t.Fatalf("expected 1 attempt delivered, got %d %q", attempts, outcome)
	}
	mid, ok := reg.MappingFor(100, 42)
	if !ok || mid != 1 {
		t.Fatalf("expected mapping 100/42 -> 1, got %d %v", mid, ok)
	}
}

func TestSendRetriesInPlace(t *testing.T) {
	ft := &fakeTransport{errs: []error{
		&transport.RateLimitedError{RetryAfter: 5 * time.Second},
		&transport.RateLimitedError{RetryAfter: 2 * time.Second},
	}}
	e, reg := newTestEngine(ft, nil, EngineConfig{MaxAttempts: 8})

	var waits []time.Duration
	e.sleep = func(_ context.Context, d time.Duration) { waits = append(waits, d) }

	job := queue.NewSend(1, 42, 100, 0, transport.Payload{Text: "hello"})
	attempts, outcome := e.send(context.Background(), job)

	if attempts != 3 || outcome != "delivered" {
		t.Fatalf("expected delivery on third attempt, got %d %q", attempts, outcome)
	}
	if len(waits) != 2 || waits[0] != 5*time.Second || waits[1] != 2*time.Second {
		t.Fatalf("expected server-indicated waits, got %v", waits)
	}
	if _, ok := reg.MappingFor(100, 42); !ok {
		t.Fatal("expected mapping after eventual delivery")
	}
}

func TestSendGivesUpAfterMaxAttempts(t *testing.T) {
	ft := &fakeTransport{errs: []error{
		&transport.RateLimitedError{RetryAfter: time.Second},
		&transport.RateLimitedError{RetryAfter: time.Second},
		&transport.RateLimitedError{RetryAfter: time.Second},
	}}
	e, reg := newTestEngine(ft, nil, EngineConfig{MaxAttempts: 3})
	e.sleep = func(context.Context, time.Duration) {}

	job := queue.NewSend(1, 42, 100, 0, transport.Payload{Text: "hello"})
	attempts, outcome := e.send(context.Background(), job)

	if attempts != 3 || outcome != "failed" {
		t.Fatalf("expected failure after 3 attempts, got %d %q", attempts, outcome)
	}
	if _, ok := reg.MappingFor(100, 42); ok {
		t.Fatal("failed delivery must not record a mapping")
	}
}

func TestSendUnreachableForcesLeave(t *testing.T) {
	ft := &fakeTransport{errs: []error{transport.ErrRecipientUnreachable}}
	leaver := &recordingLeaver{}
	e, reg := newTestEngine(ft, leaver, EngineConfig{})

	job := queue.NewSend(1, 42, 100, 0, transport.Payload{Text: "hello"})
	attempts, outcome := e.send(context.Background(), job)

	if attempts != 1 || outcome != "unreachable" {
		t.Fatalf("expected unreachable on first attempt, got %d %q", attempts, outcome)
	}
	if len(leaver.left) != 1 || leaver.left[0] != 42 {
		t.Fatalf("expected forced leave of 42, got %v", leaver.left)
	}
	if _, ok := reg.MappingFor(100, 42); ok {
		t.Fatal("unreachable recipient must not get a mapping")
	}
}

func TestSendDropsOnUnclassifiedError(t *testing.T) {
	ft := &fakeTransport{errs: []error{errors.New("wire exploded")}}
	leaver := &recordingLeaver{}
	e, _ := newTestEngine(ft, leaver, EngineConfig{})

	job := queue.NewSend(1, 42, 100, 0, transport.Payload{Text: "hello"})
	attempts, outcome := e.send(context.Background(), job)

	if attempts != 1 || outcome != "failed" {
		t.Fatalf("expected single failed attempt, got %d %q", attempts, outcome)
	}
	if len(leaver.left) != 0 {
		t.Fatal("unclassified errors must not force a leave")
	}
}

func TestSendResolvesReplyMapping(t *testing.T) {
	ft := &fakeTransport{}
	e, reg := newTestEngine(ft, nil, EngineConfig{})
	reg.RecordMapping(10, 42, 555)

	job := queue.NewSend(1, 42, 100, 10, transport.Payload{Text: "a reply"})
	if _, outcome := e.send(context.Background(), job); outcome != "delivered" {
		t.Fatalf("expected delivery, got %q", outcome)
	}

	sent := ft.sends()
	if len(sent) != 1 || sent[0].payload.ReplyTo != 555 {
		t.Fatalf("expected reply retargeted onto mid 555, got %+v", sent)
	}
}

func TestSendDeliversUnthreadedWhenMappingGone(t *testing.T) {
	ft := &fakeTransport{}
	e, _ := newTestEngine(ft, nil, EngineConfig{})

	job := queue.NewSend(1, 42, 100, 10, transport.Payload{Text: "a reply"})
	if _, outcome := e.send(context.Background(), job); outcome != "delivered" {
		t.Fatalf("expected delivery, got %q", outcome)
	}

	sent := ft.sends()
	if len(sent) != 1 || sent[0].payload.ReplyTo != 0 {
		t.Fatalf("expected unthreaded delivery, got %+v", sent)
	}
}

func TestDeleteRetriesOnRateLimit(t *testing.T) {
	ft := &fakeTransport{errs: []error{&transport.RateLimitedError{RetryAfter: time.Second}}}
	e, _ := newTestEngine(ft, nil, EngineConfig{MaxAttempts: 8})
	e.sleep = func(context.Context, time.Duration) {}

	job := queue.NewDelete(42, 100, 777)
	attempts, outcome := e.delete(context.Background(), job)

	if attempts != 2 || outcome != "deleted" {
		t.Fatalf("expected delete on second attempt, got %d %q", attempts, outcome)
	}
	if len(ft.deleted) != 1 || ft.deleted[0] != 777 {
		t.Fatalf("expected delete of mid 777, got %v", ft.deleted)
	}
}

func TestEngineDrainsQueue(t *testing.T) {
	ft := &fakeTransport{}
	reg := registry.New(registry.DefaultTTL)
	q := queue.New()
	e := NewEngine(q, reg, ft, nil, EngineConfig{Workers: 2}, nil)

	q.Enqueue(1, queue.NewSend(1, 201, 100, 0, transport.Payload{Text: "one"}))
	q.Enqueue(2, queue.NewSend(1, 202, 100, 0, transport.Payload{Text: "two"}))

	e.Start(context.Background())
	defer e.Stop(context.Background())

	deadline := time.After(2 * time.Second)
	for {
		if len(ft.sends()) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("workers did not drain the queue, sent %d", len(ft.sends()))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRetrierDecisionMatrix(t *testing.T) {
	r := NewRetrier(3, 30*time.Second)

	rl := &transport.RateLimitedError{RetryAfter: time.Second}
	if d := r.Decide(rl, 1); d != Retry {
		t.Fatalf("rate limit under budget should Retry, got %d", d)
	}
	if d := r.Decide(rl, 3); d != Drop {
		t.Fatalf("rate limit at budget should Drop, got %d", d)
	}
	if d := r.Decide(transport.ErrRecipientUnreachable, 1); d != DropUnreachable {
		t.Fatalf("unreachable should DropUnreachable, got %d", d)
	}
	if d := r.Decide(errors.New("other"), 1); d != Drop {
		t.Fatalf("unclassified should Drop, got %d", d)
	}
}

func TestRetrierBackoffClamped(t *testing.T) {
	r := NewRetrier(8, 30*time.Second)

	if got := r.Backoff(&transport.RateLimitedError{RetryAfter: 900 * time.Second}); got != 30*time.Second {
		t.Fatalf("expected clamp to 30s, got %s", got)
	}
	if got := r.Backoff(&transport.RateLimitedError{RetryAfter: 5 * time.Second}); got != 5*time.Second {
		t.Fatalf("expected server-indicated 5s, got %s", got)
	}
	if got := r.Backoff(&transport.RateLimitedError{}); got != time.Second {
		t.Fatalf("expected one-second floor, got %s", got)
	}
}
