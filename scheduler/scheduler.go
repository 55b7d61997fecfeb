// Package scheduler provides a cooperative one-shot/periodic deferred-task
// runner.
//
// The run loop is a single goroutine: due tasks execute sequentially, so a
// slow task delays the next. Tasks must be short or re-register themselves.
// A task panic is recovered and logged at the loop boundary and never stops
// the loop.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/lounge/id"
)

// ErrDuplicateTask is returned when registering a named task whose name is
// already live. Names are unique so that ByName is unambiguous.
var ErrDuplicateTask = errors.New("scheduler: task name already registered")

// Task is one scheduled unit of work. Its payload is mutable through
// MutatePayload so callers can batch data into a pending task.
type Task struct {
	ID       id.ID
	Name     string
	Interval time.Duration // zero means one-shot

	mu       sync.Mutex
	action   func(payload any)
	payload  any
	nextFire time.Time
}

// Payload returns the task's current payload.
func (t *Task) Payload() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.payload
}

// MutatePayload applies fn to the payload under the task's lock and stores
// the result. Used for appending to a batching task while it is pending.
func (t *Task) MutatePayload(fn func(any) any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.payload = fn(t.payload)
}

// takePayload returns the payload and clears it, so a firing batch task
// consumes exactly what accumulated before the fire.
func (t *Task) takePayload() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.payload
	t.payload = nil
	return p
}

// Options configures task registration.
type Options struct {
	// Name optionally keys the task for ByName lookup and mutation.
	Name string

	// Interval makes the task periodic; zero registers a one-shot task.
	Interval time.Duration

	// FirstRunDelay defers the first fire. Defaults to Interval for
	// periodic tasks and to one second for one-shot tasks.
	FirstRunDelay time.Duration

	// Payload seeds the task's mutable payload.
	Payload any
}

// Scheduler runs registered tasks at their due times on one goroutine.
type Scheduler struct {
	mu      sync.Mutex
	tasks   []*Task
	byName  map[string]*Task
	wake    chan struct{}
	logger  *slog.Logger
	nowFunc func() time.Time
}

// New creates a scheduler. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		byName:  make(map[string]*Task),
		wake:    make(chan struct{}, 1),
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Register adds a task. Named tasks must be unique; a duplicate name
// returns ErrDuplicateTask. The returned task can be mutated while pending.
func (s *Scheduler) Register(action func(payload any), opts Options) (*Task, error) {
	delay := opts.FirstRunDelay
	if delay <= 0 {
		if opts.Interval > 0 {
			delay = opts.Interval
		} else {
			delay = time.Second
		}
	}

	t := &Task{
		ID:       id.NewTaskID(),
		Name:     opts.Name,
		Interval: opts.Interval,
		action:   action,
		payload:  opts.Payload,
		nextFire: s.nowFunc().Add(delay),
	}

	s.mu.Lock()
	if t.Name != "" {
		if _, exists := s.byName[t.Name]; exists {
			s.mu.Unlock()
			return nil, ErrDuplicateTask
		}
		s.byName[t.Name] = t
	}
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()

	s.poke()
	return t, nil
}

// ByName returns the live task with the given name, or nil.
func (s *Scheduler) ByName(name string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byName[name]
}

// Run executes the scheduler loop until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		due, wait := s.collectDue()

		for _, t := range due {
			s.fire(t)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// idleWait is the sleep used when no tasks are registered.
const idleWait = time.Second

// collectDue removes due one-shot tasks, reschedules due periodic tasks
// and returns the tasks to fire plus the delay until the next due task.
func (s *Scheduler) collectDue() (due []*Task, wait time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	wait = idleWait

	kept := s.tasks[:0]
	for _, t := range s.tasks {
		t.mu.Lock()
		fire := !t.nextFire.After(now)
		if fire {
			due = append(due, t)
			if t.Interval > 0 {
				t.nextFire = now.Add(t.Interval)
			}
		}
		next := t.nextFire
		t.mu.Unlock()

		if fire && t.Interval == 0 {
			if t.Name != "" {
				delete(s.byName, t.Name)
			}
			continue
		}
		kept = append(kept, t)

		if d := next.Sub(now); d < wait {
			wait = d
		}
	}
	s.tasks = kept

	if wait < 0 {
		wait = 0
	}
	return due, wait
}

// fire runs one task, recovering panics at the loop boundary.
func (s *Scheduler) fire(t *Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked",
				"task_id", t.ID, "task", t.Name, "panic", r)
		}
	}()
	t.action(t.takePayload())
}

// poke wakes the run loop after a registration so short first-run delays
// are honored.
func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
