package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/lounge/transport"
)

func sendJob(msid, target int64) *Job {
	return NewSend(1, target, msid, 0, transport.Payload{Text: "hi"})
}

func TestDequeueOrdersByPriority(t *testing.T) {
	q := New()
	q.Enqueue(5, sendJob(1, 100))
	q.Enqueue(1, sendJob(2, 200))
	q.Enqueue(3, sendJob(3, 300))

	want := []int64{200, 300, 100}
	for _, target := range want {
		job, err := q.Dequeue(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if job.TargetID != target {
			t.Fatalf("expected target %d, got %d", target, job.TargetID)
		}
	}
}

func TestDequeueFIFOAmongEquals(t *testing.T) {
	q := New()
	for i := int64(1); i <= 3; i++ {
		q.Enqueue(7, sendJob(i, i*10))
	}

	for i := int64(1); i <= 3; i++ {
		job, _ := q.Dequeue(context.Background())
		if job.MSID != i {
			t.Fatalf("expected msid %d, got %d", i, job.MSID)
		}
	}
}

func TestDeleteBeforePop(t *testing.T) {
	q := New()
	q.Enqueue(1, sendJob(1, 100))
	q.Enqueue(2, sendJob(2, 200))
	q.Enqueue(3, sendJob(3, 100))

	removed := q.Delete(func(j *Job) bool { return j.TargetID == 100 })
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 live job, got %d", q.Len())
	}

	// The stale heap entries must be skipped, not returned.
	job, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if job.MSID != 2 {
		t.Fatalf("expected surviving msid 2, got %d", job.MSID)
	}
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := New()
	done := make(chan *Job, 1)
	go func() {
		job, _ := q.Dequeue(context.Background())
		done <- job
	}()

	select {
	case <-done:
		t.Fatal("Dequeue returned before any job was enqueued")
	case <-time.After(20 * time.Millisecond):
	}

	q.Enqueue(1, sendJob(9, 900))
	select {
	case job := <-done:
		if job.MSID != 9 {
			t.Fatalf("expected msid 9, got %d", job.MSID)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not wake after enqueue")
	}
}

func TestDequeueRespectsContext(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		errc <- err
	}()

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after cancellation")
	}
}
