// Package queue implements the delivery queue: a thread-safe priority
// queue of pending delivery jobs with predicate-based cancellation.
//
// Jobs dequeue in ascending priority order; ties break FIFO by submission
// sequence. Cancellation removes items from a live index in O(k) without
// rebuilding the heap — orphaned heap entries are skipped at pop time.
// Eligibility is never re-checked at pop time; Delete is the only way to
// retract a queued job.
package queue

import (
	"container/heap"
	"context"
	"sync"
)

// entry is one heap element. The job itself lives in the live index so
// that Delete never has to touch the heap.
type entry struct {
	prio int64
	seq  uint64
}

// entryHeap is a min-heap of entries ordered by (prio, seq).
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].prio != h[j].prio {
		return h[i].prio < h[j].prio
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)        { *h = append(*h, x.(entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Queue is the delivery queue shared by the fanout path and the delivery
// workers. All state is guarded by one mutex; a job is atomically present
// or absent, so no job can be both popped and later reported cancelled.
type Queue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	heap  entryHeap
	items map[uint64]*Job
	seq   uint64
}

// New creates an empty delivery queue.
func New() *Queue {
	q := &Queue{
		items: make(map[uint64]*Job),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue inserts a job with the given priority (lower dequeues first)
// and returns the assigned submission sequence.
func (q *Queue) Enqueue(prio int64, job *Job) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	job.Seq = q.seq
	q.items[job.Seq] = job
	heap.Push(&q.heap, entry{prio: prio, seq: job.Seq})

	q.cond.Signal()
	return job.Seq
}

// Dequeue blocks until a job is available or ctx is cancelled. Heap
// entries whose job was cancelled are skipped.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	// Wake any waiter when the context is cancelled.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		for q.heap.Len() > 0 {
			e := heap.Pop(&q.heap).(entry)
			job, live := q.items[e.seq]
			if !live {
				continue // cancelled while queued
			}
			delete(q.items, e.seq)
			return job, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.cond.Wait()
	}
}

// Delete removes every not-yet-popped job matching pred and returns how
// many were removed. Matching is O(n) over live jobs, removal O(1) each;
// the heap is left untouched and skips orphans on the next dequeue.
func (q *Queue) Delete(pred func(*Job) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for seq, job := range q.items {
		if pred(job) {
			delete(q.items, seq)
			removed++
		}
	}
	return removed
}

// Len returns the number of live (not cancelled, not popped) jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
