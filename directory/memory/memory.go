// Package memory provides an in-memory Directory implementation for unit
// testing and single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/lounge/directory"
)

// compile-time interface check.
var _ directory.Directory = (*Directory)(nil)

// Directory is an in-memory implementation of directory.Directory.
type Directory struct {
	mu      sync.RWMutex
	records map[int64]*record
}

// record pairs a participant with its per-record lock so Modify can run
// read-modify-write cycles without holding the map lock.
type record struct {
	mu sync.Mutex
	p  directory.Participant
}

// New creates a new in-memory directory.
func New() *Directory {
	return &Directory{
		records: make(map[int64]*record),
	}
}

// Get returns a copy of the participant with the given id.
func (d *Directory) Get(_ context.Context, id int64) (*directory.Participant, error) {
	d.mu.RLock()
	rec, ok := d.records[id]
	d.mu.RUnlock()
	if !ok {
		return nil, directory.ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	p := rec.p
	return &p, nil
}

// All returns a snapshot of every participant, ordered by id for
// deterministic iteration.
func (d *Directory) All(_ context.Context) ([]*directory.Participant, error) {
	d.mu.RLock()
	recs := make([]*record, 0, len(d.records))
	for _, rec := range d.records {
		recs = append(recs, rec)
	}
	d.mu.RUnlock()

	out := make([]*directory.Participant, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		p := rec.p
		rec.mu.Unlock()
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Add inserts a new participant record.
func (d *Directory) Add(_ context.Context, p *directory.Participant) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[p.ID] = &record{p: *p}
	return nil
}

// Modify applies fn to the participant under its per-record lock.
func (d *Directory) Modify(_ context.Context, id int64, fn func(*directory.Participant)) (*directory.Participant, error) {
	d.mu.RLock()
	rec, ok := d.records[id]
	d.mu.RUnlock()
	if !ok {
		return nil, directory.ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	fn(&rec.p)
	rec.p.Touch()
	p := rec.p
	return &p, nil
}

// CountActive returns the number of currently joined participants.
func (d *Directory) CountActive(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, rec := range d.records {
		rec.mu.Lock()
		if rec.p.IsJoined() {
			n++
		}
		rec.mu.Unlock()
	}
	return n, nil
}
