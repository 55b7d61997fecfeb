// Package registry tracks source-message metadata and the per-recipient
// message-identity table.
//
// Every submitted message gets a registry-assigned msid; as delivery
// workers fan the message out, they record each recipient's local message
// id against that msid. Later delete/reply operations resolve through
// these mappings. Records expire after a TTL; eviction removes a record
// and all its mappings atomically.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/xraph/lounge/transport"
)

// DefaultTTL is how long a record stays live after submission.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned when a msid has no live record.
var ErrNotFound = errors.New("registry: message not found")

// Vote outcome errors.
var (
	ErrAlreadyVoted = errors.New("registry: already voted on this message")
	ErrOwnMessage   = errors.New("registry: cannot vote on own message")
)

// mappingKey indexes the reverse mapping (recipient, transport id) → msid.
type mappingKey struct {
	recipientID int64
	mid         transport.MessageID
}

// Registry is the in-memory source-message table. It has its own mutex,
// independent of the delivery queue.
type Registry struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*Record
	reverse map[mappingKey]int64
	ttl     time.Duration
	now     func() time.Time
}

// New creates a registry with the given record TTL (zero selects
// DefaultTTL).
func New(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		nextID:  1,
		records: make(map[int64]*Record),
		reverse: make(map[mappingKey]int64),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Assign allocates a new strictly increasing msid and creates its record.
// ownerID is zero for system notices.
func (r *Registry) Assign(ownerID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	msid := r.nextID
	r.nextID++

	now := r.now().UTC()
	r.records[msid] = &Record{
		MSID:       msid,
		OwnerID:    ownerID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(r.ttl),
		upvoters:   make(map[int64]struct{}),
		downvoters: make(map[int64]struct{}),
		mappings:   make(map[int64]transport.MessageID),
	}
	return msid
}

// RecordMapping stores the recipient-local message id for (msid,
// recipient). The write is an idempotent upsert: recording the same
// mapping twice leaves exactly one entry. Unknown msids are ignored (the
// record was evicted while the delivery was in flight).
func (r *Registry) RecordMapping(msid, recipientID int64, mid transport.MessageID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[msid]
	if !ok {
		return
	}
	if old, exists := rec.mappings[recipientID]; exists {
		delete(r.reverse, mappingKey{recipientID, old})
	}
	rec.mappings[recipientID] = mid
	r.reverse[mappingKey{recipientID, mid}] = msid
}

// LookupMapping resolves a recipient-local message id back to its msid,
// used to resolve reply targets.
func (r *Registry) LookupMapping(recipientID int64, mid transport.MessageID) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msid, ok := r.reverse[mappingKey{recipientID, mid}]
	return msid, ok
}

// MappingFor returns the recipient-local message id recorded for (msid,
// recipient).
func (r *Registry) MappingFor(msid, recipientID int64) (transport.MessageID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[msid]
	if !ok {
		return 0, false
	}
	mid, ok := rec.mappings[recipientID]
	return mid, ok
}

// Mappings returns a copy of the per-recipient mapping table for msid.
func (r *Registry) Mappings(msid int64) map[int64]transport.MessageID {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[msid]
	if !ok {
		return nil
	}
	out := make(map[int64]transport.MessageID, len(rec.mappings))
	for recipient, mid := range rec.mappings {
		out[recipient] = mid
	}
	return out
}

// Get returns a snapshot of the record for msid.
func (r *Registry) Get(msid int64) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[msid]
	if !ok {
		return nil, ErrNotFound
	}
	snap := r.snapshot(rec)
	return snap, nil
}

// snapshot copies a record so callers never observe concurrent mutation.
// Caller holds r.mu.
func (r *Registry) snapshot(rec *Record) *Record {
	cp := &Record{
		MSID:       rec.MSID,
		OwnerID:    rec.OwnerID,
		CreatedAt:  rec.CreatedAt,
		ExpiresAt:  rec.ExpiresAt,
		Warned:     rec.Warned,
		upvoters:   make(map[int64]struct{}, len(rec.upvoters)),
		downvoters: make(map[int64]struct{}, len(rec.downvoters)),
		mappings:   make(map[int64]transport.MessageID, len(rec.mappings)),
	}
	for k := range rec.upvoters {
		cp.upvoters[k] = struct{}{}
	}
	for k := range rec.downvoters {
		cp.downvoters[k] = struct{}{}
	}
	for k, v := range rec.mappings {
		cp.mappings[k] = v
	}
	return cp
}

// ByOwner returns the msids of all live records owned by ownerID.
func (r *Registry) ByOwner(ownerID int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []int64
	for msid, rec := range r.records {
		if rec.OwnerID == ownerID {
			out = append(out, msid)
		}
	}
	return out
}

// Owner returns the owner of msid, or ErrNotFound.
func (r *Registry) Owner(msid int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[msid]
	if !ok {
		return 0, ErrNotFound
	}
	return rec.OwnerID, nil
}

// MarkWarned sets the warned flag and reports whether this call was the
// first warning for the message.
func (r *Registry) MarkWarned(msid int64) (first bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[msid]
	if !ok {
		return false, ErrNotFound
	}
	if rec.Warned {
		return false, nil
	}
	rec.Warned = true
	return true, nil
}

// Upvote records an upvote by voterID, rejecting double votes and votes
// on the voter's own message.
func (r *Registry) Upvote(msid, voterID int64) error {
	return r.vote(msid, voterID, true)
}

// Downvote records a downvote by voterID with the same guards as Upvote.
func (r *Registry) Downvote(msid, voterID int64) error {
	return r.vote(msid, voterID, false)
}

func (r *Registry) vote(msid, voterID int64, up bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[msid]
	if !ok {
		return ErrNotFound
	}
	if rec.OwnerID == voterID {
		return ErrOwnMessage
	}
	if _, voted := rec.upvoters[voterID]; voted {
		return ErrAlreadyVoted
	}
	if _, voted := rec.downvoters[voterID]; voted {
		return ErrAlreadyVoted
	}
	if up {
		rec.upvoters[voterID] = struct{}{}
	} else {
		rec.downvoters[voterID] = struct{}{}
	}
	return nil
}

// Drop removes the record for msid together with all its mappings.
func (r *Registry) Drop(msid int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drop(msid)
}

// drop removes one record and its reverse-index entries. Caller holds r.mu.
func (r *Registry) drop(msid int64) {
	rec, ok := r.records[msid]
	if !ok {
		return
	}
	for recipient, mid := range rec.mappings {
		delete(r.reverse, mappingKey{recipient, mid})
	}
	delete(r.records, msid)
}

// Evict removes every record with ExpiresAt at or before now and returns
// their msids so the caller can cancel any still-queued jobs referencing
// them. Record and mappings go atomically.
func (r *Registry) Evict(now time.Time) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []int64
	for msid, rec := range r.records {
		if !rec.ExpiresAt.After(now) {
			evicted = append(evicted, msid)
		}
	}
	for _, msid := range evicted {
		r.drop(msid)
	}
	return evicted
}

// Len returns the number of live records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
