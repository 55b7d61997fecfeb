package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a participant id has no directory record.
var ErrNotFound = errors.New("directory: participant not found")

// Directory is the participant store the engine collaborates with.
//
// Modify is the only mutation primitive: it performs an atomic per-record
// read-modify-write so that concurrent rank, karma and left-state updates
// never race. The engine assumes no global lock across records.
type Directory interface {
	// Get returns the participant with the given id, or ErrNotFound.
	Get(ctx context.Context, id int64) (*Participant, error)

	// All returns a snapshot of every participant record.
	All(ctx context.Context) ([]*Participant, error)

	// Add inserts a new participant record.
	Add(ctx context.Context, p *Participant) error

	// Modify applies fn to the participant under a per-record lock and
	// persists the result. It returns the updated record, or ErrNotFound
	// if the id is unknown.
	Modify(ctx context.Context, id int64, fn func(*Participant)) (*Participant, error)

	// CountActive returns the number of currently joined participants.
	CountActive(ctx context.Context) (int, error)
}
