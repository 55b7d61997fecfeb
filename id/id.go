// Package id generates TypeID-based identifiers for the lounge's
// ephemeral entities.
//
// Delivery jobs and scheduler tasks carry a prefix-qualified, K-sortable
// (UUIDv7-based), URL-safe identifier in the format "prefix_suffix".
// These ids live only in memory and in logs. Source message ids (msids)
// are deliberately NOT TypeIDs: the registry hands out monotonically
// increasing int64 values so that ordering comparisons stay trivial.
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefixes for lounge entity ids.
const (
	prefixJob  = "job"
	prefixTask = "task"
)

// ID wraps a TypeID. The zero value is valid and renders as an empty
// string.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// newID panics on an invalid prefix, which can only be a programming
// error in this package's constants.
func newID(prefix string) ID {
	tid, err := typeid.Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// NewJobID generates a unique delivery job id.
func NewJobID() ID { return newID(prefixJob) }

// NewTaskID generates a unique scheduled task id.
func NewTaskID() ID { return newID(prefixTask) }

// String returns the "prefix_suffix" form, or an empty string for the
// zero value.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// IsNil reports whether this id is the zero value.
func (i ID) IsNil() bool { return !i.valid }
