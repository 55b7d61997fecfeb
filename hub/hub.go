// Package hub defines the optional cross-lounge coordination interface.
//
// Several lounges sharing one Hub see each other's universal bans and a
// roster of who is active where, so a participant cannot sit in two
// lounges at once and a universally banned participant is rejected
// everywhere. A nil Hub puts the engine in single-lounge mode.
package hub

import "context"

// Set is a membership snapshot keyed by participant id.
type Set map[int64]struct{}

// Contains reports whether id is in the set. Safe on a nil Set.
func (s Set) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Hub is the shared coordination backend.
type Hub interface {
	// BannedEverywhere returns the set of participants banned across all
	// lounges sharing this hub.
	BannedEverywhere(ctx context.Context) (Set, error)

	// ActiveElsewhere returns the set of participants currently joined to
	// a lounge other than the named one.
	ActiveElsewhere(ctx context.Context, lounge string) (Set, error)

	// Ban adds the participant to the universal ban set.
	Ban(ctx context.Context, participantID int64) error

	// Unban removes the participant from the universal ban set.
	Unban(ctx context.Context, participantID int64) error

	// MarkJoined records the participant as active in the named lounge.
	MarkJoined(ctx context.Context, participantID int64, lounge string) error

	// MarkLeft clears the participant's active record for the named
	// lounge.
	MarkLeft(ctx context.Context, participantID int64, lounge string) error
}
