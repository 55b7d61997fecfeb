package registry

import (
	"time"

	"github.com/xraph/lounge/transport"
)

// Record is the cached metadata of one source message: who submitted it,
// when it expires, its moderation/vote state, and the per-recipient
// message-identity table used to retarget edits, deletes and replies.
type Record struct {
	// MSID is the registry-assigned id, unique and strictly increasing
	// while the record is live.
	MSID int64

	// OwnerID is the submitting participant, zero for system notices.
	OwnerID int64

	CreatedAt time.Time
	ExpiresAt time.Time

	// Warned is set once a moderator has warned this message, so repeat
	// warnings are rejected.
	Warned bool

	upvoters   map[int64]struct{}
	downvoters map[int64]struct{}

	// mappings is recipientID → recipient-local transport message id.
	mappings map[int64]transport.MessageID
}

// HasUpvoted reports whether the voter already upvoted this message.
func (r *Record) HasUpvoted(voterID int64) bool {
	_, ok := r.upvoters[voterID]
	return ok
}

// HasDownvoted reports whether the voter already downvoted this message.
func (r *Record) HasDownvoted(voterID int64) bool {
	_, ok := r.downvoters[voterID]
	return ok
}

// MappingCount returns the number of recorded per-recipient mappings.
func (r *Record) MappingCount() int {
	return len(r.mappings)
}
