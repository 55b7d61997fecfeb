package queue

import (
	"github.com/xraph/lounge/id"
	"github.com/xraph/lounge/transport"
)

// Kind distinguishes what a popped job asks the transport to do.
type Kind int

const (
	// KindSend delivers a payload to the target participant.
	KindSend Kind = iota

	// KindDelete removes an already-delivered message from the target's
	// chat.
	KindDelete
)

// Job is one pending delivery operation. Jobs are created by the fanout
// path, owned by the queue while pending, and destroyed on pop or
// cancellation.
type Job struct {
	// ID identifies the job in logs and traces.
	ID id.ID

	Kind Kind

	// OwnerID is the participant whose submission produced this job;
	// zero for broadcast-origin system notices.
	OwnerID int64

	// TargetID is the recipient this job delivers to.
	TargetID int64

	// MSID is the source message this job belongs to; zero for delete
	// jobs that only carry a transport message id.
	MSID int64

	// ReplyToMSID is the source message the payload replies to, if any.
	ReplyToMSID int64

	// Payload is the content to send (KindSend only).
	Payload transport.Payload

	// DeleteMID is the recipient-local message to remove (KindDelete only).
	DeleteMID transport.MessageID

	// Seq is the queue-assigned submission sequence, used as the FIFO
	// tiebreak among equal priorities.
	Seq uint64
}

// NewSend builds a send job for one recipient.
func NewSend(ownerID, targetID, msid, replyToMSID int64, payload transport.Payload) *Job {
	return &Job{
		ID:          id.NewJobID(),
		Kind:        KindSend,
		OwnerID:     ownerID,
		TargetID:    targetID,
		MSID:        msid,
		ReplyToMSID: replyToMSID,
		Payload:     payload,
	}
}

// NewDelete builds a delete job for one already-delivered message.
func NewDelete(targetID, msid int64, mid transport.MessageID) *Job {
	return &Job{
		ID:        id.NewJobID(),
		Kind:      KindDelete,
		TargetID:  targetID,
		MSID:      msid,
		DeleteMID: mid,
	}
}
