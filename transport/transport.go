// Package transport defines the interface to the remote chat platform and
// its failure taxonomy.
//
// The engine treats the transport as rate-limited and occasionally
// unreachable: sends may fail with a retryable *RateLimitedError carrying a
// server-indicated backoff, or with ErrRecipientUnreachable when the
// recipient has blocked the relay or deleted their account. Anything else
// is an unclassified error the caller logs and drops.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MessageID identifies one delivered message within a recipient's chat.
type MessageID int64

// ErrRecipientUnreachable is returned when the recipient can no longer be
// messaged (blocked the relay, deactivated, never started a chat). Sends
// failing with this error must not be retried.
var ErrRecipientUnreachable = errors.New("transport: recipient unreachable")

// ErrChatNotFound is returned by Probe when the recipient's chat does not
// resolve at the platform.
var ErrChatNotFound = errors.New("transport: chat not found")

// RateLimitedError is returned when the platform throttles the relay.
// RetryAfter is the server-indicated wait; callers cap it before sleeping.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("transport: rate limited, retry after %s", e.RetryAfter)
}

// MediaItem is one element of a media group payload.
type MediaItem struct {
	FileID string `json:"file_id"`
	Kind   string `json:"kind"` // photo, video, document, audio
}

// Payload is the content of one delivery. Exactly one of Text or Media is
// set for user messages; Notice carries rendered system notices.
type Payload struct {
	// Text is the message body (possibly caption text for media).
	Text string `json:"text,omitempty"`

	// Media is a media group of up to ten items sent as one album.
	Media []MediaItem `json:"media,omitempty"`

	// Notice marks the payload as a rendered system notice rather than a
	// relayed user message.
	Notice bool `json:"notice,omitempty"`

	// ReplyTo is the recipient-local message id this payload replies to,
	// zero when not a reply. Populated by the delivery worker from the
	// registry mapping just before sending.
	ReplyTo MessageID `json:"reply_to,omitempty"`
}

// Transport is the collaborator performing the concrete wire calls to the
// chat platform.
type Transport interface {
	// Send delivers payload to the recipient and returns the resulting
	// recipient-local message id.
	Send(ctx context.Context, recipientID int64, payload Payload) (MessageID, error)

	// DeleteMessage removes a previously delivered message from the
	// recipient's chat. Failures are logged and ignored by callers.
	DeleteMessage(ctx context.Context, recipientID int64, mid MessageID) error

	// Probe performs a non-mutating liveness check of the recipient,
	// returning ErrRecipientUnreachable or ErrChatNotFound when the
	// recipient cannot be reached.
	Probe(ctx context.Context, recipientID int64) error
}
