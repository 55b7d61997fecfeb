package lounge

import (
	"errors"

	"github.com/xraph/lounge/presenter"
)

// Sentinel errors returned by Lounge operations.
var (
	// ErrNoDirectory is returned when a Lounge is created without a
	// participant directory.
	ErrNoDirectory = errors.New("lounge: directory is required")

	// ErrNoTransport is returned when a Lounge is created without a
	// transport.
	ErrNoTransport = errors.New("lounge: transport is required")

	// ErrInsufficientRank is returned when a moderation command is
	// invoked by a participant below the required rank.
	ErrInsufficientRank = errors.New("lounge: insufficient rank")
)

// Denial is returned when an operation is refused for a reason the
// invoking participant should be told about. It carries the notice to
// render back to them and nothing else; denials are expected outcomes,
// not engine failures.
type Denial struct {
	Notice *presenter.Notice
}

func (d *Denial) Error() string {
	return "lounge: denied"
}

// Deny builds a Denial carrying the given notice kind and params.
func Deny(kind presenter.NoticeKind, params presenter.Params) *Denial {
	return &Denial{Notice: presenter.NewNotice(kind, params)}
}

// AsDenial extracts a *Denial from err, if it is one.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
