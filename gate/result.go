package gate

import "github.com/xraph/lounge/presenter"

// Status is the outcome class of an authorization evaluation.
type Status int

const (
	// StatusNone means the participant is unknown to the directory.
	StatusNone Status = iota

	// StatusBlacklisted means the participant is banned, locally or
	// through the shared hub ban set.
	StatusBlacklisted

	// StatusPrivileged means the participant is a mod/admin or matched a
	// configured privileged-identity override.
	StatusPrivileged

	// StatusActiveElsewhere means the participant is currently joined to
	// another lounge and cannot receive here.
	StatusActiveElsewhere

	// StatusUnjoined means the participant has left (or never joined).
	StatusUnjoined

	// StatusUnregistered means the participant has not met the upload
	// threshold yet.
	StatusUnregistered

	// StatusMediaTimeout means the participant's keepalive media window
	// has lapsed.
	StatusMediaTimeout

	// StatusUserLeft means a liveness probe found the participant
	// unreachable and they were force-left.
	StatusUserLeft

	// StatusChatNotFound means the participant's chat no longer resolves
	// at the transport and they were force-left.
	StatusChatNotFound

	// StatusOrdinary is the default: a joined, registered participant in
	// good standing.
	StatusOrdinary
)

// String returns the status name for logs.
func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusBlacklisted:
		return "blacklisted"
	case StatusPrivileged:
		return "privileged"
	case StatusActiveElsewhere:
		return "active_elsewhere"
	case StatusUnjoined:
		return "unjoined"
	case StatusUnregistered:
		return "unregistered"
	case StatusMediaTimeout:
		return "media_timeout"
	case StatusUserLeft:
		return "user_left"
	case StatusChatNotFound:
		return "chat_not_found"
	case StatusOrdinary:
		return "ordinary"
	}
	return "unknown"
}

// Result is the decision produced by one gate evaluation. The same result
// serves submission-time checks (interpret CanSubmit) and per-recipient
// dispatch-time checks (interpret CanReceive); callers select which flag
// matters.
type Result struct {
	Status Status

	CanSubmit  bool
	CanReceive bool

	// Notice is an optional user-visible explanation (blacklist reason,
	// registration prompt). Nil when no notice applies.
	Notice *presenter.Notice

	// Log is a short description of the decision for structured logs.
	Log string
}
