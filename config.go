package lounge

import "time"

// Config holds the configuration for a Lounge instance.
type Config struct {
	// Name identifies this lounge on the shared hub and in join notices.
	Name string

	// Workers is the number of delivery worker goroutines.
	Workers int

	// MessageTTL is how long a relayed message stays addressable (for
	// replies, votes and moderation) after submission.
	MessageTTL time.Duration

	// MaxAttempts bounds in-place retries of one rate-limited delivery.
	MaxAttempts int

	// MaxBackoff caps the per-retry sleep regardless of what the
	// transport asks for.
	MaxBackoff time.Duration

	// SendRate paces outbound sends per recipient (sends per second).
	// Zero disables proactive pacing.
	SendRate int

	// RegUploads is the number of media uploads required before a new
	// participant's messages are relayed. Zero disables registration:
	// everyone is registered on join.
	RegUploads int

	// MediaLimitPeriod blocks media and forwards from participants who
	// joined more recently than this. Zero disables the limit.
	MediaLimitPeriod time.Duration

	// MediaTimeout stops delivering to participants whose last media
	// upload is older than this. Zero disables the rule.
	MediaTimeout time.Duration

	// MaxParticipants caps active membership. Zero means unlimited.
	MaxParticipants int

	// RegistrationOpen controls whether new participants may join.
	RegistrationOpen bool

	// EnableSigning allows participants to attach their username to a
	// message with the sign flag.
	EnableSigning bool

	// PrivilegedUsernames are identity overrides auto-promoted to admin
	// by the authorization gate.
	PrivilegedUsernames []string

	// BlacklistContact is shown in blacklist notices so banned
	// participants know where to appeal.
	BlacklistContact string

	// SpamInterval is how often submission scores decay by one.
	SpamInterval time.Duration

	// SignInterval is the minimum time between signed messages per
	// participant.
	SignInterval time.Duration

	// UpvoteInterval and DownvoteInterval throttle votes per
	// participant. Intervals of one second or less are disabled.
	UpvoteInterval   time.Duration
	DownvoteInterval time.Duration

	// MediaBatchWindow is how long an open media group waits for further
	// items before it is relayed as one album.
	MediaBatchWindow time.Duration

	// MediaBatchSize flushes an open media group early once it holds
	// this many items.
	MediaBatchSize int

	// WarnSweepInterval is how often expired warnings are forgiven.
	WarnSweepInterval time.Duration

	// EvictInterval is how often expired registry records are evicted.
	EvictInterval time.Duration

	// HubRefreshInterval is how often the shared hub's ban and
	// active-elsewhere sets are re-read. Ignored without a hub.
	HubRefreshInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:               "lounge",
		Workers:            1,
		MessageTTL:         24 * time.Hour,
		MaxAttempts:        8,
		MaxBackoff:         30 * time.Second,
		RegUploads:         5,
		RegistrationOpen:   true,
		SpamInterval:       5 * time.Second,
		SignInterval:       600 * time.Second,
		DownvoteInterval:   60 * time.Second,
		MediaBatchWindow:   2 * time.Second,
		MediaBatchSize:     10,
		WarnSweepInterval:  15 * time.Minute,
		EvictInterval:      5 * time.Minute,
		HubRefreshInterval: 30 * time.Second,
	}
}
