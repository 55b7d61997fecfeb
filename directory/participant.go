// Package directory defines the participant record and the Directory
// collaborator interface through which the engine reads and mutates it.
//
// The engine never owns participant state: every mutation goes through
// Directory.Modify, an atomic per-record read-modify-write. Implementations
// live in directory/memory (tests, small deployments) and directory/sqlite
// (grove-backed persistence).
package directory

import (
	"fmt"
	"time"

	"github.com/xraph/lounge/internal/entity"
)

// Participant is a tracked chat member with rank, activity and moderation
// state. The zero value is not usable; call Defaults before first use.
type Participant struct {
	entity.Entity

	// ID is the transport-level chat id of the participant.
	ID int64 `json:"id"`

	Username string `json:"username,omitempty"`
	Realname string `json:"realname,omitempty"`

	Rank Rank `json:"rank"`

	// Joined is when the participant first joined; Left is set when they
	// leave (nil while joined).
	Joined time.Time  `json:"joined"`
	Left   *time.Time `json:"left,omitempty"`

	LastActive time.Time `json:"last_active"`

	DebugEnabled bool `json:"debug_enabled"`
	HideKarma    bool `json:"hide_karma"`

	Karma int `json:"karma"`

	Warnings   int        `json:"warnings"`
	WarnExpiry *time.Time `json:"warn_expiry,omitempty"`

	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`

	BlacklistReason string     `json:"blacklist_reason,omitempty"`
	BlacklistedAt   *time.Time `json:"blacklisted_at,omitempty"`

	// Registered is set once the participant has met the upload threshold
	// (nil until then). MediaCount and LastMedia feed the registration and
	// media-timeout rules.
	Registered *time.Time `json:"registered,omitempty"`
	MediaCount int        `json:"media_count"`
	LastMedia  *time.Time `json:"last_media,omitempty"`

	// Tripcode is the participant's "name#pass" tripcode source, if set.
	Tripcode string `json:"tripcode,omitempty"`
}

// Defaults initializes a fresh participant record.
func (p *Participant) Defaults() {
	now := time.Now().UTC()
	p.Entity = entity.New()
	p.Rank = RankUser
	p.Joined = now
	p.LastActive = now
}

// IsJoined reports whether the participant is currently in the chat.
func (p *Participant) IsJoined() bool {
	return p.Left == nil
}

// SetLeft marks the participant as having left the chat.
func (p *Participant) SetLeft() {
	now := time.Now().UTC()
	p.Left = &now
}

// SetJoined clears the left marker, re-admitting the participant.
func (p *Participant) SetJoined() {
	p.Left = nil
	p.LastActive = time.Now().UTC()
}

// IsBlacklisted reports whether the participant is locally banned.
func (p *Participant) IsBlacklisted() bool {
	return p.Rank <= RankBanned || p.BlacklistedAt != nil
}

// SetBlacklisted bans the participant with the given reason and marks
// them as left.
func (p *Participant) SetBlacklisted(reason string) {
	now := time.Now().UTC()
	p.Rank = RankBanned
	p.BlacklistReason = reason
	p.BlacklistedAt = &now
	p.Left = &now
}

// IsInCooldown reports whether the participant is currently suspended
// from submitting.
func (p *Participant) IsInCooldown() bool {
	return p.CooldownUntil != nil && time.Now().UTC().Before(*p.CooldownUntil)
}

// IsRegistered reports whether the participant has met the activation
// threshold.
func (p *Participant) IsRegistered() bool {
	return p.Registered != nil
}

// cooldownBaseMinutes is the cooldown issued for the first warning;
// each further warning doubles it.
const cooldownBaseMinutes = 5

// AddWarning issues a warning with an automatically scaled cooldown and
// returns the cooldown duration applied.
func (p *Participant) AddWarning() time.Duration {
	d := time.Duration(cooldownBaseMinutes*(1<<min(p.Warnings, 6))) * time.Minute
	p.applyWarning(d)
	return d
}

// AddWarningFor issues a warning with an explicit cooldown duration.
func (p *Participant) AddWarningFor(d time.Duration) time.Duration {
	p.applyWarning(d)
	return d
}

func (p *Participant) applyWarning(cooldown time.Duration) {
	now := time.Now().UTC()
	until := now.Add(cooldown)
	p.CooldownUntil = &until
	p.Warnings++
	expiry := now.Add(warnExpireAfter)
	p.WarnExpiry = &expiry
}

// warnExpireAfter is how long a warning counts against the participant.
const warnExpireAfter = 7 * 24 * time.Hour

// RemoveWarning forgives one warning and refreshes the expiry of the rest.
func (p *Participant) RemoveWarning() {
	if p.Warnings <= 0 {
		return
	}
	p.Warnings--
	if p.Warnings > 0 {
		expiry := time.Now().UTC().Add(warnExpireAfter)
		p.WarnExpiry = &expiry
	} else {
		p.WarnExpiry = nil
	}
}

// MessagePriority computes the delivery priority of this participant:
// higher rank and more recent activity mean a numerically lower value,
// which the queue serves first. Ties at equal rank are broken by minutes
// of inactivity, clamped to 16 bits.
func (p *Participant) MessagePriority() int64 {
	rank := p.Rank
	if rank < 0 {
		rank = 0
	}
	inactive := time.Now().UTC().Sub(p.LastActive) / time.Minute
	if inactive < 0 {
		inactive = 0
	}
	if inactive > 0xFFFF {
		inactive = 0xFFFF
	}
	return int64(maxRank-rank)<<16 | int64(inactive)
}

// UnknownPriority is the priority used for submitters that have no
// directory record yet: treated as rank 0 with current activity.
func UnknownPriority() int64 {
	return int64(maxRank) << 16
}

// ObfuscatedID returns a short stable identifier safe to show to
// moderators without revealing the transport chat id.
func (p *Participant) ObfuscatedID() string {
	// Day-scoped so ids rotate and cannot be correlated long-term.
	day := time.Now().UTC().Format("2006-01-02")
	h := uint64(14695981039346656037)
	for _, b := range fmt.Sprintf("%d:%s", p.ID, day) {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return fmt.Sprintf("%04x", uint16(h))
}

// FormattedName returns the best human-readable name available.
func (p *Participant) FormattedName() string {
	if p.Username != "" {
		return "@" + p.Username
	}
	if p.Realname != "" {
		return p.Realname
	}
	return fmt.Sprintf("user %s", p.ObfuscatedID())
}
