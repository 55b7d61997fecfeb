package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/lounge/directory"
	"github.com/xraph/lounge/internal/entity"
)

type participantModel struct {
	grove.BaseModel `grove:"table:lounge_participants"`

	ID              int64      `grove:"id,pk"`
	Username        string     `grove:"username"`
	Realname        string     `grove:"realname"`
	Rank            int        `grove:"rank"`
	Joined          time.Time  `grove:"joined"`
	Left            *time.Time `grove:"left"`
	LastActive      time.Time  `grove:"last_active"`
	DebugEnabled    bool       `grove:"debug_enabled"`
	HideKarma       bool       `grove:"hide_karma"`
	Karma           int        `grove:"karma"`
	Warnings        int        `grove:"warnings"`
	WarnExpiry      *time.Time `grove:"warn_expiry"`
	CooldownUntil   *time.Time `grove:"cooldown_until"`
	BlacklistReason string     `grove:"blacklist_reason"`
	BlacklistedAt   *time.Time `grove:"blacklisted_at"`
	Registered      *time.Time `grove:"registered"`
	MediaCount      int        `grove:"media_count"`
	LastMedia       *time.Time `grove:"last_media"`
	Tripcode        string     `grove:"tripcode"`
	CreatedAt       time.Time  `grove:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"`
}

func toParticipantModel(p *directory.Participant) *participantModel {
	return &participantModel{
		ID:              p.ID,
		Username:        p.Username,
		Realname:        p.Realname,
		Rank:            int(p.Rank),
		Joined:          p.Joined,
		Left:            p.Left,
		LastActive:      p.LastActive,
		DebugEnabled:    p.DebugEnabled,
		HideKarma:       p.HideKarma,
		Karma:           p.Karma,
		Warnings:        p.Warnings,
		WarnExpiry:      p.WarnExpiry,
		CooldownUntil:   p.CooldownUntil,
		BlacklistReason: p.BlacklistReason,
		BlacklistedAt:   p.BlacklistedAt,
		Registered:      p.Registered,
		MediaCount:      p.MediaCount,
		LastMedia:       p.LastMedia,
		Tripcode:        p.Tripcode,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func fromParticipantModel(m *participantModel) *directory.Participant {
	return &directory.Participant{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              m.ID,
		Username:        m.Username,
		Realname:        m.Realname,
		Rank:            directory.Rank(m.Rank),
		Joined:          m.Joined,
		Left:            m.Left,
		LastActive:      m.LastActive,
		DebugEnabled:    m.DebugEnabled,
		HideKarma:       m.HideKarma,
		Karma:           m.Karma,
		Warnings:        m.Warnings,
		WarnExpiry:      m.WarnExpiry,
		CooldownUntil:   m.CooldownUntil,
		BlacklistReason: m.BlacklistReason,
		BlacklistedAt:   m.BlacklistedAt,
		Registered:      m.Registered,
		MediaCount:      m.MediaCount,
		LastMedia:       m.LastMedia,
		Tripcode:        m.Tripcode,
	}
}
