package lounge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/lounge/directory"
	"github.com/xraph/lounge/presenter"
	"github.com/xraph/lounge/tripcode"
)

// requireRank loads the invoker and checks their rank.
func (l *Lounge) requireRank(ctx context.Context, invokerID int64, rank directory.Rank) (*directory.Participant, error) {
	p, err := l.dir.Get(ctx, invokerID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrInsufficientRank
		}
		return nil, fmt.Errorf("lounge: look up invoker: %w", err)
	}
	if p.Rank < rank {
		return nil, ErrInsufficientRank
	}
	return p, nil
}

// Warn issues a warning to the owner of the given message: a scaled (or
// explicit) cooldown, a karma penalty, and optionally deletion of the
// message (or all of the owner's messages). A message can only be warned
// once, but deleting an already-warned message is still allowed.
func (l *Lounge) Warn(ctx context.Context, invokerID, msid int64, del, delAll bool, cooldown time.Duration) (*presenter.Notice, error) {
	if _, err := l.requireRank(ctx, invokerID, directory.RankMod); err != nil {
		return nil, err
	}

	ownerID, err := l.registry.Owner(msid)
	if err != nil {
		return nil, Deny(presenter.KindErrNotInCache, nil)
	}
	first, err := l.registry.MarkWarned(msid)
	if err != nil {
		return nil, Deny(presenter.KindErrNotInCache, nil)
	}
	if !first && !del {
		return nil, Deny(presenter.KindErrAlreadyWarned, nil)
	}

	var applied time.Duration
	var owner *directory.Participant
	if first {
		owner, err = l.dir.Modify(ctx, ownerID, func(o *directory.Participant) {
			if cooldown > 0 {
				applied = o.AddWarningFor(cooldown)
			} else {
				applied = o.AddWarning()
			}
			o.Karma -= karmaWarnPenalty
		})
		if err != nil {
			return nil, fmt.Errorf("lounge: warn owner: %w", err)
		}
		l.notify(ctx, ownerID, presenter.NewNotice(presenter.KindGivenCooldown, presenter.Params{
			"duration": applied,
			"deleted":  del,
		}))
	} else {
		// Already warned: no second cooldown, only the deletion.
		owner, err = l.dir.Get(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("lounge: look up owner: %w", err)
		}
	}

	kind := presenter.KindSuccessWarn
	count := 0
	if del {
		msids := []int64{msid}
		kind = presenter.KindSuccessWarnDelete
		if delAll {
			msids = l.registry.ByOwner(ownerID)
			kind = presenter.KindSuccessWarnDeleteAll
			count = len(msids)
		}
		l.Delete(ctx, msids)
	}

	l.logger.InfoContext(ctx, "message warned",
		"msid", msid,
		"owner", ownerID,
		"invoker", invokerID,
		"cooldown", applied,
		"deleted", del,
		"deleted_all", delAll,
	)
	params := presenter.Params{
		"id":       owner.ObfuscatedID(),
		"cooldown": applied,
	}
	if delAll {
		params["count"] = count
	}
	return presenter.NewNotice(kind, params), nil
}

// DeleteMessage deletes the given message everywhere, or all live messages
// of its owner when all is set. The owner is notified once.
func (l *Lounge) DeleteMessage(ctx context.Context, invokerID, msid int64, all bool) (*presenter.Notice, error) {
	if _, err := l.requireRank(ctx, invokerID, directory.RankMod); err != nil {
		return nil, err
	}

	ownerID, err := l.registry.Owner(msid)
	if err != nil {
		return nil, Deny(presenter.KindErrNotInCache, nil)
	}
	owner, err := l.dir.Get(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("lounge: look up owner: %w", err)
	}

	msids := []int64{msid}
	if all {
		msids = l.registry.ByOwner(ownerID)
	}
	l.Delete(ctx, msids)
	l.notify(ctx, ownerID, presenter.NewNotice(presenter.KindMessageDeleted, nil))

	l.logger.InfoContext(ctx, "messages deleted by moderator",
		"owner", ownerID,
		"invoker", invokerID,
		"count", len(msids),
	)
	if all {
		return presenter.NewNotice(presenter.KindSuccessDeleteAll, presenter.Params{
			"id":    owner.ObfuscatedID(),
			"count": len(msids),
		}), nil
	}
	return presenter.NewNotice(presenter.KindSuccessDelete, presenter.Params{
		"id": owner.ObfuscatedID(),
	}), nil
}

// Blacklist permanently bans the owner of the given message. Deliveries
// to and from them are stopped before the record is changed, the ban is
// propagated to the hub, and their message (or all their messages) is
// deleted.
func (l *Lounge) Blacklist(ctx context.Context, invokerID, msid int64, reason string, deleteAll bool) (*presenter.Notice, error) {
	invoker, err := l.requireRank(ctx, invokerID, directory.RankAdmin)
	if err != nil {
		return nil, err
	}

	ownerID, err := l.registry.Owner(msid)
	if err != nil {
		return nil, Deny(presenter.KindErrNotInCache, nil)
	}
	owner, err := l.dir.Get(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("lounge: look up owner: %w", err)
	}
	if owner.Rank >= invoker.Rank {
		return nil, ErrInsufficientRank
	}

	// Stop traffic first so nothing queued for (or by) the banned
	// participant survives the record change.
	l.StopDeliveries(ownerID, true)

	if _, err := l.dir.Modify(ctx, ownerID, func(o *directory.Participant) {
		o.SetBlacklisted(reason)
	}); err != nil {
		return nil, fmt.Errorf("lounge: blacklist owner: %w", err)
	}

	if l.hub != nil {
		if err := l.hub.Ban(ctx, ownerID); err != nil {
			l.logger.WarnContext(ctx, "hub ban", "participant", ownerID, "error", err)
		}
		if err := l.hub.MarkLeft(ctx, ownerID, l.config.Name); err != nil {
			l.logger.WarnContext(ctx, "hub mark left", "participant", ownerID, "error", err)
		}
	}

	msids := []int64{msid}
	if deleteAll {
		msids = l.registry.ByOwner(ownerID)
	}
	l.Delete(ctx, msids)

	// The ban notice must outrun the forced leave: deliver it directly
	// through the queue before the recipient stops receiving.
	l.notify(ctx, ownerID, presenter.NewNotice(presenter.KindErrBlacklisted, presenter.Params{
		"reason":  reason,
		"contact": l.config.BlacklistContact,
	}))

	l.logger.InfoContext(ctx, "participant blacklisted",
		"participant", ownerID,
		"invoker", invokerID,
		"reason", reason,
		"messages_deleted", len(msids),
	)
	if deleteAll {
		return presenter.NewNotice(presenter.KindSuccessBlacklistDeleteAll, presenter.Params{
			"id":    owner.ObfuscatedID(),
			"count": len(msids),
		}), nil
	}
	return presenter.NewNotice(presenter.KindSuccessBlacklist, presenter.Params{
		"id": owner.ObfuscatedID(),
	}), nil
}

// Whitelist lifts a blacklist: the participant's ban record is cleared,
// their rank restored, and the hub-wide ban removed. They stay left and
// may rejoin on their own.
//
// Unlike Blacklist this takes a participant id, not a message id: a
// banned participant's messages have been deleted, so no msid of theirs
// still resolves.
func (l *Lounge) Whitelist(ctx context.Context, invokerID, targetID int64) (*presenter.Notice, error) {
	invoker, err := l.requireRank(ctx, invokerID, directory.RankMod)
	if err != nil {
		return nil, err
	}

	wasBlacklisted := false
	target, err := l.dir.Modify(ctx, targetID, func(t *directory.Participant) {
		wasBlacklisted = t.IsBlacklisted()
		if t.Rank <= directory.RankBanned {
			t.Rank = directory.RankUser
		}
		t.BlacklistReason = ""
		t.BlacklistedAt = nil
	})
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, Deny(presenter.KindErrNoUser, nil)
		}
		return nil, fmt.Errorf("lounge: whitelist participant: %w", err)
	}
	if !wasBlacklisted {
		return nil, Deny(presenter.KindCustom, presenter.Params{
			"text": "this user is not blacklisted",
		})
	}

	if l.hub != nil {
		if err := l.hub.Unban(ctx, targetID); err != nil {
			l.logger.WarnContext(ctx, "hub unban", "participant", targetID, "error", err)
		}
	}
	if l.hubSets != nil {
		l.hubSets.dropBan(targetID)
	}

	l.logger.InfoContext(ctx, "participant whitelisted",
		"participant", targetID,
		"invoker", invoker.ID,
	)
	return presenter.NewNotice(presenter.KindSuccessWhitelist, presenter.Params{
		"id": target.ObfuscatedID(),
	}), nil
}

// Promote raises the target to the given rank and notifies them. Ranks
// never go down through this path.
func (l *Lounge) Promote(ctx context.Context, invokerID, targetID int64, rank directory.Rank) error {
	if _, err := l.requireRank(ctx, invokerID, directory.RankAdmin); err != nil {
		return err
	}
	if rank != directory.RankMod && rank != directory.RankAdmin {
		return fmt.Errorf("lounge: cannot promote to rank %s", rank)
	}

	changed := false
	_, err := l.dir.Modify(ctx, targetID, func(t *directory.Participant) {
		if t.Rank >= rank {
			return
		}
		t.Rank = rank
		changed = true
	})
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Deny(presenter.KindErrNoUser, nil)
		}
		return fmt.Errorf("lounge: promote: %w", err)
	}
	if !changed {
		return nil
	}

	kind := presenter.KindPromotedMod
	if rank == directory.RankAdmin {
		kind = presenter.KindPromotedAdmin
	}
	l.notify(ctx, targetID, presenter.NewNotice(kind, nil))

	l.logger.InfoContext(ctx, "participant promoted",
		"participant", targetID,
		"invoker", invokerID,
		"rank", rank.String(),
	)
	return nil
}

// Uncooldown lifts the target's active cooldown and forgives the warning
// that caused it.
func (l *Lounge) Uncooldown(ctx context.Context, invokerID, targetID int64) error {
	if _, err := l.requireRank(ctx, invokerID, directory.RankAdmin); err != nil {
		return err
	}

	inCooldown := false
	_, err := l.dir.Modify(ctx, targetID, func(t *directory.Participant) {
		if !t.IsInCooldown() {
			return
		}
		inCooldown = true
		t.CooldownUntil = nil
		t.RemoveWarning()
	})
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Deny(presenter.KindErrNoUser, nil)
		}
		return fmt.Errorf("lounge: uncooldown: %w", err)
	}
	if !inCooldown {
		return Deny(presenter.KindErrNotInCooldown, nil)
	}

	l.logger.InfoContext(ctx, "cooldown lifted",
		"participant", targetID, "invoker", invokerID)
	return nil
}

// Cleanup deletes every live message owned by a blacklisted participant.
// Returns how many messages were removed.
func (l *Lounge) Cleanup(ctx context.Context, invokerID int64) (int, error) {
	if _, err := l.requireRank(ctx, invokerID, directory.RankAdmin); err != nil {
		return 0, err
	}

	parts, err := l.dir.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("lounge: list participants: %w", err)
	}

	var msids []int64
	for _, p := range parts {
		if !p.IsBlacklisted() {
			continue
		}
		msids = append(msids, l.registry.ByOwner(p.ID)...)
	}
	if len(msids) == 0 {
		return 0, nil
	}
	l.Delete(ctx, msids)

	l.logger.InfoContext(ctx, "cleanup removed blacklisted messages",
		"invoker", invokerID, "count", len(msids))
	return len(msids), nil
}

// SetTripcode validates and stores the participant's tripcode source.
func (l *Lounge) SetTripcode(ctx context.Context, senderID int64, source string) (*presenter.Notice, error) {
	if !tripcode.Valid(source) {
		return nil, Deny(presenter.KindErrInvalidTripFormat, nil)
	}
	name, code, err := tripcode.Derive(source)
	if err != nil {
		return nil, Deny(presenter.KindErrInvalidTripFormat, nil)
	}

	if _, err := l.dir.Modify(ctx, senderID, func(p *directory.Participant) {
		p.Tripcode = source
	}); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, Deny(presenter.KindUserNotInChat, nil)
		}
		return nil, fmt.Errorf("lounge: set tripcode: %w", err)
	}

	return presenter.NewNotice(presenter.KindTripcodeSet, presenter.Params{
		"name": name,
		"code": code,
	}), nil
}

// TripcodeInfo returns the participant's current tripcode source.
func (l *Lounge) TripcodeInfo(ctx context.Context, senderID int64) (*presenter.Notice, error) {
	p, err := l.dir.Get(ctx, senderID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, Deny(presenter.KindUserNotInChat, nil)
		}
		return nil, fmt.Errorf("lounge: look up participant: %w", err)
	}
	if p.Tripcode == "" {
		return nil, Deny(presenter.KindErrNoTripcode, nil)
	}
	return presenter.NewNotice(presenter.KindTripcodeInfo, presenter.Params{
		"tripcode": p.Tripcode,
	}), nil
}

// SetHideKarma toggles karma notifications for the participant.
func (l *Lounge) SetHideKarma(ctx context.Context, senderID int64, hide bool) (*presenter.Notice, error) {
	return l.toggle(ctx, senderID, "karma notifications", func(p *directory.Participant) *bool {
		p.HideKarma = hide
		enabled := !hide
		return &enabled
	})
}

// SetDebug toggles echo copies of the participant's own messages.
func (l *Lounge) SetDebug(ctx context.Context, senderID int64, enabled bool) (*presenter.Notice, error) {
	return l.toggle(ctx, senderID, "debug echo", func(p *directory.Participant) *bool {
		p.DebugEnabled = enabled
		return &enabled
	})
}

func (l *Lounge) toggle(ctx context.Context, senderID int64, description string, set func(*directory.Participant) *bool) (*presenter.Notice, error) {
	var enabled bool
	if _, err := l.dir.Modify(ctx, senderID, func(p *directory.Participant) {
		enabled = *set(p)
	}); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, Deny(presenter.KindUserNotInChat, nil)
		}
		return nil, fmt.Errorf("lounge: toggle %s: %w", description, err)
	}
	return presenter.NewNotice(presenter.KindBooleanConfig, presenter.Params{
		"description": description,
		"enabled":     enabled,
	}), nil
}

// karmaLevels maps karma thresholds to level names, lowest first.
var karmaLevels = []struct {
	min  int
	name string
}{
	{-100, "outcast"},
	{-10, "dubious"},
	{0, "lurker"},
	{10, "regular"},
	{25, "known"},
	{50, "respected"},
	{100, "renowned"},
}

// karmaLevel returns the level name for a karma value.
func karmaLevel(karma int) string {
	name := karmaLevels[0].name
	for _, lvl := range karmaLevels {
		if karma >= lvl.min {
			name = lvl.name
		}
	}
	return name
}

// ParseCooldown parses moderator-supplied cooldown durations of the form
// "30s", "10m", "2h", "3d" or "1w".
func ParseCooldown(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, Deny(presenter.KindErrInvalidDuration, nil)
	}
	unit := s[len(s)-1]
	n, err := strconv.Atoi(strings.TrimSpace(s[:len(s)-1]))
	if err != nil || n <= 0 {
		return 0, Deny(presenter.KindErrInvalidDuration, nil)
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	}
	return 0, Deny(presenter.KindErrInvalidDuration, nil)
}
