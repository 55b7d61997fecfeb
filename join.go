package lounge

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/lounge/directory"
	"github.com/xraph/lounge/presenter"
)

// Join admits a participant to the lounge, creating their directory record
// on first contact. The returned notice is what the frontend should show
// them; refusals come back as *Denial.
func (l *Lounge) Join(ctx context.Context, senderID int64, username, realname string) (*presenter.Notice, error) {
	if l.hubSets != nil && l.hubSets.Banned(senderID) {
		return nil, Deny(presenter.KindErrBlacklisted, presenter.Params{
			"contact": l.config.BlacklistContact,
		})
	}

	p, err := l.dir.Get(ctx, senderID)
	switch {
	case err == nil:
		return l.rejoin(ctx, p, username, realname)
	case errors.Is(err, directory.ErrNotFound):
		return l.admit(ctx, senderID, username, realname)
	default:
		return nil, fmt.Errorf("lounge: look up joiner: %w", err)
	}
}

// rejoin handles a returning participant.
func (l *Lounge) rejoin(ctx context.Context, p *directory.Participant, username, realname string) (*presenter.Notice, error) {
	if p.IsBlacklisted() {
		return nil, Deny(presenter.KindErrBlacklisted, presenter.Params{
			"reason":  p.BlacklistReason,
			"contact": l.config.BlacklistContact,
		})
	}
	if p.IsJoined() {
		return nil, Deny(presenter.KindCustom, presenter.Params{
			"text": "you are already in the lounge",
		})
	}

	_, err := l.dir.Modify(ctx, p.ID, func(p *directory.Participant) {
		p.SetJoined()
		p.Username = username
		p.Realname = realname
	})
	if err != nil {
		return nil, fmt.Errorf("lounge: rejoin participant: %w", err)
	}
	l.markJoinedOnHub(ctx, p.ID)

	l.logger.InfoContext(ctx, "participant rejoined", "participant", p.ID)
	return presenter.NewNotice(presenter.KindChatRejoin, nil), nil
}

// admit handles a first-time joiner.
func (l *Lounge) admit(ctx context.Context, senderID int64, username, realname string) (*presenter.Notice, error) {
	if !l.config.RegistrationOpen {
		return nil, Deny(presenter.KindErrRegClosed, nil)
	}

	active, err := l.dir.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("lounge: count active participants: %w", err)
	}
	if l.config.MaxParticipants > 0 && active >= l.config.MaxParticipants {
		return nil, Deny(presenter.KindErrChatFull, nil)
	}

	p := &directory.Participant{
		ID:       senderID,
		Username: username,
		Realname: realname,
	}
	p.Defaults()

	first := active == 0
	if first {
		p.Rank = directory.RankAdmin
	}
	if l.config.RegUploads == 0 {
		now := nowUTC()
		p.Registered = &now
	}

	if err := l.dir.Add(ctx, p); err != nil {
		return nil, fmt.Errorf("lounge: add participant: %w", err)
	}
	l.markJoinedOnHub(ctx, senderID)

	l.logger.InfoContext(ctx, "participant joined",
		"participant", senderID,
		"first", first,
	)

	params := presenter.Params{"lounge": l.config.Name}
	if first {
		return presenter.NewNotice(presenter.KindChatJoinFirst, params), nil
	}
	return presenter.NewNotice(presenter.KindChatJoin, params), nil
}

// Leave withdraws the participant: queued deliveries to them are
// retracted and they stop receiving until they rejoin.
func (l *Lounge) Leave(ctx context.Context, senderID int64) (*presenter.Notice, error) {
	p, err := l.dir.Get(ctx, senderID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, Deny(presenter.KindUserNotInChat, nil)
		}
		return nil, fmt.Errorf("lounge: look up leaver: %w", err)
	}
	if !p.IsJoined() {
		return nil, Deny(presenter.KindUserNotInChat, nil)
	}

	l.ForceLeave(ctx, senderID)
	return presenter.NewNotice(presenter.KindChatLeave, nil), nil
}

// markJoinedOnHub records the join on the shared hub, if any.
func (l *Lounge) markJoinedOnHub(ctx context.Context, participantID int64) {
	if l.hub == nil {
		return
	}
	if err := l.hub.MarkJoined(ctx, participantID, l.config.Name); err != nil {
		l.logger.WarnContext(ctx, "hub mark joined",
			"participant", participantID, "error", err)
	}
}
