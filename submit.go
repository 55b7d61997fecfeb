package lounge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/lounge/directory"
	"github.com/xraph/lounge/gate"
	"github.com/xraph/lounge/presenter"
	"github.com/xraph/lounge/queue"
	"github.com/xraph/lounge/registry"
	"github.com/xraph/lounge/transport"
	"github.com/xraph/lounge/tripcode"
)

// Submission cost weights fed to the spam score keeper.
const (
	scoreText  = 1
	scoreMedia = 2
	scoreSign  = 1
)

// karmaWarnPenalty is subtracted from a participant's karma when one of
// their messages is warned.
const karmaWarnPenalty = 10

// Content is one incoming message to relay.
type Content struct {
	// Text is the message body, or the caption when Media is set.
	Text string

	// Media holds the media items of the message, if any.
	Media []transport.MediaItem

	// SourceMID is the sender-local transport message id of the original,
	// recorded as the sender's own mapping so their copy is addressable
	// for replies and votes.
	SourceMID transport.MessageID

	// ReplyToMSID is the relayed message this one replies to; resolved
	// per recipient at delivery time. Zero when not a reply.
	ReplyToMSID int64

	// Sign appends the sender's public name. Requires signing enabled.
	Sign bool

	// UseTripcode prefixes the sender's derived tripcode.
	UseTripcode bool
}

// Submit relays one message from the sender to every eligible participant.
//
// The whole call runs synchronously on the caller's goroutine and performs
// no network I/O: it authorizes, assigns a message identity, and fans out
// one queued delivery per eligible recipient. The returned msid addresses
// the message for replies, votes and moderation.
//
// Refusals the sender should be told about come back as *Denial.
func (l *Lounge) Submit(ctx context.Context, senderID int64, content Content) (int64, error) {
	p, err := l.dir.Get(ctx, senderID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return 0, Deny(presenter.KindUserNotInChat, nil)
		}
		return 0, fmt.Errorf("lounge: look up sender: %w", err)
	}

	// CanSubmit gates participant actions broadly (a left participant may
	// still rejoin); relaying additionally requires joined membership and
	// registration, so those statuses are refused here.
	res := l.gate.Evaluate(ctx, p)
	switch {
	case !res.CanSubmit:
		if res.Notice != nil {
			return 0, &Denial{Notice: res.Notice}
		}
		return 0, Deny(presenter.KindUserNotInChat, nil)
	case res.Status == gate.StatusUnjoined, res.Status == gate.StatusActiveElsewhere:
		return 0, &Denial{Notice: res.Notice}
	case res.Status == gate.StatusUnregistered:
		// An unregistered sender's media still counts toward the
		// registration threshold even though nothing is relayed.
		if len(content.Media) > 0 {
			return 0, l.countRegistrationUpload(ctx, senderID)
		}
		return 0, &Denial{Notice: res.Notice}
	}

	if p.IsInCooldown() {
		return 0, Deny(presenter.KindErrCooldown, presenter.Params{"until": *p.CooldownUntil})
	}

	if len(content.Media) > 0 && l.config.MediaLimitPeriod > 0 &&
		p.Rank < directory.RankMod &&
		nowUTC().Sub(p.Joined) < l.config.MediaLimitPeriod {
		return 0, Deny(presenter.KindErrMediaLimit, presenter.Params{"window": l.config.MediaLimitPeriod})
	}

	text, denial := l.formatBody(p, content)
	if denial != nil {
		return 0, denial
	}

	cost := scoreText
	if len(content.Media) > 0 {
		cost = scoreMedia
	}
	if content.Sign || content.UseTripcode {
		cost += scoreSign
	}
	if !l.scores.Increase(senderID, cost) {
		if content.Sign {
			return 0, Deny(presenter.KindErrSpammySign, nil)
		}
		return 0, Deny(presenter.KindErrSpammy, nil)
	}

	_, err = l.dir.Modify(ctx, senderID, func(p *directory.Participant) {
		p.LastActive = nowUTC()
		if len(content.Media) > 0 {
			p.MediaCount++
			now := nowUTC()
			p.LastMedia = &now
		}
	})
	if err != nil {
		return 0, fmt.Errorf("lounge: update sender activity: %w", err)
	}

	msid := l.registry.Assign(senderID)
	payload := transport.Payload{Text: text, Media: content.Media}

	n := l.fanout(ctx, p, msid, content, payload)

	if l.metrics != nil {
		l.metrics.SubmittedTotal.Inc()
		l.metrics.QueueDepth.Set(float64(l.queue.Len()))
		l.metrics.RegistrySize.Set(float64(l.registry.Len()))
	}
	l.logger.DebugContext(ctx, "message submitted",
		"msid", msid,
		"sender", senderID,
		"recipients", n,
		"media", len(content.Media),
	)
	return msid, nil
}

// fanout enqueues one send job per eligible recipient and handles the
// sender's own copy. Returns the number of jobs enqueued.
func (l *Lounge) fanout(ctx context.Context, sender *directory.Participant, msid int64, content Content, payload transport.Payload) int {
	parts, err := l.dir.All(ctx)
	if err != nil {
		l.logger.ErrorContext(ctx, "fanout: list participants", "error", err)
		return 0
	}

	n := 0
	for _, part := range parts {
		if part.ID == sender.ID {
			// The sender already has the original in their chat; map it
			// instead of echoing, unless they asked for echo copies.
			if !sender.DebugEnabled {
				if content.SourceMID != 0 {
					l.registry.RecordMapping(msid, sender.ID, content.SourceMID)
				}
				continue
			}
		}
		res := l.gate.Evaluate(ctx, part)
		if !res.CanReceive {
			continue
		}
		job := queue.NewSend(sender.ID, part.ID, msid, content.ReplyToMSID, payload)
		l.queue.Enqueue(part.MessagePriority(), job)
		n++
	}
	return n
}

// formatBody applies tripcode and signature decoration to the message text.
func (l *Lounge) formatBody(p *directory.Participant, content Content) (string, *Denial) {
	text := content.Text

	if content.UseTripcode {
		if p.Tripcode == "" {
			return "", Deny(presenter.KindErrNoTripcode, nil)
		}
		name, code, err := tripcode.Derive(p.Tripcode)
		if err != nil {
			return "", Deny(presenter.KindErrInvalidTripFormat, nil)
		}
		text = fmt.Sprintf("%s%s:\n%s", name, code, text)
	}

	if content.Sign {
		if !l.config.EnableSigning {
			return "", Deny(presenter.KindErrCommandDisabled, nil)
		}
		if !l.signThrottle.Allow(p.ID) {
			return "", Deny(presenter.KindErrSpammySign, nil)
		}
		text = fmt.Sprintf("%s ~~%s", text, p.FormattedName())
	}

	return text, nil
}

// countRegistrationUpload credits one media upload toward the sender's
// registration threshold and tells them how many remain.
func (l *Lounge) countRegistrationUpload(ctx context.Context, senderID int64) error {
	remaining := 0
	_, err := l.dir.Modify(ctx, senderID, func(p *directory.Participant) {
		now := nowUTC()
		p.MediaCount++
		p.LastMedia = &now
		if p.MediaCount >= l.config.RegUploads && p.Registered == nil {
			p.Registered = &now
		}
		remaining = l.config.RegUploads - p.MediaCount
		if remaining < 0 {
			remaining = 0
		}
	})
	if err != nil {
		return fmt.Errorf("lounge: count registration upload: %w", err)
	}
	l.logger.InfoContext(ctx, "registration upload counted",
		"participant", senderID, "remaining", remaining)
	return Deny(presenter.KindChatUploadToRegister, presenter.Params{"remaining": remaining})
}

// Delete retracts the given messages everywhere: still-queued deliveries
// are cancelled first, already-delivered copies get delete jobs, and the
// registry records are dropped last so late mappings cannot resurrect
// them.
func (l *Lounge) Delete(ctx context.Context, msids []int64) int {
	set := make(map[int64]struct{}, len(msids))
	for _, msid := range msids {
		set[msid] = struct{}{}
	}

	retracted := l.queue.Delete(func(j *queue.Job) bool {
		_, ok := set[j.MSID]
		return ok && j.Kind == queue.KindSend
	})

	// A job popped by a worker after the retraction above may still
	// deliver; its mapping lands in the registry and is caught by the
	// next Delete of the same msid, not this one.
	deletes := 0
	for msid := range set {
		for recipientID, mid := range l.registry.Mappings(msid) {
			prio := directory.UnknownPriority()
			if p, err := l.dir.Get(ctx, recipientID); err == nil {
				prio = p.MessagePriority()
			}
			l.queue.Enqueue(prio, queue.NewDelete(recipientID, msid, mid))
			deletes++
		}
		l.registry.Drop(msid)
	}

	if l.metrics != nil {
		l.metrics.QueueDepth.Set(float64(l.queue.Len()))
		l.metrics.RegistrySize.Set(float64(l.registry.Len()))
	}
	l.logger.DebugContext(ctx, "messages deleted",
		"count", len(msids),
		"retracted", retracted,
		"delete_jobs", deletes,
	)
	return retracted + deletes
}

// StopDeliveries retracts all queued jobs targeting the participant, and
// optionally also every queued job carrying one of their own messages.
func (l *Lounge) StopDeliveries(participantID int64, deleteOutbound bool) int {
	var outbound map[int64]struct{}
	if deleteOutbound {
		outbound = make(map[int64]struct{})
		for _, msid := range l.registry.ByOwner(participantID) {
			outbound[msid] = struct{}{}
		}
	}
	removed := l.queue.Delete(func(j *queue.Job) bool {
		if j.TargetID == participantID {
			return true
		}
		if deleteOutbound {
			if _, ok := outbound[j.MSID]; ok {
				return true
			}
		}
		return false
	})
	if l.metrics != nil {
		l.metrics.QueueDepth.Set(float64(l.queue.Len()))
	}
	return removed
}

// Vote registers an up- or downvote by the voter on the given message and
// adjusts the owner's karma.
func (l *Lounge) Vote(ctx context.Context, voterID, msid int64, up bool) error {
	p, err := l.dir.Get(ctx, voterID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Deny(presenter.KindUserNotInChat, nil)
		}
		return fmt.Errorf("lounge: look up voter: %w", err)
	}
	if !p.IsJoined() {
		return Deny(presenter.KindUserNotInChat, nil)
	}

	if up {
		if !l.upvoteThrottle.Allow(voterID) {
			return Deny(presenter.KindErrSpammyVoteUp, nil)
		}
		err = l.registry.Upvote(msid, voterID)
	} else {
		if !l.downvoteThrottle.Allow(voterID) {
			return Deny(presenter.KindErrSpammyVoteDown, nil)
		}
		err = l.registry.Downvote(msid, voterID)
	}
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return Deny(presenter.KindErrNotInCache, nil)
	case errors.Is(err, registry.ErrOwnMessage):
		return Deny(presenter.KindErrVoteOwnMessage, nil)
	case errors.Is(err, registry.ErrAlreadyVoted):
		if up {
			return Deny(presenter.KindErrAlreadyVotedUp, nil)
		}
		return Deny(presenter.KindErrAlreadyVotedDown, nil)
	case err != nil:
		return fmt.Errorf("lounge: record vote: %w", err)
	}

	ownerID, err := l.registry.Owner(msid)
	if err != nil {
		return Deny(presenter.KindErrNotInCache, nil)
	}

	delta := 1
	if !up {
		delta = -1
	}
	var oldKarma, newKarma int
	var hide bool
	_, err = l.dir.Modify(ctx, ownerID, func(o *directory.Participant) {
		oldKarma = o.Karma
		o.Karma += delta
		newKarma = o.Karma
		hide = o.HideKarma
	})
	if err != nil {
		return fmt.Errorf("lounge: adjust karma: %w", err)
	}

	if !hide {
		l.notify(ctx, ownerID, presenter.NewNotice(presenter.KindKarmaNotification,
			presenter.Params{"count": delta}))
		if oldLvl, newLvl := karmaLevel(oldKarma), karmaLevel(newKarma); oldLvl != newLvl {
			kind := presenter.KindKarmaLevelUp
			if newKarma < oldKarma {
				kind = presenter.KindKarmaLevelDown
			}
			l.notify(ctx, ownerID, presenter.NewNotice(kind, presenter.Params{"level": newLvl}))
		}
	}

	l.logger.DebugContext(ctx, "vote recorded",
		"msid", msid, "voter", voterID, "up", up)
	return nil
}

// nowUTC is the engine's clock.
func nowUTC() time.Time {
	return time.Now().UTC()
}
