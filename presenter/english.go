package presenter

import (
	"fmt"
	"time"
)

// English is the built-in English presenter.
type English struct{}

// compile-time interface check.
var _ Presenter = (*English)(nil)

// NewEnglish returns the built-in English presenter.
func NewEnglish() *English { return &English{} }

// Render formats a notice as English text.
func (e *English) Render(n *Notice) string {
	p := n.Params
	switch n.Kind {
	case KindCustom:
		return str(p["text"])
	case KindSuccess:
		return "done"
	case KindSuccessDelete:
		return fmt.Sprintf("the message by %s has been deleted", str(p["id"]))
	case KindSuccessDeleteAll:
		return fmt.Sprintf("all %d messages by %s have been deleted", num(p["count"]), str(p["id"]))
	case KindSuccessWarn:
		return withCooldown(fmt.Sprintf("%s has been warned", str(p["id"])), p)
	case KindSuccessWarnDelete:
		return withCooldown(fmt.Sprintf("%s has been warned", str(p["id"])), p) + " and the message was deleted"
	case KindSuccessWarnDeleteAll:
		return withCooldown(fmt.Sprintf("%s has been warned", str(p["id"])), p) +
			fmt.Sprintf(" and all %d messages were deleted", num(p["count"]))
	case KindSuccessBlacklist:
		return fmt.Sprintf("%s has been blacklisted and the message was deleted", str(p["id"]))
	case KindSuccessBlacklistDeleteAll:
		return fmt.Sprintf("%s has been blacklisted and all %d messages were deleted", str(p["id"]), num(p["count"]))
	case KindSuccessWhitelist:
		return fmt.Sprintf("%s has been whitelisted and may rejoin", str(p["id"]))
	case KindBooleanConfig:
		state := "disabled"
		if b, _ := p["enabled"].(bool); b {
			state = "enabled"
		}
		return fmt.Sprintf("%s: %s", str(p["description"]), state)

	case KindChatJoin:
		return fmt.Sprintf("you joined the %s lounge", str(p["lounge"]))
	case KindChatJoinFirst:
		return fmt.Sprintf("you are the first to join %s and were made an admin automatically", str(p["lounge"]))
	case KindChatRejoin:
		return "welcome back, you rejoined the lounge"
	case KindChatLeave:
		return "you left the lounge"
	case KindChatUploadToRegister:
		return fmt.Sprintf("please upload %d more piece(s) of media to complete registration", num(p["remaining"]))
	case KindUserNotInChat:
		return "you are not in the lounge yet, use /start to join"

	case KindGivenCooldown:
		msg := "you've been warned"
		if d, ok := p["duration"].(time.Duration); ok && d > 0 {
			msg += fmt.Sprintf(" and can't send messages for %s", formatDuration(d))
		}
		if del, _ := p["deleted"].(bool); del {
			msg += " (message deleted)"
		}
		return msg
	case KindMessageDeleted:
		return "your message has been deleted"
	case KindDeletionQueued:
		return fmt.Sprintf("%d messages matched, deletion queued", num(p["count"]))
	case KindPromotedMod:
		return "you have been promoted to moderator, review /help for new commands"
	case KindPromotedAdmin:
		return "you have been promoted to admin, review /help for new commands"

	case KindKarmaVotedUp:
		return "you upvoted this message"
	case KindKarmaVotedDown:
		return "you downvoted this message"
	case KindKarmaNotification:
		if num(p["count"]) >= 0 {
			return "you have received karma (check /karmainfo)"
		}
		return "you have lost karma (check /karmainfo)"
	case KindKarmaLevelUp:
		return fmt.Sprintf("you have reached karma level %s", str(p["level"]))
	case KindKarmaLevelDown:
		return fmt.Sprintf("you have dropped to karma level %s", str(p["level"]))

	case KindTripcodeInfo:
		return fmt.Sprintf("tripcode: %s", str(p["tripcode"]))
	case KindTripcodeSet:
		return fmt.Sprintf("tripcode set: %s %s", str(p["name"]), str(p["code"]))

	case KindErrCommandDisabled:
		return "this command has been disabled"
	case KindErrNotInCache:
		return "message not found (too old?)"
	case KindErrNoUser:
		return "no user found by that name"
	case KindErrAlreadyWarned:
		return "this message has already been warned"
	case KindErrInvalidDuration:
		return "invalid duration"
	case KindErrNotInCooldown:
		return "this user is not in a cooldown"
	case KindErrCooldown:
		if until, ok := p["until"].(time.Time); ok {
			return fmt.Sprintf("you're on cooldown until %s", until.Format(time.RFC1123))
		}
		return "you're on cooldown"
	case KindErrBlacklisted:
		msg := "you've been blacklisted"
		if r := str(p["reason"]); r != "" {
			msg += " for " + r
		}
		if c := str(p["contact"]); c != "" {
			msg += ", contact " + c
		}
		return msg
	case KindErrActiveElsewhere:
		if l := str(p["lounge"]); l != "" {
			return fmt.Sprintf("you are currently active in %s; leave it before posting here", l)
		}
		return "you are currently active in another lounge"
	case KindErrChatFull:
		return "the lounge is full, try again later"
	case KindErrRegClosed:
		return "registration is closed"
	case KindErrAlreadyVotedUp:
		return "you already upvoted this message"
	case KindErrAlreadyVotedDown:
		return "you already downvoted this message"
	case KindErrVoteOwnMessage:
		return "you can't vote on your own message"
	case KindErrSpammy:
		return "your message has not been sent, avoid sending messages too fast"
	case KindErrSpammySign:
		return "your message has not been sent, avoid using sign too often"
	case KindErrSpammyVoteUp:
		return "you upvoted recently, wait a bit"
	case KindErrSpammyVoteDown:
		return "you downvoted recently, wait a bit"
	case KindErrInvalidTripFormat:
		return "invalid tripcode format, expected name#pass"
	case KindErrNoTripcode:
		return "you don't have a tripcode set, use /tripcode"
	case KindErrMediaLimit:
		if d, ok := p["window"].(time.Duration); ok {
			return fmt.Sprintf("you can't send media or forwards during your first %s here", formatDuration(d))
		}
		return "you can't send media or forwards yet"
	case KindErrMediaTimeout:
		return "you haven't posted media recently enough to receive messages"
	}
	return fmt.Sprintf("notice %d", n.Kind)
}

func withCooldown(msg string, p Params) string {
	if d, ok := p["cooldown"].(time.Duration); ok && d > 0 {
		return msg + fmt.Sprintf(" (cooldown: %s)", formatDuration(d))
	}
	return msg
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func num(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

// formatDuration renders a duration in the largest sensible unit.
func formatDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours())/24)
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d >= time.Minute:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
