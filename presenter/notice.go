// Package presenter renders user-visible notices from typed notice kinds.
//
// The engine never builds user-facing text itself: it emits a Notice (kind
// plus parameters) and a Presenter turns it into localized text. The
// built-in English presenter covers every kind the engine produces.
package presenter

// NoticeKind identifies one user-visible notice template.
type NoticeKind int

// Notice kinds emitted by the engine.
const (
	KindCustom NoticeKind = iota
	KindSuccess
	KindSuccessDelete
	KindSuccessDeleteAll
	KindSuccessWarn
	KindSuccessWarnDelete
	KindSuccessWarnDeleteAll
	KindSuccessBlacklist
	KindSuccessBlacklistDeleteAll
	KindSuccessWhitelist
	KindBooleanConfig

	KindChatJoin
	KindChatJoinFirst
	KindChatRejoin
	KindChatLeave
	KindChatUploadToRegister
	KindUserNotInChat

	KindGivenCooldown
	KindMessageDeleted
	KindDeletionQueued
	KindPromotedMod
	KindPromotedAdmin

	KindKarmaVotedUp
	KindKarmaVotedDown
	KindKarmaNotification
	KindKarmaLevelUp
	KindKarmaLevelDown

	KindTripcodeInfo
	KindTripcodeSet

	KindErrCommandDisabled
	KindErrNotInCache
	KindErrNoUser
	KindErrAlreadyWarned
	KindErrInvalidDuration
	KindErrNotInCooldown
	KindErrCooldown
	KindErrBlacklisted
	KindErrActiveElsewhere
	KindErrChatFull
	KindErrRegClosed
	KindErrAlreadyVotedUp
	KindErrAlreadyVotedDown
	KindErrVoteOwnMessage
	KindErrSpammy
	KindErrSpammySign
	KindErrSpammyVoteUp
	KindErrSpammyVoteDown
	KindErrInvalidTripFormat
	KindErrNoTripcode
	KindErrMediaLimit
	KindErrMediaTimeout
)

// Params carries the template parameters of a notice.
type Params map[string]any

// Notice is one renderable user-visible message.
type Notice struct {
	Kind   NoticeKind
	Params Params
}

// NewNotice builds a notice with the given kind and parameters.
func NewNotice(kind NoticeKind, params Params) *Notice {
	if params == nil {
		params = Params{}
	}
	return &Notice{Kind: kind, Params: params}
}

// Presenter renders notices into user-visible text. Implementations own
// localization; the engine never inspects the rendered output.
type Presenter interface {
	Render(n *Notice) string
}
