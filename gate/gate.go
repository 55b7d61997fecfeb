// Package gate implements the deterministic authorization decision for
// every participant action.
//
// Evaluate walks a fixed-order rule chain; the first matching rule wins
// regardless of any later rule's truth (a blacklisted admin is
// blacklisted, a mod who is active elsewhere is still privileged). Side
// effects — auto-promotion, forced leave — are explicit, logged, and
// applied through the Directory's atomic per-record update, never through
// ambient mutation.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/lounge/directory"
	"github.com/xraph/lounge/presenter"
	"github.com/xraph/lounge/transport"
)

// ExternalSets exposes the shared-hub membership sets consulted by the
// rule chain. A nil ExternalSets means single-lounge mode: nobody is
// hub-banned or active elsewhere.
type ExternalSets interface {
	// Banned reports whether the participant is banned across all
	// lounges.
	Banned(id int64) bool

	// ActiveElsewhere reports whether the participant is currently
	// joined to a different lounge.
	ActiveElsewhere(id int64) bool
}

// LeaveEnforcer applies the forced-leave side effect when a probe shows
// the participant is gone. Implementations must also retract the
// participant's queued deliveries.
type LeaveEnforcer interface {
	ForceLeave(ctx context.Context, participantID int64)
}

// Config carries the policy knobs of the rule chain.
type Config struct {
	// PrivilegedUsernames are identity overrides: a matching participant
	// is treated as privileged and auto-promoted to admin.
	PrivilegedUsernames []string

	// BlacklistContact is included in blacklist notices.
	BlacklistContact string

	// RegUploads is the media upload threshold for registration;
	// zero disables the threshold (everyone counts as registered).
	RegUploads int

	// MediaTimeout is the keepalive window: participants whose last
	// media post is older stop receiving. Zero disables the rule.
	MediaTimeout time.Duration
}

// Gate evaluates the authorization rule chain.
type Gate struct {
	cfg     Config
	dir     directory.Directory
	probe   transport.Transport
	sets    ExternalSets
	leaver  LeaveEnforcer
	logger  *slog.Logger
	nowFunc func() time.Time
}

// New creates a gate. sets may be nil (single-lounge mode); probe may be
// nil, which disables the liveness-probe rules.
func New(cfg Config, dir directory.Directory, probe transport.Transport, sets ExternalSets, leaver LeaveEnforcer, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		cfg:     cfg,
		dir:     dir,
		probe:   probe,
		sets:    sets,
		leaver:  leaver,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Evaluate runs the rule chain for p. p may be nil (unknown participant).
func (g *Gate) Evaluate(ctx context.Context, p *directory.Participant) Result {
	// 1. Unknown participant.
	if p == nil {
		return Result{
			Status: StatusNone,
			Log:    "unknown participant",
		}
	}

	// 2. Blacklisted, locally or across the hub.
	if p.IsBlacklisted() || (g.sets != nil && g.sets.Banned(p.ID)) {
		reason := p.BlacklistReason
		if reason == "" {
			reason = "banned across all lounges"
		}
		return Result{
			Status: StatusBlacklisted,
			Notice: presenter.NewNotice(presenter.KindErrBlacklisted, presenter.Params{
				"reason":  reason,
				"contact": g.cfg.BlacklistContact,
			}),
			Log: fmt.Sprintf("%s is blacklisted: %s", p.FormattedName(), reason),
		}
	}

	// 3. Privileged: rank, or a configured identity override which also
	// auto-promotes.
	if p.Rank >= directory.RankMod {
		return g.privileged(p)
	}
	if g.matchesOverride(p.Username) {
		promoted, err := g.dir.Modify(ctx, p.ID, func(rec *directory.Participant) {
			if rec.Rank < directory.RankAdmin {
				rec.Rank = directory.RankAdmin
			}
		})
		if err != nil {
			g.logger.WarnContext(ctx, "auto-promotion failed",
				"participant", p.ID, "error", err)
			return g.privileged(p)
		}
		g.logger.InfoContext(ctx, "auto-promoted privileged identity",
			"participant", promoted.ID, "rank", promoted.Rank.String())
		return g.privileged(promoted)
	}

	// 4. Active in another lounge: may rejoin here, receives nothing.
	if g.sets != nil && g.sets.ActiveElsewhere(p.ID) {
		return Result{
			Status:    StatusActiveElsewhere,
			CanSubmit: true,
			Notice:    presenter.NewNotice(presenter.KindErrActiveElsewhere, nil),
			Log:       fmt.Sprintf("%s is active elsewhere", p.FormattedName()),
		}
	}

	// 5. Not joined: may still act (rejoin, commands), receives nothing.
	if !p.IsJoined() {
		return Result{
			Status:    StatusUnjoined,
			CanSubmit: true,
			Notice:    presenter.NewNotice(presenter.KindUserNotInChat, nil),
			Log:       fmt.Sprintf("%s is not joined", p.FormattedName()),
		}
	}

	// 6. Not registered yet: may act, receives nothing until the upload
	// threshold is met.
	if g.cfg.RegUploads > 0 && !p.IsRegistered() {
		remaining := g.cfg.RegUploads - p.MediaCount
		if remaining < 0 {
			remaining = 0
		}
		return Result{
			Status:    StatusUnregistered,
			CanSubmit: true,
			Notice: presenter.NewNotice(presenter.KindChatUploadToRegister, presenter.Params{
				"remaining": remaining,
			}),
			Log: fmt.Sprintf("%s is not registered", p.FormattedName()),
		}
	}

	// 7/8. Media keepalive lapsed: probe before deciding, since a silent
	// participant may simply be gone.
	if g.mediaTimedOut(p) {
		return g.probeStale(ctx, p)
	}

	// 9. Ordinary participant in good standing.
	return Result{
		Status:     StatusOrdinary,
		CanSubmit:  true,
		CanReceive: true,
		Log:        fmt.Sprintf("%s is ordinary", p.FormattedName()),
	}
}

func (g *Gate) privileged(p *directory.Participant) Result {
	return Result{
		Status:     StatusPrivileged,
		CanSubmit:  true,
		CanReceive: p.IsJoined(),
		Log:        fmt.Sprintf("%s is privileged (%s)", p.FormattedName(), p.Rank),
	}
}

func (g *Gate) matchesOverride(username string) bool {
	if username == "" {
		return false
	}
	for _, o := range g.cfg.PrivilegedUsernames {
		if strings.EqualFold(username, o) {
			return true
		}
	}
	return false
}

// mediaTimedOut reports whether the participant's keepalive window has
// lapsed. The baseline is their last media post, falling back to their
// registration and join times for participants who never posted.
func (g *Gate) mediaTimedOut(p *directory.Participant) bool {
	if g.cfg.MediaTimeout <= 0 {
		return false
	}
	baseline := p.Joined
	if p.Registered != nil {
		baseline = *p.Registered
	}
	if p.LastMedia != nil {
		baseline = *p.LastMedia
	}
	return g.nowFunc().UTC().Sub(baseline) > g.cfg.MediaTimeout
}

// probeStale handles the stale-media rules: a non-mutating liveness probe
// decides between MediaTimeout (still reachable, just quiet), UserLeft
// (unreachable — forced leave) and ChatNotFound (chat no longer resolves —
// forced leave).
func (g *Gate) probeStale(ctx context.Context, p *directory.Participant) Result {
	if g.probe != nil {
		err := g.probe.Probe(ctx, p.ID)
		switch {
		case errors.Is(err, transport.ErrRecipientUnreachable):
			g.forceLeave(ctx, p, "unreachable on probe")
			return Result{
				Status: StatusUserLeft,
				Log:    fmt.Sprintf("%s left (unreachable on probe)", p.FormattedName()),
			}
		case errors.Is(err, transport.ErrChatNotFound):
			g.forceLeave(ctx, p, "chat not found")
			return Result{
				Status: StatusChatNotFound,
				Log:    fmt.Sprintf("%s left (chat not found)", p.FormattedName()),
			}
		case err != nil:
			// Probe itself failed; keep the participant and fall through
			// to the media-timeout outcome.
			g.logger.WarnContext(ctx, "liveness probe failed",
				"participant", p.ID, "error", err)
		}
	}

	return Result{
		Status:    StatusMediaTimeout,
		CanSubmit: true,
		Notice:    presenter.NewNotice(presenter.KindErrMediaTimeout, nil),
		Log:       fmt.Sprintf("%s hit the media timeout", p.FormattedName()),
	}
}

func (g *Gate) forceLeave(ctx context.Context, p *directory.Participant, why string) {
	g.logger.InfoContext(ctx, "forcing participant to leave",
		"participant", p.ID, "reason", why)
	if g.leaver != nil {
		g.leaver.ForceLeave(ctx, p.ID)
	}
}
