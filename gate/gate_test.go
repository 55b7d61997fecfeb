package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/lounge/directory"
	"github.com/xraph/lounge/directory/memory"
	"github.com/xraph/lounge/transport"
)

type stubSets struct {
	banned map[int64]bool
	active map[int64]bool
}

func (s *stubSets) Banned(id int64) bool          { return s.banned[id] }
func (s *stubSets) ActiveElsewhere(id int64) bool { return s.active[id] }

type stubProbe struct {
	err    error
	probed []int64
}

func (s *stubProbe) Send(context.Context, int64, transport.Payload) (transport.MessageID, error) {
	return 0, errors.New("not implemented")
}
func (s *stubProbe) DeleteMessage(context.Context, int64, transport.MessageID) error {
	return errors.New("not implemented")
}
func (s *stubProbe) Probe(_ context.Context, id int64) error {
	s.probed = append(s.probed, id)
	return s.err
}

type stubLeaver struct {
	left []int64
}

func (s *stubLeaver) ForceLeave(_ context.Context, id int64) {
	s.left = append(s.left, id)
}

func addParticipant(t *testing.T, dir directory.Directory, id int64, mut func(*directory.Participant)) *directory.Participant {
	t.Helper()
	p := &directory.Participant{ID: id}
	p.Defaults()
	now := time.Now().UTC()
	p.Registered = &now
	if mut != nil {
		mut(p)
	}
	if err := dir.Add(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestEvaluateNilParticipant(t *testing.T) {
	g := New(Config{}, memory.New(), nil, nil, nil, nil)
	res := g.Evaluate(context.Background(), nil)
	if res.Status != StatusNone || res.CanSubmit || res.CanReceive {
		t.Fatalf("unknown participant should be denied everything, got %+v", res)
	}
}

func TestBlacklistWinsOverRank(t *testing.T) {
	dir := memory.New()
	p := addParticipant(t, dir, 1, func(p *directory.Participant) {
		p.Rank = directory.RankAdmin
		p.SetBlacklisted("spam")
		p.Rank = directory.RankAdmin // blacklisting demotes; restore to prove precedence
	})
	g := New(Config{BlacklistContact: "@mods"}, dir, nil, nil, nil, nil)

	res := g.Evaluate(context.Background(), p)
	if res.Status != StatusBlacklisted {
		t.Fatalf("expected Blacklisted, got %s", res.Status)
	}
	if res.CanSubmit || res.CanReceive {
		t.Fatal("blacklisted participants get nothing")
	}
	if res.Notice == nil {
		t.Fatal("blacklist result should carry a notice")
	}
}

func TestHubBanIsBlacklist(t *testing.T) {
	dir := memory.New()
	p := addParticipant(t, dir, 1, nil)
	sets := &stubSets{banned: map[int64]bool{1: true}}
	g := New(Config{}, dir, nil, sets, nil, nil)

	if res := g.Evaluate(context.Background(), p); res.Status != StatusBlacklisted {
		t.Fatalf("expected hub ban to blacklist, got %s", res.Status)
	}
}

func TestPrivilegedWinsOverActiveElsewhere(t *testing.T) {
	dir := memory.New()
	p := addParticipant(t, dir, 1, func(p *directory.Participant) {
		p.Rank = directory.RankMod
	})
	sets := &stubSets{active: map[int64]bool{1: true}}
	g := New(Config{}, dir, nil, sets, nil, nil)

	res := g.Evaluate(context.Background(), p)
	if res.Status != StatusPrivileged {
		t.Fatalf("expected Privileged, got %s", res.Status)
	}
	if !res.CanSubmit || !res.CanReceive {
		t.Fatal("a joined mod submits and receives")
	}
}

func TestUsernameOverrideAutoPromotes(t *testing.T) {
	dir := memory.New()
	p := addParticipant(t, dir, 1, func(p *directory.Participant) {
		p.Username = "Operator"
	})
	g := New(Config{PrivilegedUsernames: []string{"operator"}}, dir, nil, nil, nil, nil)

	res := g.Evaluate(context.Background(), p)
	if res.Status != StatusPrivileged {
		t.Fatalf("expected Privileged, got %s", res.Status)
	}
	got, err := dir.Get(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rank != directory.RankAdmin {
		t.Fatalf("expected auto-promotion to admin, got %s", got.Rank)
	}
}

func TestActiveElsewhereCannotReceive(t *testing.T) {
	dir := memory.New()
	p := addParticipant(t, dir, 1, nil)
	sets := &stubSets{active: map[int64]bool{1: true}}
	g := New(Config{}, dir, nil, sets, nil, nil)

	res := g.Evaluate(context.Background(), p)
	if res.Status != StatusActiveElsewhere {
		t.Fatalf("expected ActiveElsewhere, got %s", res.Status)
	}
	if !res.CanSubmit || res.CanReceive {
		t.Fatalf("active elsewhere: submit yes, receive no; got %+v", res)
	}
}

func TestUnjoinedDenied(t *testing.T) {
	dir := memory.New()
	p := addParticipant(t, dir, 1, func(p *directory.Participant) {
		p.SetLeft()
	})
	g := New(Config{}, dir, nil, nil, nil, nil)

	res := g.Evaluate(context.Background(), p)
	if res.Status != StatusUnjoined {
		t.Fatalf("expected Unjoined, got %s", res.Status)
	}
	if !res.CanSubmit || res.CanReceive {
		t.Fatalf("left participants may still act but receive nothing, got %+v", res)
	}
}

func TestUnregisteredPrompted(t *testing.T) {
	dir := memory.New()
	p := addParticipant(t, dir, 1, func(p *directory.Participant) {
		p.Registered = nil
		p.MediaCount = 2
	})
	g := New(Config{RegUploads: 5}, dir, nil, nil, nil, nil)

	res := g.Evaluate(context.Background(), p)
	if res.Status != StatusUnregistered || !res.CanSubmit || res.CanReceive {
		t.Fatalf("expected Unregistered with receive denied, got %+v", res)
	}
	if res.Notice == nil || res.Notice.Params["remaining"] != 3 {
		t.Fatalf("expected remaining=3 in notice, got %+v", res.Notice)
	}
}

func TestMediaTimeoutProbesAndForcesLeave(t *testing.T) {
	dir := memory.New()
	old := time.Now().UTC().Add(-48 * time.Hour)
	p := addParticipant(t, dir, 1, func(p *directory.Participant) {
		p.LastMedia = &old
	})
	probe := &stubProbe{err: transport.ErrRecipientUnreachable}
	leaver := &stubLeaver{}
	g := New(Config{MediaTimeout: 24 * time.Hour}, dir, probe, nil, leaver, nil)

	res := g.Evaluate(context.Background(), p)
	if res.Status != StatusUserLeft {
		t.Fatalf("expected UserLeft, got %s", res.Status)
	}
	if len(probe.probed) != 1 || len(leaver.left) != 1 || leaver.left[0] != 1 {
		t.Fatalf("expected one probe and one forced leave, got %v / %v", probe.probed, leaver.left)
	}
}

func TestMediaTimeoutReachableJustQuiet(t *testing.T) {
	dir := memory.New()
	old := time.Now().UTC().Add(-48 * time.Hour)
	p := addParticipant(t, dir, 1, func(p *directory.Participant) {
		p.LastMedia = &old
	})
	probe := &stubProbe{} // probe succeeds
	leaver := &stubLeaver{}
	g := New(Config{MediaTimeout: 24 * time.Hour}, dir, probe, nil, leaver, nil)

	res := g.Evaluate(context.Background(), p)
	if res.Status != StatusMediaTimeout {
		t.Fatalf("expected MediaTimeout, got %s", res.Status)
	}
	if !res.CanSubmit || res.CanReceive {
		t.Fatal("quiet participants may still post, but receive nothing")
	}
	if len(leaver.left) != 0 {
		t.Fatal("reachable participant must not be force-left")
	}
}

func TestOrdinary(t *testing.T) {
	dir := memory.New()
	p := addParticipant(t, dir, 1, nil)
	g := New(Config{RegUploads: 5}, dir, nil, nil, nil, nil)

	res := g.Evaluate(context.Background(), p)
	if res.Status != StatusOrdinary || !res.CanSubmit || !res.CanReceive {
		t.Fatalf("expected Ordinary with both flags, got %+v", res)
	}
}
