package lounge_test

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/lounge"
	"github.com/xraph/lounge/transport"
)

func TestSubmitMediaWithoutGroupRelaysImmediately(t *testing.T) {
	l, ft := setup(t)
	ctx := context.Background()
	join(t, l, 101, "alice")
	join(t, l, 102, "bob")

	l.Start(ctx)
	defer l.Shutdown(ctx)

	item := transport.MediaItem{FileID: "f1", Kind: "photo"}
	if err := l.SubmitMedia(ctx, 102, "", item, lounge.Content{Text: "caption"}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return len(ft.sends()) == 1 })
	s := ft.sends()[0]
	if s.target != 101 || len(s.payload.Media) != 1 || s.payload.Text != "caption" {
		t.Fatalf("unexpected delivery %+v", s)
	}
}

func TestSubmitMediaBatchesGroup(t *testing.T) {
	cfg := lounge.DefaultConfig()
	cfg.RegUploads = 0
	cfg.MediaBatchWindow = 30 * time.Millisecond
	l, ft := setup(t, lounge.WithConfig(cfg))
	ctx := context.Background()
	join(t, l, 101, "alice")
	join(t, l, 102, "bob")

	l.Start(ctx)
	defer l.Shutdown(ctx)

	for i, fid := range []string{"f1", "f2", "f3"} {
		item := transport.MediaItem{FileID: fid, Kind: "photo"}
		content := lounge.Content{}
		if i == 0 {
			content.Text = "album caption"
		}
		if err := l.SubmitMedia(ctx, 102, "group-1", item, content); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, func() bool { return len(ft.sends()) == 1 })
	s := ft.sends()[0]
	if len(s.payload.Media) != 3 {
		t.Fatalf("expected a 3-item album, got %+v", s.payload)
	}
	if s.payload.Text != "album caption" {
		t.Fatalf("first item's caption should apply to the album, got %q", s.payload.Text)
	}
}

func TestSubmitMediaFlushesAtCap(t *testing.T) {
	cfg := lounge.DefaultConfig()
	cfg.RegUploads = 0
	cfg.MediaBatchWindow = 10 * time.Second // far longer than the test deadline
	cfg.MediaBatchSize = 2
	l, ft := setup(t, lounge.WithConfig(cfg))
	ctx := context.Background()
	join(t, l, 101, "alice")
	join(t, l, 102, "bob")

	l.Start(ctx)
	defer l.Shutdown(ctx)

	for _, fid := range []string{"f1", "f2"} {
		item := transport.MediaItem{FileID: fid, Kind: "photo"}
		if err := l.SubmitMedia(ctx, 102, "group-1", item, lounge.Content{}); err != nil {
			t.Fatal(err)
		}
	}

	// The cap preempts the window: the album goes out well before the
	// flush task's timer would fire.
	waitFor(t, func() bool { return len(ft.sends()) == 1 })
	if got := len(ft.sends()[0].payload.Media); got != 2 {
		t.Fatalf("expected a 2-item album, got %d", got)
	}
}
