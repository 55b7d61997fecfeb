package presenter

import (
	"strings"
	"testing"
	"time"
)

func TestRenderCoversEveryKind(t *testing.T) {
	e := NewEnglish()
	params := Params{
		"text": "custom", "id": "a1b2", "count": 3, "remaining": 2,
		"lounge": "lounge", "duration": 5 * time.Minute, "deleted": true,
		"reason": "spam", "contact": "@mods", "level": "regular",
		"name": "anon", "code": "!abc", "tripcode": "anon#pass",
		"description": "debug echo", "enabled": true,
		"until": time.Now().Add(time.Minute), "window": time.Hour,
	}
	for kind := KindCustom; kind <= KindErrMediaTimeout; kind++ {
		if out := e.Render(NewNotice(kind, params)); out == "" {
			t.Fatalf("kind %d rendered empty", kind)
		}
	}
}

func TestRenderCustomText(t *testing.T) {
	e := NewEnglish()
	if out := e.Render(NewNotice(KindCustom, Params{"text": "hello there"})); out != "hello there" {
		t.Fatalf("unexpected render %q", out)
	}
}

func TestRenderUploadToRegister(t *testing.T) {
	e := NewEnglish()
	out := e.Render(NewNotice(KindChatUploadToRegister, Params{"remaining": 2}))
	if !strings.Contains(out, "2") {
		t.Fatalf("expected remaining count in %q", out)
	}
}

func TestRenderBlacklistedIncludesReason(t *testing.T) {
	e := NewEnglish()
	out := e.Render(NewNotice(KindErrBlacklisted, Params{"reason": "spam", "contact": "@mods"}))
	if !strings.Contains(out, "spam") || !strings.Contains(out, "@mods") {
		t.Fatalf("expected reason and contact in %q", out)
	}
}
