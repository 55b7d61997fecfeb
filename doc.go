// Package lounge provides an anonymous group-relay engine for Go.
//
// Lounge is a library — not a service. Import it into your chat frontend
// to get priority-ordered message fanout, a per-recipient message
// identity registry with TTL eviction, retry-aware delivery against a
// rate-limited transport, and an ordered authorization rule chain.
//
// Key features:
//   - Fanout with per-recipient priority (rank and recency of activity)
//   - Message registry mapping every relayed copy back to one msid
//   - In-place bounded retries honoring transport rate-limit hints
//   - Join/leave lifecycle, warnings, cooldowns, blacklists, karma votes
//   - Optional cross-lounge hub (Redis) for shared bans and presence
//   - Pluggable directory backends (memory, SQLite via Grove)
//
// Quick start:
//
//	l, err := lounge.New(
//	    lounge.WithDirectory(memory.New()),
//	    lounge.WithTransport(tp),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	l.Start(ctx)
//	defer l.Shutdown(ctx)
//
//	notice, _ := l.Join(ctx, senderID, "username", "Real Name")
//	msid, err := l.Submit(ctx, senderID, lounge.Content{Text: "hello"})
package lounge
