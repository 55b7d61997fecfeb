package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the SQLite directory.
var Migrations = migrate.NewGroup("lounge")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_lounge_participants",
			Version: "20250301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS lounge_participants (
    id               INTEGER PRIMARY KEY,
    username         TEXT NOT NULL DEFAULT '',
    realname         TEXT NOT NULL DEFAULT '',
    rank             INTEGER NOT NULL DEFAULT 0,
    joined           TEXT NOT NULL DEFAULT (datetime('now')),
    left             TEXT,
    last_active      TEXT NOT NULL DEFAULT (datetime('now')),
    debug_enabled    INTEGER NOT NULL DEFAULT 0,
    hide_karma       INTEGER NOT NULL DEFAULT 0,
    karma            INTEGER NOT NULL DEFAULT 0,
    warnings         INTEGER NOT NULL DEFAULT 0,
    warn_expiry      TEXT,
    cooldown_until   TEXT,
    blacklist_reason TEXT NOT NULL DEFAULT '',
    blacklisted_at   TEXT,
    registered       TEXT,
    media_count      INTEGER NOT NULL DEFAULT 0,
    last_media       TEXT,
    tripcode         TEXT NOT NULL DEFAULT '',
    created_at       TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_lounge_participants_left ON lounge_participants (left);
CREATE INDEX IF NOT EXISTS idx_lounge_participants_rank ON lounge_participants (rank);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS lounge_participants`)
				return err
			},
		},
	)
}
