package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // sqlite driver
)

// Connect opens (creating if necessary) the local SQLite store and
// verifies the connection. The caller owns the returned handle.
func Connect(path string, timeout time.Duration) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	// A single logical writer mutates the store; one connection keeps
	// the in-memory DSN usable in tests as well.
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}

	return conn, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS match (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	stream_url TEXT NOT NULL DEFAULT '',
	best_of INTEGER NOT NULL,
	ban_count INTEGER NOT NULL,
	current_game_no INTEGER NOT NULL,
	status TEXT NOT NULL,
	score_a INTEGER NOT NULL,
	score_b INTEGER NOT NULL,
	timer_base_seconds INTEGER NOT NULL DEFAULT 0,
	timer_started_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS team (
	side TEXT PRIMARY KEY,
	match_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	logo_url TEXT NOT NULL DEFAULT '',
	color TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS game (
	match_id INTEGER NOT NULL,
	game_no INTEGER NOT NULL,
	bp_draft_json TEXT,
	bp_published_json TEXT,
	bp_published_at TEXT,
	bp_published_version INTEGER NOT NULL DEFAULT 0,
	bp_locked INTEGER NOT NULL DEFAULT 0,
	result_draft_json TEXT,
	result_published_json TEXT,
	result_published_at TEXT,
	result_published_version INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (match_id, game_no)
);

CREATE TABLE IF NOT EXISTS publish_history (
	match_id INTEGER NOT NULL,
	game_no INTEGER NOT NULL,
	kind TEXT NOT NULL,
	version INTEGER NOT NULL,
	payload_json TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (match_id, game_no, kind, version)
);
`

// Migrate creates the schema. Statements are idempotent, so calling it
// on every boot is safe.
func Migrate(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
