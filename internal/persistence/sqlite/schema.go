package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds the full schema as an ordered list of versioned steps.
// Applied versions are recorded in schema_version; Migrate runs only the
// steps past the current version, each inside its own transaction.
var migrations = []string{
	// v1: core tables
	`CREATE TABLE groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('family', 'friends')),
		created_at TEXT NOT NULL,
		ice_breaker_completed_date TEXT
	);
	CREATE TABLE members (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		birthday TEXT
	);
	CREATE TABLE memorials (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		name TEXT NOT NULL
	);
	CREATE TABLE decks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);
	CREATE TABLE prompts (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		question TEXT NOT NULL,
		birthday_type TEXT CHECK (birthday_type IN ('your_birthday', 'their_birthday')),
		deck_id TEXT REFERENCES decks(id),
		deck_order INTEGER NOT NULL DEFAULT 0,
		ice_breaker INTEGER NOT NULL DEFAULT 0,
		dynamic_variables TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE category_preferences (
		group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		category TEXT NOT NULL,
		preference TEXT NOT NULL CHECK (preference IN ('none', 'default', 'weighted')),
		weight REAL NOT NULL DEFAULT 1.0,
		PRIMARY KEY (group_id, category)
	);
	CREATE TABLE group_active_decks (
		group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		deck_id TEXT NOT NULL REFERENCES decks(id),
		PRIMARY KEY (group_id, deck_id)
	);`,

	// v2: the scheduled queue. General slots are unique per (group, date);
	// pinned slots per (group, date, user). The sentinel empty string stands
	// in for NULL user_id inside the unique index.
	`CREATE TABLE daily_slots (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		prompt_id TEXT NOT NULL REFERENCES prompts(id),
		date TEXT NOT NULL,
		user_id TEXT,
		deck_id TEXT REFERENCES decks(id),
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX idx_daily_slots_unique
		ON daily_slots (group_id, date, COALESCE(user_id, ''));
	CREATE INDEX idx_daily_slots_group_date ON daily_slots (group_id, date);`,
}

// Migrate brings the database schema up to the current version.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	var current int
	err := cp.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for version := current + 1; version <= len(migrations); version++ {
		step := migrations[version-1]
		err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(step); err != nil {
				return fmt.Errorf("migration %d failed: %w", version, err)
			}
			if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
