package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migration is one versioned schema step.
type migration struct {
	Name    string
	Version string
	Up      string
}

// Migrations is the ordered schema history for the fundraise store (SQLite).
var Migrations = []migration{
	{
		Name:    "create_fundraise_projects",
		Version: "20250101000001",
		Up: `
CREATE TABLE IF NOT EXISTS fundraise_projects (
    id              TEXT PRIMARY KEY,
    startup_id      TEXT NOT NULL,
    name            TEXT NOT NULL DEFAULT '',
    funding_goal    INTEGER NOT NULL CHECK (funding_goal > 0),
    current_funding INTEGER NOT NULL DEFAULT 0 CHECK (current_funding >= 0),
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fundraise_projects_startup ON fundraise_projects (startup_id);
`,
	},
	{
		Name:    "create_fundraise_subscriptions",
		Version: "20250101000002",
		Up: `
CREATE TABLE IF NOT EXISTS fundraise_subscriptions (
    id               TEXT PRIMARY KEY,
    investor_id      TEXT NOT NULL,
    project_id       TEXT NOT NULL REFERENCES fundraise_projects (id),
    amount           INTEGER NOT NULL CHECK (amount > 0),
    investment_share INTEGER NOT NULL DEFAULT 0,
    created_at       INTEGER NOT NULL,
    updated_at       INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_fundraise_subscriptions_investor_project
    ON fundraise_subscriptions (investor_id, project_id);
CREATE INDEX IF NOT EXISTS idx_fundraise_subscriptions_project ON fundraise_subscriptions (project_id, created_at);
CREATE INDEX IF NOT EXISTS idx_fundraise_subscriptions_investor ON fundraise_subscriptions (investor_id, created_at);
`,
	},
}

// migrate applies each pending migration in its own transaction and
// records its version.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS fundraise_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, m := range Migrations {
		var n int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM fundraise_migrations WHERE version = ?`, m.Version,
		).Scan(&n); err != nil {
			return fmt.Errorf("check migration %s: %w", m.Name, err)
		}
		if n > 0 {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, m.Up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fundraise_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			m.Version, m.Name, toMillis(time.Now()),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.Name, err)
		}
	}
	return nil
}
