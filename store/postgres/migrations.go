package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// migration is one versioned schema step.
type migration struct {
	Name    string
	Version string
	Up      string
}

// Migrations is the ordered schema history for the fundraise store (PostgreSQL).
var Migrations = []migration{
	{
		Name:    "create_fundraise_projects",
		Version: "20250101000001",
		Up: `
CREATE TABLE IF NOT EXISTS fundraise_projects (
    id              TEXT PRIMARY KEY,
    startup_id      TEXT NOT NULL,
    name            TEXT NOT NULL DEFAULT '',
    funding_goal    BIGINT NOT NULL CHECK (funding_goal > 0),
    current_funding BIGINT NOT NULL DEFAULT 0 CHECK (current_funding >= 0),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    amount           BIGINT NOT NULL CHECK (amount > 0),
    investment_share BIGINT NOT NULL DEFAULT 0,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_fundraise_subscriptions_investor_project
    ON fundraise_subscriptions (investor_id, project_id);
CREATE INDEX IF NOT EXISTS idx_fundraise_subscriptions_project ON fundraise_subscriptions (project_id, created_at);
CREATE INDEX IF NOT EXISTS idx_fundraise_subscriptions_investor ON fundraise_subscriptions (investor_id, created_at);
`,
	},
}

// migrationLockKey serializes concurrent Migrate calls across processes.
const migrationLockKey = 0x66756e64

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS fundraise_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, m := range Migrations {
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
				return err
			}
			var applied bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM fundraise_migrations WHERE version = $1)`, m.Version,
			).Scan(&applied); err != nil {
				return err
			}
			if applied {
				return nil
			}
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO fundraise_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
	}
	return nil
}
