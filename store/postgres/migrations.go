package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the mailwarden store (PostgreSQL).
var Migrations = migrate.NewGroup("mailwarden")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_roles",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS mailwarden_roles (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL UNIQUE,
    description     TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS mailwarden_roles`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_assignments",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS mailwarden_assignments (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL UNIQUE,
    role_id         TEXT NOT NULL REFERENCES mailwarden_roles(id),
    role_name       TEXT NOT NULL,
    exclusive       BOOLEAN NOT NULL DEFAULT FALSE,
    granted_by      TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_mailwarden_assignments_exclusive
    ON mailwarden_assignments (exclusive) WHERE exclusive;
CREATE INDEX IF NOT EXISTS idx_mailwarden_assignments_role ON mailwarden_assignments (role_name);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS mailwarden_assignments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_daily_quotas",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS mailwarden_daily_quotas (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    day             CHAR(10) NOT NULL,
    sent_count      INTEGER NOT NULL DEFAULT 0 CHECK (sent_count >= 0),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, day)
);

CREATE INDEX IF NOT EXISTS idx_mailwarden_daily_quotas_day ON mailwarden_daily_quotas (day);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS mailwarden_daily_quotas`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_settings",
			Version: "20260101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS mailwarden_settings (
    name            TEXT PRIMARY KEY,
    enabled         BOOLEAN NOT NULL DEFAULT FALSE,
    api_key         TEXT NOT NULL DEFAULT '',
    role_limits     JSONB NOT NULL DEFAULT '{}',
    version         BIGINT NOT NULL DEFAULT 0,
    updated_by      TEXT NOT NULL DEFAULT '',
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS mailwarden_settings`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_check_logs",
			Version: "20260101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS mailwarden_check_logs (
    id              TEXT PRIMARY KEY,
    kind            TEXT NOT NULL,
    actor_id        TEXT NOT NULL,
    target_id       TEXT NOT NULL DEFAULT '',
    role            TEXT NOT NULL,
    action          TEXT NOT NULL,
    allowed         BOOLEAN NOT NULL,
    reason          TEXT NOT NULL DEFAULT '',
    eval_time_ns    BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_mailwarden_check_logs_actor ON mailwarden_check_logs (actor_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_mailwarden_check_logs_created ON mailwarden_check_logs (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS mailwarden_check_logs`)
				return err
			},
		},
	)
}
