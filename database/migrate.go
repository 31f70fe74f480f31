package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Logs reference presentations by token only, so removing a presentation
// leaves its history in place.
const schema = `
CREATE TABLE IF NOT EXISTS clients (
    id text PRIMARY KEY,
    name text NOT NULL,
    email text NOT NULL DEFAULT '',
    company text NOT NULL DEFAULT '',
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS presentations (
    id text PRIMARY KEY,
    title text NOT NULL,
    source_url text NOT NULL,
    ploomes_deal_id text NOT NULL DEFAULT '',
    client_id text NOT NULL DEFAULT '',
    token text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    CONSTRAINT presentations_token_unique UNIQUE (token)
);

CREATE TABLE IF NOT EXISTS access_logs (
    id text PRIMARY KEY,
    token text NOT NULL,
    kind text NOT NULL,
    ts timestamptz NOT NULL,
    user_agent text,
    slide_index integer,
    duration_ms bigint
);

CREATE INDEX IF NOT EXISTS access_logs_token_idx
ON access_logs (token);

CREATE INDEX IF NOT EXISTS access_logs_stay_idx
ON access_logs (token, slide_index, ts DESC)
WHERE kind = 'STAY';
`

func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
