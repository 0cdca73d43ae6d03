// Package sqlite is an embedded job and reference store for single-host
// deployments and tests. It mirrors the postgres package over database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS batch_jobs (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	kind                    TEXT    NOT NULL,
	owner_id                TEXT    NOT NULL,
	file_name               TEXT    NOT NULL,
	status                  TEXT    NOT NULL DEFAULT 'PENDING',
	total_count             INTEGER NOT NULL DEFAULT 0,
	success_count           INTEGER NOT NULL DEFAULT 0,
	failed_count            INTEGER NOT NULL DEFAULT 0,
	source_file_path        TEXT    NOT NULL DEFAULT '',
	generated_artifact_path TEXT    NOT NULL DEFAULT '',
	failed_reason           TEXT    NOT NULL DEFAULT '',
	created_at              INTEGER NOT NULL,
	updated_at              INTEGER NOT NULL,
	started_at              INTEGER,
	finished_at             INTEGER,
	CHECK (success_count >= 0 AND failed_count >= 0 AND success_count + failed_count <= total_count)
);

CREATE INDEX IF NOT EXISTS batch_jobs_owner_kind_created
	ON batch_jobs (owner_id, kind, created_at DESC);

CREATE TABLE IF NOT EXISTS job_items (
	job_id     INTEGER NOT NULL,
	position   INTEGER NOT NULL,
	identifier TEXT    NOT NULL,
	fields     TEXT    NOT NULL DEFAULT '{}',
	outcome    TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (job_id, position)
);

CREATE TABLE IF NOT EXISTS diamond_references (
	certificate_number TEXT PRIMARY KEY,
	shape              TEXT    NOT NULL DEFAULT '',
	carat              TEXT    NOT NULL DEFAULT '',
	color              TEXT    NOT NULL DEFAULT '',
	clarity            TEXT    NOT NULL DEFAULT '',
	cut                TEXT    NOT NULL DEFAULT '',
	polish             TEXT    NOT NULL DEFAULT '',
	symmetry           TEXT    NOT NULL DEFAULT '',
	fluorescence       TEXT    NOT NULL DEFAULT '',
	measurement        TEXT    NOT NULL DEFAULT '',
	location           TEXT    NOT NULL DEFAULT '',
	stock_id           TEXT    NOT NULL DEFAULT '',
	full_data          TEXT    NOT NULL DEFAULT '{}',
	created_at         INTEGER NOT NULL,
	updated_at         INTEGER NOT NULL
);`

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: pragma: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return db, nil
}

func now() int64 {
	return time.Now().UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}
