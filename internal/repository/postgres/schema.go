package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS batch_jobs (
	id                      BIGSERIAL PRIMARY KEY,
	kind                    TEXT        NOT NULL,
	owner_id                TEXT        NOT NULL,
	file_name               TEXT        NOT NULL,
	status                  TEXT        NOT NULL DEFAULT 'PENDING',
	total_count             INTEGER     NOT NULL DEFAULT 0,
	success_count           INTEGER     NOT NULL DEFAULT 0,
	failed_count            INTEGER     NOT NULL DEFAULT 0,
	source_file_path        TEXT        NOT NULL DEFAULT '',
	generated_artifact_path TEXT,
	failed_reason           TEXT,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at              TIMESTAMPTZ,
	finished_at             TIMESTAMPTZ,
	CONSTRAINT batch_jobs_counters CHECK (
		success_count >= 0 AND failed_count >= 0 AND success_count + failed_count <= total_count
	)
);

CREATE INDEX IF NOT EXISTS batch_jobs_owner_kind_created
	ON batch_jobs (owner_id, kind, created_at DESC);

CREATE TABLE IF NOT EXISTS job_items (
	job_id     BIGINT  NOT NULL REFERENCES batch_jobs (id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	identifier TEXT    NOT NULL,
	fields     JSONB   NOT NULL DEFAULT '{}',
	outcome    TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (job_id, position)
);

CREATE TABLE IF NOT EXISTS diamond_references (
	certificate_number TEXT PRIMARY KEY,
	shape              TEXT        NOT NULL DEFAULT '',
	carat              TEXT        NOT NULL DEFAULT '',
	color              TEXT        NOT NULL DEFAULT '',
	clarity            TEXT        NOT NULL DEFAULT '',
	cut                TEXT        NOT NULL DEFAULT '',
	polish             TEXT        NOT NULL DEFAULT '',
	symmetry           TEXT        NOT NULL DEFAULT '',
	fluorescence       TEXT        NOT NULL DEFAULT '',
	measurement        TEXT        NOT NULL DEFAULT '',
	location           TEXT        NOT NULL DEFAULT '',
	stock_id           TEXT        NOT NULL DEFAULT '',
	full_data          JSONB       NOT NULL DEFAULT '{}',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Migrate creates the job and reference tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}
