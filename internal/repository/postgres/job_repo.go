package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// Ensure pgJobRepo implements repository.JobRepository.
var _ repository.JobRepository = (*pgJobRepo)(nil)

type pgJobRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresJobRepository creates a new PostgreSQL-backed job repository.
func NewPostgresJobRepository(pool *pgxpool.Pool) repository.JobRepository {
	return &pgJobRepo{pool: pool}
}

const jobColumns = `
	id, kind, owner_id, file_name, status, total_count, success_count, failed_count,
	source_file_path, COALESCE(generated_artifact_path, ''), COALESCE(failed_reason, ''),
	created_at, updated_at, started_at, finished_at`

func scanJob(row pgx.Row) (*domain.Job, error) {
	job := &domain.Job{}
	err := row.Scan(
		&job.ID, &job.Kind, &job.OwnerID, &job.FileName, &job.Status,
		&job.TotalCount, &job.SuccessCount, &job.FailedCount,
		&job.SourceFilePath, &job.GeneratedArtifactPath, &job.FailedReason,
		&job.CreatedAt, &job.UpdatedAt, &job.StartedAt, &job.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *pgJobRepo) Create(ctx context.Context, job *domain.Job) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO batch_jobs (kind, owner_id, file_name, status, total_count, source_file_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, query,
		job.Kind, job.OwnerID, job.FileName, domain.StatusPending, len(job.Items), job.SourceFilePath,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create job: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"job_items"},
		[]string{"job_id", "position", "identifier", "fields", "outcome"},
		pgx.CopyFromSlice(len(job.Items), func(i int) ([]any, error) {
			it := job.Items[i]
			fields := it.Fields
			if fields == nil {
				fields = map[string]string{}
			}
			return []any{job.ID, it.Position, it.Identifier, fields, string(domain.OutcomePending)}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("postgres: copy job items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit create: %w", err)
	}

	job.Status = domain.StatusPending
	job.TotalCount = len(job.Items)
	return nil
}

func (r *pgJobRepo) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	job, err := scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM batch_jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get job by id: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT position, identifier, fields, outcome
		FROM job_items
		WHERE job_id = $1
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: get job items: %w", err)
	}
	defer rows.Close()

	job.Items = make([]domain.Item, 0, job.TotalCount)
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.Position, &it.Identifier, &it.Fields, &it.Outcome); err != nil {
			return nil, fmt.Errorf("postgres: scan job item: %w", err)
		}
		job.Items = append(job.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate job items: %w", err)
	}
	return job, nil
}

func (r *pgJobRepo) ListByOwner(ctx context.Context, ownerID string, kind domain.JobKind) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM batch_jobs
		WHERE owner_id = $1 AND kind = $2
		ORDER BY created_at DESC, id DESC`, ownerID, kind)
	if err != nil {
		return nil, fmt.Errorf("postgres: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate jobs: %w", err)
	}
	return jobs, nil
}

func (r *pgJobRepo) Claim(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE batch_jobs
		SET status = $2, started_at = now(), updated_at = now()
		WHERE id = $1 AND status = $3`
	tag, err := r.pool.Exec(ctx, query, id, domain.StatusProcessing, domain.StatusPending)
	if err != nil {
		return false, fmt.Errorf("postgres: claim job: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := r.statusOf(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *pgJobRepo) Checkpoint(ctx context.Context, id int64, cp domain.Checkpoint) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin checkpoint: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE batch_jobs
		SET success_count = $2, failed_count = $3, updated_at = now()
		WHERE id = $1 AND status = $4 AND $2 + $3 <= total_count`,
		id, cp.SuccessCount, cp.FailedCount, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("postgres: checkpoint job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		tx.Rollback(ctx)
		return r.rejection(ctx, id)
	}

	if len(cp.Results) > 0 {
		batch := &pgx.Batch{}
		for _, res := range cp.Results {
			batch.Queue(`UPDATE job_items SET outcome = $3 WHERE job_id = $1 AND position = $2`,
				id, res.Position, res.Outcome)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("postgres: checkpoint items: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit checkpoint: %w", err)
	}
	return nil
}

func (r *pgJobRepo) Complete(ctx context.Context, id int64, artifactPath string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE batch_jobs
		SET status = $2, generated_artifact_path = NULLIF($3, ''), finished_at = now(), updated_at = now()
		WHERE id = $1 AND status = $4 AND success_count + failed_count = total_count`,
		id, domain.StatusCompleted, artifactPath, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("postgres: complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		status, err := r.statusOf(ctx, id)
		if err != nil {
			return err
		}
		if status == domain.StatusProcessing {
			return domain.ErrIncompleteProgress
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *pgJobRepo) Fail(ctx context.Context, id int64, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE batch_jobs
		SET status = $2, failed_reason = $3, finished_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ($4, $5)`,
		id, domain.StatusFailed, reason, domain.StatusPending, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("postgres: fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.rejection(ctx, id)
	}
	return nil
}

func (r *pgJobRepo) SetArtifactPath(ctx context.Context, id int64, path string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE batch_jobs
		SET generated_artifact_path = $2, updated_at = now()
		WHERE id = $1 AND status = $3 AND success_count > 0`,
		id, path, domain.StatusCompleted)
	if err != nil {
		return fmt.Errorf("postgres: set artifact path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.rejection(ctx, id)
	}
	return nil
}

func (r *pgJobRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM batch_jobs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("postgres: delete job: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgJobRepo) statusOf(ctx context.Context, id int64) (domain.JobStatus, error) {
	var status domain.JobStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM batch_jobs WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrJobNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres: job status: %w", err)
	}
	return status, nil
}

// rejection explains why a conditional update touched no rows.
func (r *pgJobRepo) rejection(ctx context.Context, id int64) error {
	if _, err := r.statusOf(ctx, id); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}
