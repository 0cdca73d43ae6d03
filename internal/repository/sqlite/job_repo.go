package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

var _ repository.JobRepository = (*sqliteJobRepo)(nil)

type sqliteJobRepo struct {
	db *sql.DB
}

// NewSQLiteJobRepository creates a job repository over an opened SQLite database.
func NewSQLiteJobRepository(db *sql.DB) repository.JobRepository {
	return &sqliteJobRepo{db: db}
}

const jobColumns = `
	id, kind, owner_id, file_name, status, total_count, success_count, failed_count,
	source_file_path, generated_artifact_path, failed_reason,
	created_at, updated_at, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*domain.Job, error) {
	job := &domain.Job{}
	var created, updated int64
	var started, finished sql.NullInt64
	err := row.Scan(
		&job.ID, &job.Kind, &job.OwnerID, &job.FileName, &job.Status,
		&job.TotalCount, &job.SuccessCount, &job.FailedCount,
		&job.SourceFilePath, &job.GeneratedArtifactPath, &job.FailedReason,
		&created, &updated, &started, &finished,
	)
	if err != nil {
		return nil, err
	}
	job.CreatedAt = fromNanos(created)
	job.UpdatedAt = fromNanos(updated)
	job.StartedAt = fromNullNanos(started)
	job.FinishedAt = fromNullNanos(finished)
	return job, nil
}

func (r *sqliteJobRepo) Create(ctx context.Context, job *domain.Job) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin create: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO batch_jobs (kind, owner_id, file_name, status, total_count, source_file_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(job.Kind), job.OwnerID, job.FileName, string(domain.StatusPending),
		len(job.Items), job.SourceFilePath, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: job id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO job_items (job_id, position, identifier, fields, outcome) VALUES (?, ?, ?, ?, '')`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare items: %w", err)
	}
	defer stmt.Close()

	for _, it := range job.Items {
		fields, err := encodeFields(it.Fields)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, id, it.Position, it.Identifier, fields); err != nil {
			return fmt.Errorf("sqlite: insert item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit create: %w", err)
	}

	job.ID = id
	job.Status = domain.StatusPending
	job.TotalCount = len(job.Items)
	job.CreatedAt = fromNanos(ts)
	job.UpdatedAt = job.CreatedAt
	return nil
}

func (r *sqliteJobRepo) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM batch_jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get job by id: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT position, identifier, fields, outcome
		FROM job_items
		WHERE job_id = ?
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get job items: %w", err)
	}
	defer rows.Close()

	job.Items = make([]domain.Item, 0, job.TotalCount)
	for rows.Next() {
		var it domain.Item
		var fields string
		if err := rows.Scan(&it.Position, &it.Identifier, &fields, &it.Outcome); err != nil {
			return nil, fmt.Errorf("sqlite: scan job item: %w", err)
		}
		if it.Fields, err = decodeFields(fields); err != nil {
			return nil, err
		}
		job.Items = append(job.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate job items: %w", err)
	}
	return job, nil
}

func (r *sqliteJobRepo) ListByOwner(ctx context.Context, ownerID string, kind domain.JobKind) ([]*domain.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM batch_jobs
		WHERE owner_id = ? AND kind = ?
		ORDER BY created_at DESC, id DESC`, ownerID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("sqlite: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate jobs: %w", err)
	}
	return jobs, nil
}

func (r *sqliteJobRepo) Claim(ctx context.Context, id int64) (bool, error) {
	ts := now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE batch_jobs SET status = ?, started_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(domain.StatusProcessing), ts, ts, id, string(domain.StatusPending))
	if err != nil {
		return false, fmt.Errorf("sqlite: claim job: %w", err)
	}
	if affected(res) == 1 {
		return true, nil
	}
	if _, err := r.statusOf(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *sqliteJobRepo) Checkpoint(ctx context.Context, id int64, cp domain.Checkpoint) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin checkpoint: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE batch_jobs SET success_count = ?, failed_count = ?, updated_at = ?
		WHERE id = ? AND status = ? AND ? + ? <= total_count`,
		cp.SuccessCount, cp.FailedCount, now(), id, string(domain.StatusProcessing),
		cp.SuccessCount, cp.FailedCount)
	if err != nil {
		return fmt.Errorf("sqlite: checkpoint job: %w", err)
	}
	if affected(res) == 0 {
		tx.Rollback()
		return r.rejection(ctx, id)
	}

	for _, it := range cp.Results {
		if _, err := tx.ExecContext(ctx,
			`UPDATE job_items SET outcome = ? WHERE job_id = ? AND position = ?`,
			string(it.Outcome), id, it.Position); err != nil {
			return fmt.Errorf("sqlite: checkpoint item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit checkpoint: %w", err)
	}
	return nil
}

func (r *sqliteJobRepo) Complete(ctx context.Context, id int64, artifactPath string) error {
	ts := now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE batch_jobs
		SET status = ?, generated_artifact_path = ?, finished_at = ?, updated_at = ?
		WHERE id = ? AND status = ? AND success_count + failed_count = total_count`,
		string(domain.StatusCompleted), artifactPath, ts, ts, id, string(domain.StatusProcessing))
	if err != nil {
		return fmt.Errorf("sqlite: complete job: %w", err)
	}
	if affected(res) == 0 {
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

func (r *sqliteJobRepo) Fail(ctx context.Context, id int64, reason string) error {
	ts := now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE batch_jobs
		SET status = ?, failed_reason = ?, finished_at = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		string(domain.StatusFailed), reason, ts, ts, id,
		string(domain.StatusPending), string(domain.StatusProcessing))
	if err != nil {
		return fmt.Errorf("sqlite: fail job: %w", err)
	}
	if affected(res) == 0 {
		return r.rejection(ctx, id)
	}
	return nil
}

func (r *sqliteJobRepo) SetArtifactPath(ctx context.Context, id int64, path string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE batch_jobs SET generated_artifact_path = ?, updated_at = ?
		WHERE id = ? AND status = ? AND success_count > 0`,
		path, now(), id, string(domain.StatusCompleted))
	if err != nil {
		return fmt.Errorf("sqlite: set artifact path: %w", err)
	}
	if affected(res) == 0 {
		return r.rejection(ctx, id)
	}
	return nil
}

func (r *sqliteJobRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM job_items WHERE job_id = ?`, id); err != nil {
		return false, fmt.Errorf("sqlite: delete job items: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM batch_jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("sqlite: delete job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: commit delete: %w", err)
	}
	return affected(res) > 0, nil
}

func (r *sqliteJobRepo) statusOf(ctx context.Context, id int64) (domain.JobStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM batch_jobs WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrJobNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: job status: %w", err)
	}
	return domain.JobStatus(status), nil
}

func (r *sqliteJobRepo) rejection(ctx context.Context, id int64) error {
	if _, err := r.statusOf(ctx, id); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

func affected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

func encodeFields(fields map[string]string) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode fields: %w", err)
	}
	return string(b), nil
}

func decodeFields(s string) (map[string]string, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, fmt.Errorf("sqlite: decode fields: %w", err)
	}
	return fields, nil
}
