package repository

import (
	"context"

	"github.com/Harsh-BH/certqueue/internal/domain"
)

// JobRepository defines the interface for job persistence operations.
// Implementations must be safe for concurrent use.
type JobRepository interface {
	// Create inserts a new PENDING job with its items and assigns job.ID.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job and its items.
	GetByID(ctx context.Context, id int64) (*domain.Job, error)

	// ListByOwner returns the owner's jobs of one kind, newest first, without items.
	ListByOwner(ctx context.Context, ownerID string, kind domain.JobKind) ([]*domain.Job, error)

	// Claim performs the PENDING -> PROCESSING transition. It returns false
	// when the job exists but was not PENDING.
	Claim(ctx context.Context, id int64) (bool, error)

	// Checkpoint persists absolute counters and item outcomes of a PROCESSING job.
	Checkpoint(ctx context.Context, id int64, cp domain.Checkpoint) error

	// Complete moves a PROCESSING job whose counters cover every item to COMPLETED.
	// A non-empty artifactPath is stored in the same write.
	Complete(ctx context.Context, id int64, artifactPath string) error

	// Fail moves a non-terminal job to FAILED and records the reason.
	Fail(ctx context.Context, id int64, reason string) error

	// SetArtifactPath records the generated artifact of a COMPLETED job with successes.
	SetArtifactPath(ctx context.Context, id int64, path string) error

	// Delete removes the job and its items. It returns false if nothing was deleted.
	Delete(ctx context.Context, id int64) (bool, error)
}

// ReferenceRepository reads and seeds reference records.
type ReferenceRepository interface {
	// GetByCertificate returns domain.ErrReferenceNotFound when no record matches.
	GetByCertificate(ctx context.Context, cert string) (*domain.ReferenceRecord, error)

	// GetByCertificates returns the matching records keyed by certificate number.
	GetByCertificates(ctx context.Context, certs []string) (map[string]*domain.ReferenceRecord, error)

	// CreateIfAbsent inserts rec unless its certificate number exists. It reports whether a row was created.
	CreateIfAbsent(ctx context.Context, rec *domain.ReferenceRecord) (bool, error)
}
