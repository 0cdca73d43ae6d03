package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/metrics"
	"github.com/Harsh-BH/certqueue/internal/normalize"
	"github.com/Harsh-BH/certqueue/internal/publisher"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// SubmitJobUsecase normalizes an uploaded batch, stores it as a PENDING job
// and enqueues it.
type SubmitJobUsecase struct {
	repo      repository.JobRepository
	publisher publisher.Publisher
	logger    *zap.Logger
}

// NewSubmitJobUsecase creates a new SubmitJobUsecase.
func NewSubmitJobUsecase(repo repository.JobRepository, pub publisher.Publisher, logger *zap.Logger) *SubmitJobUsecase {
	return &SubmitJobUsecase{
		repo:      repo,
		publisher: pub,
		logger:    logger,
	}
}

// Execute reads the file at req.SourcePath, creates the job and publishes its task.
func (uc *SubmitJobUsecase) Execute(ctx context.Context, req *domain.SubmitRequest) (*domain.SubmitResponse, error) {
	if !req.Kind.IsValid() {
		return nil, domain.ErrUnsupportedKind
	}

	rows, err := normalize.ReadFile(req.SourcePath)
	if err != nil {
		return nil, err
	}
	items, err := normalize.ForKind(req.Kind, rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	job := &domain.Job{
		Kind:           req.Kind,
		OwnerID:        req.OwnerID,
		FileName:       req.FileName,
		SourceFilePath: req.SourcePath,
		Items:          items,
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		uc.logger.Error("Failed to create job", zap.Error(err), zap.String("kind", string(req.Kind)))
		return nil, fmt.Errorf("create job: %w", err)
	}

	task := &domain.Task{
		JobID:      job.ID,
		Kind:       job.Kind,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := uc.publisher.Publish(ctx, task); err != nil {
		uc.logger.Error("Failed to publish job to queue", zap.Error(err), zap.Int64("job_id", job.ID))
		// The job would never be picked up.
		if failErr := uc.repo.Fail(ctx, job.ID, "enqueue failed: "+err.Error()); failErr != nil {
			uc.logger.Error("Failed to mark unpublished job as failed", zap.Error(failErr), zap.Int64("job_id", job.ID))
		}
		return nil, domain.ErrPublishFailed
	}

	metrics.JobsSubmitted.WithLabelValues(string(job.Kind)).Inc()
	uc.logger.Info("Job submitted",
		zap.Int64("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.Int("items", len(items)),
	)

	return &domain.SubmitResponse{
		ID:         job.ID,
		Status:     domain.StatusPending,
		TotalCount: len(items),
	}, nil
}
