package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/metrics"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// ArtifactBuilder renders the artifact of a job unconditionally.
type ArtifactBuilder interface {
	Build(ctx context.Context, job *domain.Job) (string, error)
}

// LabelRunner renders the whole batch into one document. There is no
// partial success: either every item is rendered or the job fails.
type LabelRunner struct {
	repo    repository.JobRepository
	builder ArtifactBuilder
	logger  *zap.Logger
}

// NewLabelRunner creates a new LabelRunner.
func NewLabelRunner(repo repository.JobRepository, builder ArtifactBuilder, logger *zap.Logger) *LabelRunner {
	return &LabelRunner{
		repo:    repo,
		builder: builder,
		logger:  logger,
	}
}

func (r *LabelRunner) Run(ctx context.Context, job *domain.Job) (string, error) {
	path, err := r.builder.Build(ctx, job)
	if err != nil {
		return "", fmt.Errorf("render labels: %w", err)
	}

	results := make([]domain.ItemResult, len(job.Items))
	for i, item := range job.Items {
		results[i] = domain.ItemResult{Position: item.Position, Outcome: domain.OutcomeSuccess}
	}
	cp := domain.Checkpoint{
		SuccessCount: len(job.Items),
		Results:      results,
	}
	if err := r.repo.Checkpoint(ctx, job.ID, cp); err != nil {
		discardArtifact(path, r.logger)
		return "", fmt.Errorf("checkpoint labels: %w", err)
	}
	metrics.ItemsProcessed.WithLabelValues(string(domain.OutcomeSuccess)).Add(float64(len(job.Items)))

	r.logger.Info("Labels rendered",
		zap.Int64("job_id", job.ID),
		zap.Int("labels", len(job.Items)),
		zap.String("path", path),
	)
	return path, nil
}

// discardArtifact removes a rendered file that no job record will point to.
func discardArtifact(path string, logger *zap.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to remove orphaned artifact", zap.String("path", path), zap.Error(err))
	}
}
