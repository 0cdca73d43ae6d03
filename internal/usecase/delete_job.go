package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// DeleteJobUsecase removes a job record together with its files.
type DeleteJobUsecase struct {
	repo   repository.JobRepository
	logger *zap.Logger
}

// NewDeleteJobUsecase creates a new DeleteJobUsecase.
func NewDeleteJobUsecase(repo repository.JobRepository, logger *zap.Logger) *DeleteJobUsecase {
	return &DeleteJobUsecase{
		repo:   repo,
		logger: logger,
	}
}

// Execute deletes the owner's job. Deleting a job that does not exist is a
// no-op and reports false. Missing files are tolerated.
func (uc *DeleteJobUsecase) Execute(ctx context.Context, owner string, kind domain.JobKind, id int64) (bool, error) {
	job, err := loadOwned(ctx, uc.repo, owner, kind, id)
	if errors.Is(err, domain.ErrJobNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	uc.removeFile(job.ID, job.SourceFilePath)
	uc.removeFile(job.ID, job.GeneratedArtifactPath)

	deleted, err := uc.repo.Delete(ctx, job.ID)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}

	if deleted {
		uc.logger.Info("Job deleted", zap.Int64("job_id", job.ID), zap.String("kind", string(job.Kind)))
	}
	return deleted, nil
}

func (uc *DeleteJobUsecase) removeFile(jobID int64, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		uc.logger.Warn("Failed to remove job file",
			zap.Int64("job_id", jobID),
			zap.String("path", path),
			zap.Error(err),
		)
	}
}
