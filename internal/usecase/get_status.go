package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// loadOwned fetches a job and hides it unless it belongs to owner and kind.
func loadOwned(ctx context.Context, repo repository.JobRepository, owner string, kind domain.JobKind, id int64) (*domain.Job, error) {
	job, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != owner || job.Kind != kind {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

// GetStatusUsecase builds the polling view of a job. It never mutates.
type GetStatusUsecase struct {
	repo   repository.JobRepository
	logger *zap.Logger
}

// NewGetStatusUsecase creates a new GetStatusUsecase.
func NewGetStatusUsecase(repo repository.JobRepository, logger *zap.Logger) *GetStatusUsecase {
	return &GetStatusUsecase{
		repo:   repo,
		logger: logger,
	}
}

// Execute returns the status view of the owner's job.
func (uc *GetStatusUsecase) Execute(ctx context.Context, owner string, kind domain.JobKind, id int64) (*domain.StatusView, error) {
	job, err := loadOwned(ctx, uc.repo, owner, kind, id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			uc.logger.Debug("Job not found", zap.Int64("job_id", id))
		}
		return nil, err
	}
	return statusView(job), nil
}

func statusView(job *domain.Job) *domain.StatusView {
	view := &domain.StatusView{
		ID:    job.ID,
		State: job.Status,
		Progress: domain.Progress{
			Success: job.SuccessCount,
			Failed:  job.FailedCount,
			Total:   job.TotalCount,
		},
	}
	switch job.Status {
	case domain.StatusCompleted:
		if job.SuccessCount > 0 {
			view.Result = &domain.ResultDescriptor{
				FileName:    job.ArtifactFileName(),
				DownloadURL: fmt.Sprintf("/api/v1/%s/download/%d", job.Kind, job.ID),
			}
		}
	case domain.StatusFailed:
		view.FailedReason = job.FailedReason
	}
	return view
}
