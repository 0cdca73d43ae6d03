package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// ListJobsUsecase returns an owner's jobs of one kind, newest first.
type ListJobsUsecase struct {
	repo   repository.JobRepository
	logger *zap.Logger
}

func NewListJobsUsecase(repo repository.JobRepository, logger *zap.Logger) *ListJobsUsecase {
	return &ListJobsUsecase{
		repo:   repo,
		logger: logger,
	}
}

func (uc *ListJobsUsecase) Execute(ctx context.Context, owner string, kind domain.JobKind) ([]domain.JobSummary, error) {
	jobs, err := uc.repo.ListByOwner(ctx, owner, kind)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	out := make([]domain.JobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, domain.JobSummary{
			ID:                    j.ID,
			FileName:              j.FileName,
			CreatedAt:             j.CreatedAt,
			TotalCount:            j.TotalCount,
			SuccessCount:          j.SuccessCount,
			FailedCount:           j.FailedCount,
			Status:                j.Status,
			GeneratedArtifactPath: j.GeneratedArtifactPath,
		})
	}
	return out, nil
}
