package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// ArtifactProvider returns the artifact of a finished job, generating it on
// first request.
type ArtifactProvider interface {
	Ensure(ctx context.Context, job *domain.Job) (*domain.Artifact, error)
}

// DownloadArtifactUsecase resolves the owner's job and hands it to the artifact provider.
type DownloadArtifactUsecase struct {
	repo      repository.JobRepository
	artifacts ArtifactProvider
	logger    *zap.Logger
}

// NewDownloadArtifactUsecase creates a new DownloadArtifactUsecase.
func NewDownloadArtifactUsecase(repo repository.JobRepository, artifacts ArtifactProvider, logger *zap.Logger) *DownloadArtifactUsecase {
	return &DownloadArtifactUsecase{
		repo:      repo,
		artifacts: artifacts,
		logger:    logger,
	}
}

func (uc *DownloadArtifactUsecase) Execute(ctx context.Context, owner string, kind domain.JobKind, id int64) (*domain.Artifact, error) {
	job, err := loadOwned(ctx, uc.repo, owner, kind, id)
	if err != nil {
		return nil, err
	}

	art, err := uc.artifacts.Ensure(ctx, job)
	if err != nil {
		uc.logger.Debug("Artifact unavailable", zap.Int64("job_id", id), zap.Error(err))
		return nil, err
	}
	return art, nil
}
