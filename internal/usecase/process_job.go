package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/metrics"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// JobRunner drives the items of one claimed job. It returns the artifact path
// when the run itself produced the artifact.
type JobRunner interface {
	Run(ctx context.Context, job *domain.Job) (artifactPath string, err error)
}

// ProcessJobUsecase moves a queued job through PROCESSING to a terminal state.
type ProcessJobUsecase struct {
	repo    repository.JobRepository
	leases  repository.LeaseStore
	runners map[domain.JobKind]JobRunner
	logger  *zap.Logger
}

// NewProcessJobUsecase creates a new ProcessJobUsecase.
func NewProcessJobUsecase(
	repo repository.JobRepository,
	leases repository.LeaseStore,
	certificates JobRunner,
	labels JobRunner,
	logger *zap.Logger,
) *ProcessJobUsecase {
	return &ProcessJobUsecase{
		repo:   repo,
		leases: leases,
		runners: map[domain.JobKind]JobRunner{
			domain.KindCertificates: certificates,
			domain.KindLabels:       labels,
		},
		logger: logger,
	}
}

func jobLeaseKey(id int64) string {
	return fmt.Sprintf("job:%d", id)
}

// Execute processes one delivery: lease, claim, run, then COMPLETED or FAILED.
// It returns (isDuplicate, error). A nil error means the outcome was recorded;
// an error means it could not be and the delivery should be dead-lettered.
func (uc *ProcessJobUsecase) Execute(ctx context.Context, task *domain.Task) (bool, error) {
	log := uc.logger.With(zap.Int64("job_id", task.JobID), zap.String("kind", string(task.Kind)))

	// Step 1: lease
	key := jobLeaseKey(task.JobID)
	acquired, err := uc.leases.Acquire(ctx, key)
	if err != nil {
		log.Error("Failed to acquire job lease", zap.Error(err))
		return uc.failUnleased(ctx, task, fmt.Errorf("acquire lease: %w", err))
	}
	if !acquired {
		log.Info("Job lease held elsewhere, skipping delivery")
		metrics.DuplicateDeliveries.Inc()
		return true, nil
	}
	defer func() {
		if err := uc.leases.Release(ctx, key); err != nil {
			log.Warn("Failed to release job lease", zap.Error(err))
		}
	}()

	// Step 2: claim
	claimed, err := uc.repo.Claim(ctx, task.JobID)
	if err != nil {
		log.Error("Failed to claim job", zap.Error(err))
		return false, err
	}
	if !claimed {
		log.Info("Job already claimed, skipping delivery")
		metrics.DuplicateDeliveries.Inc()
		return true, nil
	}

	job, err := uc.repo.GetByID(ctx, task.JobID)
	if err != nil {
		log.Error("Failed to load claimed job", zap.Error(err))
		return false, err
	}

	runner, ok := uc.runners[job.Kind]
	if !ok || runner == nil {
		return false, uc.fail(ctx, job, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, job.Kind))
	}

	// Step 3: run
	start := time.Now()
	log.Info("Processing job", zap.Int("total", job.TotalCount))

	artifactPath, err := runner.Run(ctx, job)
	metrics.JobDuration.WithLabelValues(string(job.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			log.Warn("Job disappeared while processing", zap.Error(err))
			metrics.JobsProcessed.WithLabelValues(string(job.Kind), string(domain.StatusFailed)).Inc()
			return false, err
		}
		return false, uc.fail(ctx, job, err)
	}

	// Step 4: complete
	if err := uc.repo.Complete(ctx, job.ID, artifactPath); err != nil {
		discardArtifact(artifactPath, log)
		if errors.Is(err, domain.ErrJobNotFound) {
			log.Warn("Job disappeared before completion", zap.Error(err))
			return false, err
		}
		return false, uc.fail(ctx, job, fmt.Errorf("complete: %w", err))
	}

	metrics.JobsProcessed.WithLabelValues(string(job.Kind), string(domain.StatusCompleted)).Inc()
	log.Info("Job completed", zap.Duration("elapsed", time.Since(start)))
	return false, nil
}

// failUnleased records a lease outage on the job so pollers see it. The claim
// still guards the transition: a job another worker already took is left alone.
func (uc *ProcessJobUsecase) failUnleased(ctx context.Context, task *domain.Task, cause error) (bool, error) {
	claimed, err := uc.repo.Claim(ctx, task.JobID)
	if err != nil {
		return false, fmt.Errorf("claim without lease: %w (cause: %v)", err, cause)
	}
	if !claimed {
		metrics.DuplicateDeliveries.Inc()
		return true, nil
	}
	return false, uc.fail(ctx, &domain.Job{ID: task.JobID, Kind: task.Kind}, cause)
}

// fail records a job-level error as FAILED. It returns nil once the transition
// is stored.
func (uc *ProcessJobUsecase) fail(ctx context.Context, job *domain.Job, cause error) error {
	log := uc.logger.With(zap.Int64("job_id", job.ID), zap.String("kind", string(job.Kind)))
	log.Error("Job failed", zap.Error(cause))

	if err := uc.repo.Fail(ctx, job.ID, cause.Error()); err != nil {
		log.Error("Failed to record job failure", zap.Error(err))
		return fmt.Errorf("record failure: %w (cause: %v)", err, cause)
	}
	metrics.JobsProcessed.WithLabelValues(string(job.Kind), string(domain.StatusFailed)).Inc()
	return nil
}
