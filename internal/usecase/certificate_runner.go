package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/metrics"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// CertificateRunner verifies each certificate of a job in upload order and
// checkpoints after every item. Item failures never abort the run.
type CertificateRunner struct {
	repo     repository.JobRepository
	verifier repository.Verifier
	delay    time.Duration
	logger   *zap.Logger
}

// NewCertificateRunner creates a runner that waits delay between items.
func NewCertificateRunner(repo repository.JobRepository, verifier repository.Verifier, delay time.Duration, logger *zap.Logger) *CertificateRunner {
	return &CertificateRunner{
		repo:     repo,
		verifier: verifier,
		delay:    delay,
		logger:   logger,
	}
}

func (r *CertificateRunner) Run(ctx context.Context, job *domain.Job) (string, error) {
	success, failed := 0, 0

	for i, item := range job.Items {
		if i > 0 && r.delay > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(r.delay):
			}
		}

		outcome := domain.OutcomeFailed
		found, err := r.verifier.Verify(ctx, item.Identifier)
		switch {
		case err != nil:
			r.logger.Warn("Certificate lookup error",
				zap.Int64("job_id", job.ID),
				zap.String("certificate", item.Identifier),
				zap.Error(err),
			)
		case found:
			outcome = domain.OutcomeSuccess
		default:
			r.logger.Debug("Certificate not found",
				zap.Int64("job_id", job.ID),
				zap.String("certificate", item.Identifier),
			)
		}

		if outcome == domain.OutcomeSuccess {
			success++
		} else {
			failed++
		}
		metrics.ItemsProcessed.WithLabelValues(string(outcome)).Inc()

		cp := domain.Checkpoint{
			SuccessCount: success,
			FailedCount:  failed,
			Results:      []domain.ItemResult{{Position: item.Position, Outcome: outcome}},
		}
		if err := r.repo.Checkpoint(ctx, job.ID, cp); err != nil {
			return "", fmt.Errorf("checkpoint item %d: %w", item.Position, err)
		}
	}

	return "", nil
}
