package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/metrics"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// Builder writes the artifact of one job kind.
type Builder interface {
	Kind() domain.JobKind
	ContentType() string
	Write(ctx context.Context, job *domain.Job, w io.Writer) error
}

// Generator produces job artifacts into a directory and caches them there.
type Generator struct {
	dir      string
	repo     repository.JobRepository
	leases   repository.LeaseStore
	builders map[domain.JobKind]Builder
	logger   *zap.Logger
}

// NewGenerator creates a generator writing into dir with one builder per kind.
func NewGenerator(dir string, repo repository.JobRepository, leases repository.LeaseStore, logger *zap.Logger, builders ...Builder) *Generator {
	g := &Generator{
		dir:      dir,
		repo:     repo,
		leases:   leases,
		builders: make(map[domain.JobKind]Builder, len(builders)),
		logger:   logger,
	}
	for _, b := range builders {
		g.builders[b.Kind()] = b
	}
	return g
}

func lockKey(id int64) string {
	return fmt.Sprintf("artifact:%d", id)
}

// Ensure returns the artifact of a finished job. A file recorded on the job
// that still exists is served as is; otherwise the artifact is regenerated
// under the artifact lock.
func (g *Generator) Ensure(ctx context.Context, job *domain.Job) (*domain.Artifact, error) {
	b, err := g.builder(job.Kind)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.StatusCompleted {
		return nil, domain.ErrJobNotCompleted
	}
	if job.SuccessCount == 0 {
		return nil, domain.ErrNoSuccesses
	}

	if art, ok := g.cached(job, b); ok {
		return art, nil
	}

	key := lockKey(job.ID)
	acquired, err := g.leases.Acquire(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("artifact: lock job %d: %w", job.ID, err)
	}
	if !acquired {
		return nil, domain.ErrArtifactBusy
	}
	defer func() {
		if err := g.leases.Drop(context.WithoutCancel(ctx), key); err != nil {
			g.logger.Warn("Failed to drop artifact lock", zap.Int64("job_id", job.ID), zap.Error(err))
		}
	}()

	// Someone may have finished the file while we waited for the lock.
	fresh, err := g.repo.GetByID(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if art, ok := g.cached(fresh, b); ok {
		return art, nil
	}

	path, err := g.write(ctx, fresh, b)
	if err != nil {
		return nil, err
	}
	if err := g.repo.SetArtifactPath(ctx, fresh.ID, path); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("artifact: record path for job %d: %w", fresh.ID, err)
	}

	g.logger.Info("Artifact generated",
		zap.Int64("job_id", fresh.ID),
		zap.String("kind", string(fresh.Kind)),
		zap.String("path", path),
	)
	return &domain.Artifact{
		JobID:       fresh.ID,
		Path:        path,
		FileName:    fresh.ArtifactFileName(),
		ContentType: b.ContentType(),
	}, nil
}

// Build writes the artifact of job unconditionally and returns its path.
func (g *Generator) Build(ctx context.Context, job *domain.Job) (string, error) {
	b, err := g.builder(job.Kind)
	if err != nil {
		return "", err
	}
	return g.write(ctx, job, b)
}

func (g *Generator) builder(kind domain.JobKind) (Builder, error) {
	b, ok := g.builders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no artifact builder for %q", domain.ErrUnsupportedKind, kind)
	}
	return b, nil
}

func (g *Generator) cached(job *domain.Job, b Builder) (*domain.Artifact, bool) {
	if job.GeneratedArtifactPath == "" {
		return nil, false
	}
	info, err := os.Stat(job.GeneratedArtifactPath)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			g.logger.Warn("Cannot stat cached artifact", zap.Int64("job_id", job.ID), zap.Error(err))
		}
		return nil, false
	}

	metrics.ArtifactCacheHits.WithLabelValues(string(job.Kind)).Inc()
	return &domain.Artifact{
		JobID:       job.ID,
		Path:        job.GeneratedArtifactPath,
		FileName:    job.ArtifactFileName(),
		ContentType: b.ContentType(),
		Cached:      true,
	}, true
}

// write renders into a temp file in the artifact directory and renames it
// into place, so readers never see a partial file.
func (g *Generator) write(ctx context.Context, job *domain.Job, b Builder) (string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(g.dir, fmt.Sprintf(".job_%d_*.tmp", job.ID))
	if err != nil {
		return "", fmt.Errorf("artifact: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := b.Write(ctx, job, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("artifact: close temp file: %w", err)
	}

	final := filepath.Join(g.dir, job.ArtifactFileName())
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("artifact: move into place: %w", err)
	}

	metrics.ArtifactsGenerated.WithLabelValues(string(job.Kind)).Inc()
	return final, nil
}
