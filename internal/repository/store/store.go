// Package store opens the configured job and reference store.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/config"
	"github.com/Harsh-BH/certqueue/internal/repository"
	"github.com/Harsh-BH/certqueue/internal/repository/postgres"
	"github.com/Harsh-BH/certqueue/internal/repository/sqlite"
)

// Stores bundles the repositories of one backend.
type Stores struct {
	Jobs       repository.JobRepository
	References repository.ReferenceRepository

	ping  func(ctx context.Context) error
	close func()
}

// Ping checks that the backend is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the backend's connections.
func (s *Stores) Close() {
	s.close()
}

// Open connects to the backend selected by cfg.Driver and applies its schema.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*Stores, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("store: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("store: ping postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("Connected to PostgreSQL")
		return &Stores{
			Jobs:       postgres.NewPostgresJobRepository(pool),
			References: postgres.NewPostgresReferenceRepository(pool),
			ping:       pool.Ping,
			close:      pool.Close,
		}, nil

	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." && cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create sqlite dir: %w", err)
			}
		}
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("Opened SQLite store", zap.String("path", cfg.SQLitePath))
		return &Stores{
			Jobs:       sqlite.NewSQLiteJobRepository(db),
			References: sqlite.NewSQLiteReferenceRepository(db),
			ping:       db.PingContext,
			close:      func() { db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
