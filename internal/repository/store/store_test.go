package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/config"
	"github.com/Harsh-BH/certqueue/internal/domain"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "certqueue.db")

	s, err := Open(ctx, config.StoreConfig{Driver: "sqlite", SQLitePath: path}, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	job := &domain.Job{Kind: domain.KindLabels, OwnerID: "o", Items: []domain.Item{{Identifier: "S1"}}}
	if err := s.Jobs.Create(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.References.GetByCertificate(ctx, "none"); !errors.Is(err, domain.ErrReferenceNotFound) {
		t.Errorf("expected ErrReferenceNotFound, got %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"}, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
