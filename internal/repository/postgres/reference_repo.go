package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

var _ repository.ReferenceRepository = (*pgReferenceRepo)(nil)

type pgReferenceRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresReferenceRepository creates a PostgreSQL-backed reference repository.
func NewPostgresReferenceRepository(pool *pgxpool.Pool) repository.ReferenceRepository {
	return &pgReferenceRepo{pool: pool}
}

const referenceColumns = `
	certificate_number, shape, carat, color, clarity, cut, polish, symmetry,
	fluorescence, measurement, location, stock_id, full_data, created_at, updated_at`

func scanReference(row pgx.Row) (*domain.ReferenceRecord, error) {
	rec := &domain.ReferenceRecord{}
	err := row.Scan(
		&rec.CertificateNumber, &rec.Shape, &rec.Carat, &rec.Color, &rec.Clarity,
		&rec.Cut, &rec.Polish, &rec.Symmetry, &rec.Fluorescence, &rec.Measurement,
		&rec.Location, &rec.StockID, &rec.FullData, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *pgReferenceRepo) GetByCertificate(ctx context.Context, cert string) (*domain.ReferenceRecord, error) {
	rec, err := scanReference(r.pool.QueryRow(ctx,
		`SELECT `+referenceColumns+` FROM diamond_references WHERE certificate_number = $1`, cert))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReferenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get reference: %w", err)
	}
	return rec, nil
}

func (r *pgReferenceRepo) GetByCertificates(ctx context.Context, certs []string) (map[string]*domain.ReferenceRecord, error) {
	out := make(map[string]*domain.ReferenceRecord, len(certs))
	if len(certs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+referenceColumns+` FROM diamond_references WHERE certificate_number = ANY($1)`, certs)
	if err != nil {
		return nil, fmt.Errorf("postgres: get references: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanReference(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan reference: %w", err)
		}
		out[rec.CertificateNumber] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate references: %w", err)
	}
	return out, nil
}

func (r *pgReferenceRepo) CreateIfAbsent(ctx context.Context, rec *domain.ReferenceRecord) (bool, error) {
	fullData := rec.FullData
	if fullData == nil {
		fullData = map[string]string{}
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO diamond_references (
			certificate_number, shape, carat, color, clarity, cut, polish, symmetry,
			fluorescence, measurement, location, stock_id, full_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (certificate_number) DO NOTHING`,
		rec.CertificateNumber, rec.Shape, rec.Carat, rec.Color, rec.Clarity,
		rec.Cut, rec.Polish, rec.Symmetry, rec.Fluorescence, rec.Measurement,
		rec.Location, rec.StockID, fullData,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: create reference: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
