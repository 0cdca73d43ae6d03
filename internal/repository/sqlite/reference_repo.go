package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

var _ repository.ReferenceRepository = (*sqliteReferenceRepo)(nil)

type sqliteReferenceRepo struct {
	db *sql.DB
}

// NewSQLiteReferenceRepository creates a reference repository over an opened SQLite database.
func NewSQLiteReferenceRepository(db *sql.DB) repository.ReferenceRepository {
	return &sqliteReferenceRepo{db: db}
}

const referenceColumns = `
	certificate_number, shape, carat, color, clarity, cut, polish, symmetry,
	fluorescence, measurement, location, stock_id, full_data, created_at, updated_at`

func scanReference(row scanner) (*domain.ReferenceRecord, error) {
	rec := &domain.ReferenceRecord{}
	var fullData string
	var created, updated int64
	err := row.Scan(
		&rec.CertificateNumber, &rec.Shape, &rec.Carat, &rec.Color, &rec.Clarity,
		&rec.Cut, &rec.Polish, &rec.Symmetry, &rec.Fluorescence, &rec.Measurement,
		&rec.Location, &rec.StockID, &fullData, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	if rec.FullData, err = decodeFields(fullData); err != nil {
		return nil, err
	}
	rec.CreatedAt = fromNanos(created)
	rec.UpdatedAt = fromNanos(updated)
	return rec, nil
}

func (r *sqliteReferenceRepo) GetByCertificate(ctx context.Context, cert string) (*domain.ReferenceRecord, error) {
	rec, err := scanReference(r.db.QueryRowContext(ctx,
		`SELECT `+referenceColumns+` FROM diamond_references WHERE certificate_number = ?`, cert))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReferenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get reference: %w", err)
	}
	return rec, nil
}

func (r *sqliteReferenceRepo) GetByCertificates(ctx context.Context, certs []string) (map[string]*domain.ReferenceRecord, error) {
	out := make(map[string]*domain.ReferenceRecord, len(certs))
	if len(certs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(certs)), ",")
	args := make([]any, len(certs))
	for i, c := range certs {
		args[i] = c
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+referenceColumns+` FROM diamond_references WHERE certificate_number IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get references: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanReference(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan reference: %w", err)
		}
		out[rec.CertificateNumber] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate references: %w", err)
	}
	return out, nil
}

func (r *sqliteReferenceRepo) CreateIfAbsent(ctx context.Context, rec *domain.ReferenceRecord) (bool, error) {
	fullData, err := encodeFields(rec.FullData)
	if err != nil {
		return false, err
	}

	ts := now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO diamond_references (
			certificate_number, shape, carat, color, clarity, cut, polish, symmetry,
			fluorescence, measurement, location, stock_id, full_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (certificate_number) DO NOTHING`,
		rec.CertificateNumber, rec.Shape, rec.Carat, rec.Color, rec.Clarity,
		rec.Cut, rec.Polish, rec.Symmetry, rec.Fluorescence, rec.Measurement,
		rec.Location, rec.StockID, fullData, ts, ts,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: create reference: %w", err)
	}
	return affected(res) == 1, nil
}
