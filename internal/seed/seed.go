// Package seed loads reference records from a workbook into the reference store.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/normalize"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// field binds one reference attribute to the normalized header names that may
// carry it, in priority order.
type field struct {
	candidates []string
	set        func(rec *domain.ReferenceRecord, v string)
}

var referenceFields = []field{
	{[]string{"certificate_number", "certificate_no", "report_number", "report_no", "cert_no", "cert_number"},
		func(r *domain.ReferenceRecord, v string) { r.CertificateNumber = v }},
	{[]string{"shape"}, func(r *domain.ReferenceRecord, v string) { r.Shape = v }},
	{[]string{"carat", "weight", "cts"}, func(r *domain.ReferenceRecord, v string) { r.Carat = v }},
	{[]string{"color", "colour"}, func(r *domain.ReferenceRecord, v string) { r.Color = v }},
	{[]string{"clarity"}, func(r *domain.ReferenceRecord, v string) { r.Clarity = v }},
	{[]string{"cut"}, func(r *domain.ReferenceRecord, v string) { r.Cut = v }},
	{[]string{"polish"}, func(r *domain.ReferenceRecord, v string) { r.Polish = v }},
	{[]string{"symmetry", "sym"}, func(r *domain.ReferenceRecord, v string) { r.Symmetry = v }},
	{[]string{"fluorescence", "fluor", "fl"}, func(r *domain.ReferenceRecord, v string) { r.Fluorescence = v }},
	{[]string{"measurement", "measurements"}, func(r *domain.ReferenceRecord, v string) { r.Measurement = v }},
	{[]string{"location"}, func(r *domain.ReferenceRecord, v string) { r.Location = v }},
	{[]string{"stock_id", "stock_no", "stock_number"}, func(r *domain.ReferenceRecord, v string) { r.StockID = v }},
}

// Result counts what a seeding run did.
type Result struct {
	Created int
	Skipped int
	Invalid int
}

// Seeder inserts reference records that are not stored yet. Running it twice
// over the same input creates nothing the second time.
type Seeder struct {
	refs   repository.ReferenceRepository
	logger *zap.Logger
}

func New(refs repository.ReferenceRepository, logger *zap.Logger) *Seeder {
	return &Seeder{refs: refs, logger: logger}
}

// SeedFile reads the first sheet of the workbook at path and seeds its rows.
func (s *Seeder) SeedFile(ctx context.Context, path string) (Result, error) {
	rows, err := normalize.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("seed: %w", err)
	}

	res, err := s.Seed(ctx, rows)
	if err != nil {
		return res, err
	}
	s.logger.Info("Reference data seeded",
		zap.String("file", path),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
		zap.Int("invalid", res.Invalid),
	)
	return res, nil
}

// Seed creates a record for every row with a certificate number.
func (s *Seeder) Seed(ctx context.Context, rows []normalize.Row) (Result, error) {
	var res Result
	for i, row := range rows {
		rec := Record(row)
		if rec.CertificateNumber == "" {
			s.logger.Debug("Seed row without certificate number", zap.Int("row", i+2))
			res.Invalid++
			continue
		}

		created, err := s.refs.CreateIfAbsent(ctx, rec)
		if err != nil {
			return res, fmt.Errorf("seed: row %d: %w", i+2, err)
		}
		if created {
			res.Created++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

// Record maps a workbook row onto a reference record. Every non-empty cell is
// kept in FullData under its header.
func Record(row normalize.Row) *domain.ReferenceRecord {
	byKey := make(map[string]string, len(row.Keys))
	full := make(map[string]string, len(row.Keys))
	for _, k := range row.Keys {
		v := row.Get(k)
		if v == "" {
			continue
		}
		full[k] = v
		nk := normalize.Key(k)
		if _, ok := byKey[nk]; !ok {
			byKey[nk] = v
		}
	}

	rec := &domain.ReferenceRecord{FullData: full}
	for _, f := range referenceFields {
		for _, c := range f.candidates {
			if v, ok := byKey[c]; ok {
				f.set(rec, v)
				break
			}
		}
	}
	return rec
}
