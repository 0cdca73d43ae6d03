package artifact

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

const (
	resultsSheet = "Verification Results"
	reportURL    = "https://www.igi.org/reports/verify-your-report?r="

	// XLSXContentType is served with certificate result workbooks.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type column struct {
	title string
	width float64
	value func(rec *domain.ReferenceRecord) any
}

var resultColumns = []column{
	{"Certificate Number", 20, func(r *domain.ReferenceRecord) any { return r.CertificateNumber }},
	{"Status", 15, func(*domain.ReferenceRecord) any { return "VERIFIED" }},
	{"Type", 20, func(*domain.ReferenceRecord) any { return "NATURAL DIAMOND" }},
	{"Shape", 12, func(r *domain.ReferenceRecord) any { return r.Shape }},
	{"Carat", 10, func(r *domain.ReferenceRecord) any { return r.Carat }},
	{"Color", 10, func(r *domain.ReferenceRecord) any { return r.Color }},
	{"Clarity", 10, func(r *domain.ReferenceRecord) any { return r.Clarity }},
	{"Cut", 10, func(r *domain.ReferenceRecord) any { return r.Cut }},
	{"Polish", 12, func(r *domain.ReferenceRecord) any { return r.Polish }},
	{"Symmetry", 12, func(r *domain.ReferenceRecord) any { return r.Symmetry }},
	{"Fluorescence", 12, func(r *domain.ReferenceRecord) any { return r.Fluorescence }},
	{"Measurement", 25, func(r *domain.ReferenceRecord) any { return r.Measurement }},
	{"Location", 15, func(r *domain.ReferenceRecord) any { return r.Location }},
	{"IGI Report URL", 50, func(r *domain.ReferenceRecord) any { return reportURL + r.CertificateNumber }},
	{"Created At", 25, func(r *domain.ReferenceRecord) any { return timestamp(r.CreatedAt) }},
	{"Updated At", 25, func(r *domain.ReferenceRecord) any { return timestamp(r.UpdatedAt) }},
	{"stock_ID", 15, func(r *domain.ReferenceRecord) any { return r.StockID }},
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// CertificateWorkbook writes the verified certificates of a job, joined with
// their reference records, as an xlsx workbook.
type CertificateWorkbook struct {
	refs repository.ReferenceRepository
}

func NewCertificateWorkbook(refs repository.ReferenceRepository) *CertificateWorkbook {
	return &CertificateWorkbook{refs: refs}
}

func (w *CertificateWorkbook) Kind() domain.JobKind { return domain.KindCertificates }

func (w *CertificateWorkbook) ContentType() string { return XLSXContentType }

// Write emits one row per SUCCESS item in upload order. Items without a
// reference record are left out.
func (w *CertificateWorkbook) Write(ctx context.Context, job *domain.Job, out io.Writer) error {
	items := job.SuccessfulItems()
	certs := make([]string, len(items))
	for i, it := range items {
		certs[i] = it.Identifier
	}

	refs, err := w.refs.GetByCertificates(ctx, certs)
	if err != nil {
		return fmt.Errorf("artifact: load references: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return fmt.Errorf("artifact: name sheet: %w", err)
	}

	header := make([]any, len(resultColumns))
	for i, c := range resultColumns {
		header[i] = c.title
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(resultsSheet, name, name, c.width); err != nil {
			return fmt.Errorf("artifact: set width: %w", err)
		}
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("artifact: write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("artifact: header style: %w", err)
	}
	if err := f.SetRowStyle(resultsSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("artifact: header style: %w", err)
	}

	row := 2
	for _, it := range items {
		rec, ok := refs[it.Identifier]
		if !ok {
			continue
		}
		values := make([]any, len(resultColumns))
		for i, c := range resultColumns {
			values[i] = c.value(rec)
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
			return fmt.Errorf("artifact: write row %d: %w", row, err)
		}
		row++
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("artifact: write workbook: %w", err)
	}
	return nil
}
