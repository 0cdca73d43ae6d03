package artifact

import (
	"context"
	"io"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/labels"
)

// PDFContentType is served with label documents.
const PDFContentType = "application/pdf"

// LabelDocument renders every item of a labels job.
type LabelDocument struct {
	doc *labels.Document
}

func NewLabelDocument(doc *labels.Document) *LabelDocument {
	return &LabelDocument{doc: doc}
}

func (d *LabelDocument) Kind() domain.JobKind { return domain.KindLabels }

func (d *LabelDocument) ContentType() string { return PDFContentType }

func (d *LabelDocument) Write(ctx context.Context, job *domain.Job, w io.Writer) error {
	return d.doc.Render(ctx, w, job.Items)
}
