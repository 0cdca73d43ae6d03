package labels

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"

	"github.com/Harsh-BH/certqueue/internal/domain"
)

// Page geometry in millimetres.
const (
	pageWidth  = 70.0
	pageHeight = 34.0

	qrMargin = 2.0
	qrSize   = pageHeight - 2*qrMargin

	textLeft   = qrMargin + qrSize + 2.0
	textRight  = pageWidth - qrMargin
	textTop    = 5.0
	lineHeight = 3.6

	maxFontSize = 7.0
	minFontSize = 4.0
)

// Document renders stock labels into a PDF, one page per label. The label
// template is resolved on every render.
type Document struct {
	templatePaths []string
}

// NewDocument creates a renderer that looks for its template in paths, in order.
func NewDocument(templatePaths []string) *Document {
	return &Document{templatePaths: templatePaths}
}

// Render writes the labels of items to w.
func (d *Document) Render(ctx context.Context, w io.Writer, items []domain.Item) error {
	tmpl, err := LoadTemplate(d.templatePaths)
	if err != nil {
		return err
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("certqueue", false)
	pdf.SetCreationDate(time.Now().UTC())
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		label := FromFields(item.Fields, item.Identifier)
		lines, err := Lines(tmpl, label)
		if err != nil {
			return err
		}

		png, err := qrcode.Encode(label.StockID, qrcode.Medium, 256)
		if err != nil {
			return fmt.Errorf("labels: encode qr for %s: %w", label.StockID, err)
		}

		pdf.AddPage()

		name := fmt.Sprintf("qr-%d", i)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
		pdf.ImageOptions(name, qrMargin, qrMargin, qrSize, qrSize, false, opts, 0, "")

		for j, line := range lines {
			text := tr(line)
			size := maxFontSize
			pdf.SetFont("Helvetica", "B", size)
			for size > minFontSize && pdf.GetStringWidth(text) > textRight-textLeft {
				size -= 0.5
				pdf.SetFont("Helvetica", "B", size)
			}
			pdf.Text(textLeft, textTop+float64(j)*lineHeight, text)
		}

		if pdf.Err() {
			return fmt.Errorf("labels: render label %s: %w", label.StockID, pdf.Error())
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("labels: write pdf: %w", err)
	}
	return nil
}
