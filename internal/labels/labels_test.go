package labels

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"text/template"

	"github.com/Harsh-BH/certqueue/internal/domain"
)

func TestShapeCode(t *testing.T) {
	tests := map[string]string{
		"round":     "RD",
		" Pear ":    "PS",
		"ASHCHER":   "AS",
		"trillion":  "TRILLION",
		"":          "",
		"Marquise":  "MQ",
		"asscher-x": "ASSCHER-X",
	}
	for in, want := range tests {
		if got := ShapeCode(in); got != want {
			t.Errorf("ShapeCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatWeightAndStones(t *testing.T) {
	weights := map[string]string{
		"1.5":    "1.50",
		"0.333":  "0.33",
		"2":      "2.00",
		"1.25ct": "1.25",
		"":       "0.00",
		"abc":    "0.00",
	}
	for in, want := range weights {
		if got := FormatWeight(in); got != want {
			t.Errorf("FormatWeight(%q) = %q, want %q", in, got, want)
		}
	}

	stones := map[string]int{
		"3":   3,
		"12x": 12,
		"":    0,
		"n/a": 0,
		"4.9": 4,
	}
	for in, want := range stones {
		if got := ParseStones(in); got != want {
			t.Errorf("ParseStones(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestFromFields(t *testing.T) {
	l := FromFields(map[string]string{
		"stock_id":     "s-100",
		"shape":        "oval",
		"weight":       "1.2",
		"no_of_stones": "2",
		"lab":          "igi",
		"cert_number":  "lg123",
		"color":        "d",
		"clarity":      "vvs1",
	}, "UNKNOWN")

	if l.StockID != "S-100" || l.Shape != "OV" || l.Weight != "1.20" || l.Stones != 2 {
		t.Errorf("unexpected label: %+v", l)
	}
	if l.Lab != "IGI" || l.CertNumber != "LG123" || !l.IsCert {
		t.Errorf("expected certified IGI label, got %+v", l)
	}

	plain := FromFields(map[string]string{"type": "Certified"}, "X-1")
	if plain.StockID != "X-1" || !plain.IsCert {
		t.Errorf("unexpected fallback label: %+v", plain)
	}

	noCert := FromFields(map[string]string{"lab": "GIA"}, "X-2")
	if noCert.IsCert {
		t.Error("expected a lab without a certificate number to be non-cert")
	}
}

func TestLines_DropsBlankLines(t *testing.T) {
	tmpl := template.Must(template.New("t").Parse("{{.StockID}}\n\n{{if .IsCert}}{{.Lab}}{{end}}\n{{.Color}}   {{.Clarity}}\n"))

	lines, err := Lines(tmpl, Label{StockID: "S1", Color: "D", Clarity: "IF"})
	if err != nil {
		t.Fatalf("lines: %v", err)
	}
	want := []string{"S1", "D IF"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("got %q, want %q", lines, want)
	}
}

func TestLoadTemplate_CandidateOrder(t *testing.T) {
	dir := t.TempDir()
	second := filepath.Join(dir, "second.tmpl")
	if err := os.WriteFile(second, []byte("{{.StockID}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	tmpl, err := LoadTemplate([]string{filepath.Join(dir, "missing.tmpl"), second})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tmpl.Name() != "second.tmpl" {
		t.Errorf("expected second.tmpl, got %s", tmpl.Name())
	}
}

func TestLoadTemplate_NotFound(t *testing.T) {
	_, err := LoadTemplate([]string{filepath.Join(t.TempDir(), "nope.tmpl")})
	if !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "nope.tmpl") {
		t.Errorf("expected checked paths in error, got %v", err)
	}
}

func TestDocument_Render(t *testing.T) {
	doc := NewDocument([]string{filepath.Join("..", "..", "assets", "templates", "stock-label.tmpl")})

	items := []domain.Item{
		{Position: 0, Identifier: "S1", Fields: map[string]string{"stock_id": "S1", "shape": "round", "weight": "1.01", "lab": "IGI", "cert_number": "LG1"}},
		{Position: 1, Identifier: "UNKNOWN", Fields: map[string]string{"shape": "heart"}},
	}

	var buf bytes.Buffer
	if err := doc.Render(context.Background(), &buf, items); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected a PDF, got %q", buf.Bytes()[:min(16, buf.Len())])
	}
	if n := bytes.Count(buf.Bytes(), []byte("<</Type /Page\n")); n != 2 {
		t.Errorf("expected 2 pages, got %d", n)
	}
}

func TestDocument_RenderMissingTemplate(t *testing.T) {
	doc := NewDocument([]string{filepath.Join(t.TempDir(), "stock-label.tmpl")})

	var buf bytes.Buffer
	err := doc.Render(context.Background(), &buf, []domain.Item{{Identifier: "S1"}})
	if !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if buf.Len() != 0 {
		t.Error("expected nothing written")
	}
}
