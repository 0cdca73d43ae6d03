package labels

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ShapeCodes maps full shape names to the short codes printed on labels.
// Unknown shapes are printed as given, upper-cased.
var ShapeCodes = map[string]string{
	"ROUND":    "RD",
	"PRINCESS": "PR",
	"EMERALD":  "EM",
	"OVAL":     "OV",
	"PEAR":     "PS",
	"MARQUISE": "MQ",
	"RADIANT":  "RA",
	"HEART":    "HT",
	"CUSHION":  "CU",
	"ASHCHER":  "AS",
}

// Label is one stock record prepared for printing.
type Label struct {
	StockID      string
	Shape        string
	Weight       string
	Stones       int
	Lab          string
	Cut          string
	Polish       string
	Symmetry     string
	Fluorescence string
	Color        string
	Clarity      string
	NoBGM        string
	CertNumber   string
	Measurement  string
	Type         string
	IsCert       bool
}

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
)

// ShapeCode returns the short code for shape, or the upper-cased shape.
func ShapeCode(shape string) string {
	s := strings.ToUpper(strings.TrimSpace(shape))
	if code, ok := ShapeCodes[s]; ok {
		return code
	}
	return s
}

// FormatWeight renders the numeric prefix of s with two decimals. Anything
// without one becomes 0.00.
func FormatWeight(s string) string {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return "0.00"
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", f)
}

// ParseStones returns the integer prefix of s, or 0.
func ParseStones(s string) int {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// FromFields builds a Label from a canonical record. fallbackID is used when
// the record has no stock_id.
func FromFields(fields map[string]string, fallbackID string) Label {
	stockID := fields["stock_id"]
	if strings.TrimSpace(stockID) == "" {
		stockID = fallbackID
	}

	typ := strings.TrimSpace(fields["type"])
	lab := upper(fields["lab"])
	cert := upper(fields["cert_number"])

	return Label{
		StockID:      upper(stockID),
		Shape:        ShapeCode(fields["shape"]),
		Weight:       FormatWeight(fields["weight"]),
		Stones:       ParseStones(fields["no_of_stones"]),
		Lab:          lab,
		Cut:          upper(fields["cut"]),
		Polish:       upper(fields["polish"]),
		Symmetry:     upper(fields["symmetry"]),
		Fluorescence: upper(fields["fluorescence"]),
		Color:        upper(fields["color"]),
		Clarity:      upper(fields["clarity"]),
		NoBGM:        upper(fields["no_bgm"]),
		CertNumber:   cert,
		Measurement:  upper(fields["measurement"]),
		Type:         typ,
		IsCert:       typ == "CERT" || typ == "Certified" || (lab != "" && cert != ""),
	}
}
