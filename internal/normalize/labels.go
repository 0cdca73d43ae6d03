package normalize

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Harsh-BH/certqueue/internal/domain"
)

// UnknownStockID identifies label rows that carry no stock id.
const UnknownStockID = "UNKNOWN"

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// labelSynonyms maps normalized header variants onto canonical label fields.
// No canonical field appears as a source, which keeps NormalizeRecord idempotent.
var labelSynonyms = map[string]string{
	"stock_no":           "stock_id",
	"stock_code":         "stock_id",
	"stock_number":       "stock_id",
	"cts":                "weight",
	"carat":              "weight",
	"weight_cts":         "weight",
	"stone":              "no_of_stones",
	"stones":             "no_of_stones",
	"no_of_stone":        "no_of_stones",
	"report_no":          "cert_number",
	"report_number":      "cert_number",
	"certificate_number": "cert_number",
	"cert_no":            "cert_number",
	"certificate_no":     "cert_number",
	"measurements":       "measurement",
}

// Key lower-cases and trims a header, collapses non-alphanumeric runs to a
// single underscore and strips leading and trailing underscores.
func Key(header string) string {
	k := strings.ToLower(strings.TrimSpace(header))
	k = nonAlnum.ReplaceAllString(k, "_")
	return strings.Trim(k, "_")
}

// CanonicalKey applies Key and then the synonym table.
func CanonicalKey(header string) string {
	k := Key(header)
	if canon, ok := labelSynonyms[k]; ok {
		return canon
	}
	return k
}

// NormalizeRecord canonicalizes the keys of a single record. Empty values are
// dropped and, when two keys collapse together, the first non-empty value in
// key order wins.
func NormalizeRecord(rec map[string]string) map[string]string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return normalizeOrdered(keys, rec)
}

func normalizeOrdered(keys []string, values map[string]string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v := strings.TrimSpace(values[k])
		if v == "" {
			continue
		}
		ck := CanonicalKey(k)
		if ck == "" {
			continue
		}
		if _, taken := out[ck]; taken {
			continue
		}
		out[ck] = v
	}
	return out
}

// Labels converts sheet rows into label items keyed by stock id.
func Labels(rows []Row) ([]domain.Item, error) {
	if len(rows) == 0 {
		return nil, domain.ErrEmptySheet
	}

	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		fields := normalizeOrdered(row.Keys, row.Values)
		if len(fields) == 0 {
			continue
		}
		id := fields["stock_id"]
		if id == "" {
			id = UnknownStockID
		}
		items = append(items, domain.Item{
			Position:   len(items),
			Identifier: id,
			Fields:     fields,
		})
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptySheet
	}
	return items, nil
}

// ForKind dispatches rows to the normalizer of the given pipeline.
func ForKind(kind domain.JobKind, rows []Row) ([]domain.Item, error) {
	switch kind {
	case domain.KindCertificates:
		return Certificates(rows), nil
	case domain.KindLabels:
		return Labels(rows)
	default:
		return nil, domain.ErrUnsupportedKind
	}
}
