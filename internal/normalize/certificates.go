package normalize

import "github.com/Harsh-BH/certqueue/internal/domain"

// CertificateColumns lists the header names tried, in priority order, for a
// certificate number. When none yields a value the first non-empty cell of
// the row is used.
var CertificateColumns = []string{
	"certificate_number",
	"Certificate Number",
	"Report Number",
}

// ResolveColumn returns the first non-empty value among candidates, falling
// back to the row's first non-empty cell.
func ResolveColumn(row Row, candidates []string) string {
	for _, key := range candidates {
		if v := row.Get(key); v != "" {
			return v
		}
	}
	return row.FirstValue()
}

// Certificates resolves one certificate number per row. Rows without a
// resolvable value are dropped; positions are dense and follow upload order.
func Certificates(rows []Row) []domain.Item {
	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		cert := ResolveColumn(row, CertificateColumns)
		if cert == "" {
			continue
		}
		items = append(items, domain.Item{
			Position:   len(items),
			Identifier: cert,
		})
	}
	return items
}
