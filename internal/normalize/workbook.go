// Package normalize turns uploaded spreadsheets into ordered, canonical item records.
package normalize

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Harsh-BH/certqueue/internal/domain"
)

// Row is one data row keyed by its header cell. Keys keeps the header order.
type Row struct {
	Keys   []string
	Values map[string]string
}

// Get returns the trimmed value under key.
func (r Row) Get(key string) string {
	return strings.TrimSpace(r.Values[key])
}

// FirstValue returns the first non-empty value in column order.
func (r Row) FirstValue() string {
	for _, k := range r.Keys {
		if v := r.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func (r Row) blank() bool {
	return r.FirstValue() == ""
}

// ReadFile opens a workbook from disk and returns the rows of its first sheet.
func ReadFile(path string) ([]Row, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("normalize: open %s: %w", path, err)
	}
	defer fh.Close()
	return ReadRows(fh)
}

// ReadRows parses the first sheet of a workbook. Row 1 is the header; fully
// blank data rows are skipped.
func ReadRows(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.ErrEmptySheet
	}

	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableInput, err)
	}
	if len(grid) == 0 {
		return nil, domain.ErrEmptySheet
	}

	header := headerKeys(grid[0])
	if len(header) == 0 {
		return nil, domain.ErrEmptySheet
	}

	rows := make([]Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := Row{Keys: header, Values: make(map[string]string, len(header))}
		for i, key := range header {
			if i < len(cells) {
				row.Values[key] = cells[i]
			}
		}
		if row.blank() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// headerKeys names every header cell. Empty cells become column_<n> and
// repeated names get a numeric suffix so no column is shadowed.
func headerKeys(cells []string) []string {
	var nonEmpty bool
	keys := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, c := range cells {
		name := strings.TrimSpace(c)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		} else {
			nonEmpty = true
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "_" + strconv.Itoa(n)
		} else {
			seen[name] = 1
		}
		keys[i] = name
	}
	if !nonEmpty {
		return nil
	}
	return keys
}
