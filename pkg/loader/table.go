package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

//nolint:gochecknoglobals // accepted date layouts, tried in order
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// table is a parsed CSV: normalized header names and raw trimmed cells.
type table struct {
	name    string
	headers []string
	index   map[string]int
	rows    [][]string
}

func readTable(name string, r io.Reader, comma rune) (*table, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &table{name: name, index: map[string]int{}}, nil
		}

		return nil, fmt.Errorf("failed to read %s CSV headers: %w", name, err)
	}

	t := &table{name: name, headers: make([]string, len(headers)), index: make(map[string]int, len(headers))}
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		t.headers[i] = key
		t.index[key] = i
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read %s CSV: %w", name, err)
		}

		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		t.rows = append(t.rows, row)
	}

	return t, nil
}

func (t *table) require(columns ...string) error {
	for _, c := range columns {
		if _, ok := t.index[c]; !ok {
			return fmt.Errorf("%w: %s table has no %q column", ErrMissingColumn, t.name, c)
		}
	}

	return nil
}

func (t *table) cell(row int, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(t.rows[row]) {
		return ""
	}

	return t.rows[row][i]
}

// line returns the 1-based CSV line of a data row.
func (t *table) line(row int) int {
	return row + 2
}

func (t *table) date(row int, column string) (time.Time, error) {
	raw := t.cell(row, column)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %s line %d: %q", ErrInvalidDate, t.name, t.line(row), raw)
}

// number parses a known numeric cell. Missing markers give nil.
func (t *table) number(row int, column string) (*float64, error) {
	raw := t.cell(row, column)
	if isMissing(raw) {
		return nil, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s line %d column %s: %q", ErrInvalidNumber, t.name, t.line(row), column, raw)
	}

	if math.IsNaN(v) {
		return nil, nil
	}

	return &v, nil
}

// extras splits the columns not in known into numeric measures and categorical labels: a
// column is numeric when every non-missing cell parses as a number.
func (t *table) extras(known ...string) (numeric, categorical []string) {
	skip := make(map[string]struct{}, len(known))
	for _, k := range known {
		skip[k] = struct{}{}
	}

	for _, h := range t.headers {
		if _, ok := skip[h]; ok || h == "" {
			continue
		}

		isNumeric := true
		for r := range t.rows {
			raw := t.cell(r, h)
			if isMissing(raw) {
				continue
			}
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				isNumeric = false
				break
			}
		}

		if isNumeric {
			numeric = append(numeric, h)
		} else {
			categorical = append(categorical, h)
		}
	}

	return numeric, categorical
}

func (t *table) measures(row int, columns []string) map[string]float64 {
	if len(columns) == 0 {
		return nil
	}

	out := make(map[string]float64, len(columns))
	for _, c := range columns {
		raw := t.cell(row, c)
		if isMissing(raw) {
			continue
		}

		if v, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(v) {
			out[c] = v
		}
	}

	return out
}

func (t *table) labels(row int, columns []string) map[string]string {
	if len(columns) == 0 {
		return nil
	}

	out := make(map[string]string, len(columns))
	for _, c := range columns {
		if raw := t.cell(row, c); !isMissing(raw) {
			out[c] = raw
		}
	}

	return out
}

func isMissing(raw string) bool {
	switch strings.ToLower(raw) {
	case "", "na", "nan", "null", "none":
		return true
	default:
		return false
	}
}
