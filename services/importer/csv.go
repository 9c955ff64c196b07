package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// RowError points at a bad cell of the uploaded file. Row counts the header as row 1.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
}

// Result reports the outcome of an import
type Result struct {
	Success bool       `json:"success"`
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Errors  []RowError `json:"errors"`
	Message string     `json:"message,omitempty"`
}

func failure(format string, args ...interface{}) *Result {
	return &Result{Errors: []RowError{}, Message: fmt.Sprintf(format, args...)}
}

func rowFailure(errs []RowError) *Result {
	return &Result{Errors: errs, Message: fmt.Sprintf("%d rows have errors, nothing was imported", countRows(errs))}
}

func countRows(errs []RowError) int {
	seen := make(map[int]struct{}, len(errs))
	for _, e := range errs {
		seen[e.Row] = struct{}{}
	}
	return len(seen)
}

// record is one data row keyed by header
type record struct {
	num    int
	fields map[string]string
}

// get returns the trimmed cell of column, or "" when the column is absent
func (r record) get(column string) string {
	return strings.TrimSpace(r.fields[column])
}

type table struct {
	headers []string
	rows    []record
}

func (t *table) missing(required []string) []string {
	present := make(map[string]struct{}, len(t.headers))
	for _, h := range t.headers {
		present[h] = struct{}{}
	}
	var missing []string
	for _, h := range required {
		if _, ok := present[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// parseCSV reads a header row and the data rows below it. A UTF-8 byte order
// mark is dropped, headers are trimmed and rows with only blank cells are skipped.
func parseCSV(r io.Reader) (*table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := &table{headers: make([]string, len(header))}
	for i, h := range header {
		t.headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(t.rows)+2, err)
		}
		if blank(fields) {
			continue
		}

		rec := record{num: len(t.rows) + 2, fields: make(map[string]string, len(t.headers))}
		for i, h := range t.headers {
			if i < len(fields) {
				rec.fields[h] = fields[i]
			}
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
