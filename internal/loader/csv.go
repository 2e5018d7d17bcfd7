package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/neexbeast/places2go/internal/dataset"
)

const dateLayout = "2006-01-02"

// header maps column names to their index in each record.
type header map[string]int

// readCSV parses the file at path into a header map and data rows.
func readCSV(path string) (header, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("parsing %s: file is empty", path)
	}

	h := make(header, len(records[0]))
	for i, name := range records[0] {
		h[strings.TrimSpace(name)] = i
	}
	return h, records[1:], nil
}

// requireColumns fails with a MissingColumn error when any required column
// is absent from the header.
func requireColumns(ds string, h header, required []string) error {
	for _, col := range required {
		if _, ok := h[col]; !ok {
			return &dataset.ValidationError{
				Kind:    dataset.MissingColumn,
				Dataset: ds,
				Column:  col,
				Detail:  "required column absent",
			}
		}
	}
	return nil
}

// rowReader extracts typed fields from one CSV row, recording the first
// failure as a classified validation error.
type rowReader struct {
	ds  string
	h   header
	row []string
	n   int // 1-based data row number
	err error
}

func (r *rowReader) fail(kind dataset.ValidationKind, col, detail string) {
	if r.err == nil {
		r.err = &dataset.ValidationError{Kind: kind, Dataset: r.ds, Column: col, Row: r.n, Detail: detail}
	}
}

func (r *rowReader) raw(col string) string {
	idx, ok := r.h[col]
	if !ok || idx >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[idx])
}

// str returns an optional string field.
func (r *rowReader) str(col string) string {
	return r.raw(col)
}

// reqStr returns a required string field, failing on empty.
func (r *rowReader) reqStr(col string) string {
	v := r.raw(col)
	if v == "" {
		r.fail(dataset.MissingColumn, col, "required field is empty")
	}
	return v
}

func (r *rowReader) reqInt(col string) int {
	v := r.reqStr(col)
	if r.err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(dataset.RangeViolation, col, "not an integer: "+v)
		return 0
	}
	return n
}

func (r *rowReader) reqFloat(col string) float64 {
	v := r.reqStr(col)
	if r.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(dataset.RangeViolation, col, "not a number: "+v)
		return 0
	}
	return f
}

// float returns an optional numeric field, zero when empty.
func (r *rowReader) float(col string) float64 {
	v := r.raw(col)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(dataset.RangeViolation, col, "not a number: "+v)
		return 0
	}
	return f
}

func (r *rowReader) reqDate(col string) time.Time {
	v := r.reqStr(col)
	if r.err != nil {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		r.fail(dataset.RangeViolation, col, "not a date (want YYYY-MM-DD): "+v)
		return time.Time{}
	}
	return t
}

// date returns an optional date field, nil when empty.
func (r *rowReader) date(col string) *time.Time {
	v := r.raw(col)
	if v == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		r.fail(dataset.RangeViolation, col, "not a date (want YYYY-MM-DD): "+v)
		return nil
	}
	return &t
}

func (r *rowReader) boolean(col string) bool {
	switch strings.ToLower(r.raw(col)) {
	case "true", "t", "1", "yes":
		return true
	default:
		return false
	}
}
