package dataset

import "fmt"

// ValidationKind classifies why a static dataset failed its load-time checks.
type ValidationKind int

const (
	// MissingColumn: a required column is absent from the file header, or a
	// required field is empty in a row.
	MissingColumn ValidationKind = iota
	// ReferentialIntegrity: a foreign key does not resolve to an existing
	// destination, or a destination id is duplicated.
	ReferentialIntegrity
	// RangeViolation: a numeric or date field is outside its declared range.
	RangeViolation
)

func (k ValidationKind) String() string {
	switch k {
	case MissingColumn:
		return "missing column"
	case ReferentialIntegrity:
		return "referential integrity"
	case RangeViolation:
		return "range violation"
	default:
		return "unknown"
	}
}

// ValidationError is raised when a static dataset fails schema or invariant
// checks. It is always fatal to the load that produced it; rows are never
// silently dropped.
type ValidationError struct {
	Kind    ValidationKind
	Dataset string
	Column  string
	Row     int // 1-based data row, 0 when the error is not row-specific
	Detail  string
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s: %s (%s, row %d, column %q)", e.Dataset, e.Kind, e.Detail, e.Row, e.Column)
	}
	if e.Column != "" {
		return fmt.Sprintf("%s: %s (%s, column %q)", e.Dataset, e.Kind, e.Detail, e.Column)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Dataset, e.Kind, e.Detail)
}
