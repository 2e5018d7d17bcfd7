package dataset

// Provenance labels where a table's rows came from. Downstream consumers
// branch on it for display only; the column shape is identical for all
// three origins.
type Provenance string

const (
	// ProvenanceCached means the rows were served from the persistent cache.
	ProvenanceCached Provenance = "cached"
	// ProvenanceLive means the rows came from a provider fetch just now.
	ProvenanceLive Provenance = "live"
	// ProvenanceFallback means the network source was unavailable and the
	// rows came from the static fallback dataset. The result is degraded
	// but usable.
	ProvenanceFallback Provenance = "fallback"
)

// Table is the canonical tabular result returned by the source fetchers.
// Exactly one of the row slices is populated per table, matching the
// fetcher that produced it.
type Table struct {
	Provenance Provenance          `json:"provenance"`
	Flights    []FlightPriceRecord `json:"flights,omitempty"`
	Weather    []WeatherRecord     `json:"weather,omitempty"`
	Costs      []CostRecord        `json:"costs,omitempty"`
}

// Degraded reports whether the table came from the static fallback.
func (t Table) Degraded() bool {
	return t.Provenance == ProvenanceFallback
}

// Len returns the number of rows in whichever slice is populated.
func (t Table) Len() int {
	return len(t.Flights) + len(t.Weather) + len(t.Costs)
}

// WithProvenance returns a copy of the table relabeled with p.
func (t Table) WithProvenance(p Provenance) Table {
	t.Provenance = p
	return t
}
