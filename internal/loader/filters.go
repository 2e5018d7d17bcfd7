package loader

import (
	"sort"
	"time"

	"github.com/neexbeast/places2go/internal/dataset"
)

// Filters are pure slice transformers: each returns a new slice and never
// mutates its input, so the loader's cached tables stay untouched no matter
// how callers compose them.

// CostFilter narrows a slice of cost records.
type CostFilter func([]dataset.CostRecord) []dataset.CostRecord

// CostsBySource keeps records with the given data_source tag.
func CostsBySource(source string) CostFilter {
	return func(in []dataset.CostRecord) []dataset.CostRecord {
		out := make([]dataset.CostRecord, 0, len(in))
		for _, c := range in {
			if c.DataSource == source {
				out = append(out, c)
			}
		}
		return out
	}
}

// CostsMostRecent keeps only the latest record per destination by data
// date, matching how "current costs" are selected for the merged view.
func CostsMostRecent() CostFilter {
	return func(in []dataset.CostRecord) []dataset.CostRecord {
		latest := make(map[int]dataset.CostRecord, len(in))
		for _, c := range in {
			if prev, ok := latest[c.DestinationID]; !ok || c.DataDate.After(prev.DataDate) {
				latest[c.DestinationID] = c
			}
		}
		out := make([]dataset.CostRecord, 0, len(latest))
		for _, c := range latest {
			out = append(out, c)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].DestinationID < out[j].DestinationID })
		return out
	}
}

// FlightFilter narrows a slice of flight price records.
type FlightFilter func([]dataset.FlightPriceRecord) []dataset.FlightPriceRecord

// FlightsBySource keeps records with the given data_source tag.
func FlightsBySource(source string) FlightFilter {
	return func(in []dataset.FlightPriceRecord) []dataset.FlightPriceRecord {
		out := make([]dataset.FlightPriceRecord, 0, len(in))
		for _, f := range in {
			if f.DataSource == source {
				out = append(out, f)
			}
		}
		return out
	}
}

// FlightsBySearchDate keeps records searched on the given day.
func FlightsBySearchDate(day time.Time) FlightFilter {
	return func(in []dataset.FlightPriceRecord) []dataset.FlightPriceRecord {
		out := make([]dataset.FlightPriceRecord, 0, len(in))
		for _, f := range in {
			if f.SearchDate.Equal(day) {
				out = append(out, f)
			}
		}
		return out
	}
}

// FlightsByDepartureRange keeps records departing within [from, to].
func FlightsByDepartureRange(from, to time.Time) FlightFilter {
	return func(in []dataset.FlightPriceRecord) []dataset.FlightPriceRecord {
		out := make([]dataset.FlightPriceRecord, 0, len(in))
		for _, f := range in {
			if !f.DepartureDate.Before(from) && !f.DepartureDate.After(to) {
				out = append(out, f)
			}
		}
		return out
	}
}

// FlightsByOrigin keeps records departing from the given airport.
func FlightsByOrigin(airport string) FlightFilter {
	return func(in []dataset.FlightPriceRecord) []dataset.FlightPriceRecord {
		out := make([]dataset.FlightPriceRecord, 0, len(in))
		for _, f := range in {
			if f.OriginAirport == airport {
				out = append(out, f)
			}
		}
		return out
	}
}

// FlightsCheapest orders by ascending price and keeps at most limit
// records per destination.
func FlightsCheapest(limit int) FlightFilter {
	return func(in []dataset.FlightPriceRecord) []dataset.FlightPriceRecord {
		sorted := make([]dataset.FlightPriceRecord, len(in))
		copy(sorted, in)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

		counts := make(map[int]int)
		out := make([]dataset.FlightPriceRecord, 0, len(sorted))
		for _, f := range sorted {
			if counts[f.DestinationID] >= limit {
				continue
			}
			counts[f.DestinationID]++
			out = append(out, f)
		}
		return out
	}
}

// WeatherFilter narrows a slice of weather records.
type WeatherFilter func([]dataset.WeatherRecord) []dataset.WeatherRecord

// WeatherBySource keeps records with the given data_source tag.
func WeatherBySource(source string) WeatherFilter {
	return func(in []dataset.WeatherRecord) []dataset.WeatherRecord {
		out := make([]dataset.WeatherRecord, 0, len(in))
		for _, w := range in {
			if w.DataSource == source {
				out = append(out, w)
			}
		}
		return out
	}
}

// WeatherByDateRange keeps records observed within [from, to].
func WeatherByDateRange(from, to time.Time) WeatherFilter {
	return func(in []dataset.WeatherRecord) []dataset.WeatherRecord {
		out := make([]dataset.WeatherRecord, 0, len(in))
		for _, w := range in {
			if !w.Date.Before(from) && !w.Date.After(to) {
				out = append(out, w)
			}
		}
		return out
	}
}

// WeatherForecastOnly keeps forecast rows, dropping observations.
func WeatherForecastOnly() WeatherFilter {
	return func(in []dataset.WeatherRecord) []dataset.WeatherRecord {
		out := make([]dataset.WeatherRecord, 0, len(in))
		for _, w := range in {
			if w.Forecast {
				out = append(out, w)
			}
		}
		return out
	}
}
