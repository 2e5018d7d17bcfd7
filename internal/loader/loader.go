package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/neexbeast/places2go/internal/dataset"
)

// Loader reads the static relational datasets, validates them, and serves
// filtered, joined, and aggregated views. Each dataset is read once and
// cached in memory until Reload; a validation failure leaves any previously
// cached table for that dataset untouched. One Loader is constructed per
// process and shared by reference.
//
// A single mutex guards the cached tables; reads copy the slice header out
// so filters never touch the cached backing arrays.
type Loader struct {
	dataDir string

	mu           sync.Mutex
	destinations []dataset.Destination
	costs        []dataset.CostRecord
	flights      []dataset.FlightPriceRecord
	weather      []dataset.WeatherRecord
}

// New constructs a Loader over the given data directory, which holds the
// CSV files laid out as destinations/destinations.csv,
// destinations/cost_of_living.csv, flights/flight_prices.csv, and
// weather/weather_data.csv.
func New(dataDir string) *Loader {
	return &Loader{dataDir: dataDir}
}

func (l *Loader) destinationsPath() string {
	return filepath.Join(l.dataDir, "destinations", "destinations.csv")
}

func (l *Loader) costsPath() string {
	return filepath.Join(l.dataDir, "destinations", "cost_of_living.csv")
}

func (l *Loader) flightsPath() string {
	return filepath.Join(l.dataDir, "flights", "flight_prices.csv")
}

func (l *Loader) weatherPath() string {
	return filepath.Join(l.dataDir, "weather", "weather_data.csv")
}

// ensureDestinationsLocked loads and validates the destinations master
// table if not yet cached. Callers must hold l.mu.
func (l *Loader) ensureDestinationsLocked() error {
	if l.destinations != nil {
		return nil
	}
	dests, err := parseDestinations(l.destinationsPath())
	if err != nil {
		return fmt.Errorf("loading destinations: %w", err)
	}
	l.destinations = dests
	return nil
}

func (l *Loader) destIDsLocked() map[int]bool {
	ids := make(map[int]bool, len(l.destinations))
	for _, d := range l.destinations {
		ids[d.ID] = true
	}
	return ids
}

func (l *Loader) ensureCostsLocked() error {
	if l.costs != nil {
		return nil
	}
	if err := l.ensureDestinationsLocked(); err != nil {
		return err
	}
	costs, err := parseCosts(l.costsPath(), l.destIDsLocked())
	if err != nil {
		return fmt.Errorf("loading costs: %w", err)
	}
	l.costs = costs
	return nil
}

func (l *Loader) ensureFlightsLocked() error {
	if l.flights != nil {
		return nil
	}
	if err := l.ensureDestinationsLocked(); err != nil {
		return err
	}
	flights, err := parseFlights(l.flightsPath(), l.destIDsLocked())
	if err != nil {
		return fmt.Errorf("loading flights: %w", err)
	}
	l.flights = flights
	return nil
}

func (l *Loader) ensureWeatherLocked() error {
	if l.weather != nil {
		return nil
	}
	if err := l.ensureDestinationsLocked(); err != nil {
		return err
	}
	weather, err := parseWeather(l.weatherPath(), l.destIDsLocked())
	if err != nil {
		return fmt.Errorf("loading weather: %w", err)
	}
	l.weather = weather
	return nil
}

// LoadDestinations returns the destination master table.
func (l *Loader) LoadDestinations() ([]dataset.Destination, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureDestinationsLocked(); err != nil {
		return nil, err
	}
	out := make([]dataset.Destination, len(l.destinations))
	copy(out, l.destinations)
	return out, nil
}

// LoadCosts returns the cost-of-living table with the given filters
// applied in order.
func (l *Loader) LoadCosts(filters ...CostFilter) ([]dataset.CostRecord, error) {
	l.mu.Lock()
	if err := l.ensureCostsLocked(); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	out := make([]dataset.CostRecord, len(l.costs))
	copy(out, l.costs)
	l.mu.Unlock()

	for _, f := range filters {
		out = f(out)
	}
	return out, nil
}

// LoadFlights returns the flight price table with the given filters
// applied in order.
func (l *Loader) LoadFlights(filters ...FlightFilter) ([]dataset.FlightPriceRecord, error) {
	l.mu.Lock()
	if err := l.ensureFlightsLocked(); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	out := make([]dataset.FlightPriceRecord, len(l.flights))
	copy(out, l.flights)
	l.mu.Unlock()

	for _, f := range filters {
		out = f(out)
	}
	return out, nil
}

// LoadWeather returns the weather table with the given filters applied in
// order.
func (l *Loader) LoadWeather(filters ...WeatherFilter) ([]dataset.WeatherRecord, error) {
	l.mu.Lock()
	if err := l.ensureWeatherLocked(); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	out := make([]dataset.WeatherRecord, len(l.weather))
	copy(out, l.weather)
	l.mu.Unlock()

	for _, f := range filters {
		out = f(out)
	}
	return out, nil
}

// Reload clears the cached tables and re-reads every dataset from source.
// Each dataset swaps all-or-nothing: a dataset that fails validation keeps
// its previously cached table, and the error is returned. Readers running
// concurrently see either the old or the new table, never a partial swap.
func (l *Loader) Reload() error {
	dests, derr := parseDestinations(l.destinationsPath())
	if derr != nil {
		// Without a fresh master table the other datasets cannot be
		// FK-validated against it, so nothing is swapped.
		return fmt.Errorf("reloading destinations: %w", derr)
	}

	ids := make(map[int]bool, len(dests))
	for _, d := range dests {
		ids[d.ID] = true
	}

	costs, cerr := parseCosts(l.costsPath(), ids)
	flights, ferr := parseFlights(l.flightsPath(), ids)
	weather, werr := parseWeather(l.weatherPath(), ids)

	l.mu.Lock()
	l.destinations = dests
	if cerr == nil {
		l.costs = costs
	}
	if ferr == nil {
		l.flights = flights
	}
	if werr == nil {
		l.weather = weather
	}
	l.mu.Unlock()

	return errors.Join(cerr, ferr, werr)
}

// AvailableDataSources lists the distinct data_source tags present in each
// dynamic dataset.
func (l *Loader) AvailableDataSources() (map[string][]string, error) {
	costs, err := l.LoadCosts()
	if err != nil {
		return nil, err
	}
	flights, err := l.LoadFlights()
	if err != nil {
		return nil, err
	}
	weather, err := l.LoadWeather()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, 3)
	add := func(name string, tags map[string]bool) {
		if len(tags) == 0 {
			return
		}
		list := make([]string, 0, len(tags))
		for t := range tags {
			list = append(list, t)
		}
		sort.Strings(list)
		out[name] = list
	}

	costTags := make(map[string]bool)
	for _, c := range costs {
		if c.DataSource != "" {
			costTags[c.DataSource] = true
		}
	}
	flightTags := make(map[string]bool)
	for _, f := range flights {
		if f.DataSource != "" {
			flightTags[f.DataSource] = true
		}
	}
	weatherTags := make(map[string]bool)
	for _, w := range weather {
		if w.DataSource != "" {
			weatherTags[w.DataSource] = true
		}
	}

	add(dsCosts, costTags)
	add(dsFlights, flightTags)
	add(dsWeather, weatherTags)
	return out, nil
}
