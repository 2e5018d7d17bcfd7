package source

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/neexbeast/places2go/internal/cache"
	"github.com/neexbeast/places2go/internal/dataset"
	"github.com/neexbeast/places2go/internal/loader"
)

// Config carries the per-source knobs consumed at construction time.
// Offline forces fallback-only operation, for running without network
// access.
type Config struct {
	TTL     time.Duration
	Offline bool
}

// Store is the persistent cache surface the fetchers need. Satisfied by
// cache.PersistentStore.
type Store interface {
	Get(key string) (dataset.Table, bool)
	Set(key string, table dataset.Table, ttl time.Duration) error
}

// Fallback is the static-dataset surface the fetchers degrade to.
// Satisfied by loader.Loader.
type Fallback interface {
	LoadDestinations() ([]dataset.Destination, error)
	LoadCosts(filters ...loader.CostFilter) ([]dataset.CostRecord, error)
	LoadFlights(filters ...loader.FlightFilter) ([]dataset.FlightPriceRecord, error)
	LoadWeather(filters ...loader.WeatherFilter) ([]dataset.WeatherRecord, error)
}

// flightProvider is the interface satisfied by FlightClient.
type flightProvider interface {
	Fetch(ctx context.Context, origin string, dests []dataset.Destination, departure time.Time, ret *time.Time) ([]dataset.FlightPriceRecord, error)
}

// weatherProvider is the interface satisfied by WeatherClient.
type weatherProvider interface {
	Fetch(ctx context.Context, dests []dataset.Destination, from, to time.Time) ([]dataset.WeatherRecord, error)
}

// costProvider is the interface satisfied by CostClient.
type costProvider interface {
	Fetch(ctx context.Context, dests []dataset.Destination) ([]dataset.CostRecord, error)
}

// resolveDestinations maps the requested airport codes to destination rows
// from the master table. Unknown codes are ignored.
func resolveDestinations(fb Fallback, airportCodes []string) ([]dataset.Destination, error) {
	all, err := fb.LoadDestinations()
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(airportCodes))
	for _, c := range airportCodes {
		wanted[c] = true
	}
	out := make([]dataset.Destination, 0, len(airportCodes))
	for _, d := range all {
		if wanted[d.AirportCode] {
			out = append(out, d)
		}
	}
	return out, nil
}

func idSet(dests []dataset.Destination) map[int]bool {
	ids := make(map[int]bool, len(dests))
	for _, d := range dests {
		ids[d.ID] = true
	}
	return ids
}

// FlightFetcher serves current flight prices: persistent cache first, then
// the live provider through its rate limiter and retry policy, then the
// static fallback dataset. Network failures never escape; the worst
// outcome is a fallback-tagged table.
type FlightFetcher struct {
	provider flightProvider
	store    Store
	fallback Fallback
	cfg      Config
	group    singleflight.Group
}

// NewFlightFetcher composes a FlightFetcher from its parts.
func NewFlightFetcher(provider flightProvider, store Store, fallback Fallback, cfg Config) *FlightFetcher {
	return &FlightFetcher{provider: provider, store: store, fallback: fallback, cfg: cfg}
}

// GetCurrent returns flight prices from origin to the given destination
// airports. The returned table's provenance says whether it was served
// from cache, fetched live, or degraded to the static fallback. The only
// error returned is a failure to read the static datasets themselves.
func (f *FlightFetcher) GetCurrent(ctx context.Context, origin string, airportCodes []string, departure time.Time, ret *time.Time) (dataset.Table, error) {
	params := map[string]string{"origin": origin, "departure": departure.Format(dateLayout)}
	if ret != nil {
		params["return"] = ret.Format(dateLayout)
	}
	key := cache.Fingerprint("flights", airportCodes, params)

	if t, ok := f.store.Get(key); ok {
		return t.WithProvenance(dataset.ProvenanceCached), nil
	}
	if f.cfg.Offline {
		return f.fallbackTable(origin, airportCodes)
	}

	v, err, _ := f.group.Do(key, func() (any, error) {
		dests, err := resolveDestinations(f.fallback, airportCodes)
		if err != nil {
			return nil, err
		}
		rows, err := f.provider.Fetch(ctx, origin, dests, departure, ret)
		if err != nil {
			return nil, err
		}
		t := dataset.Table{Provenance: dataset.ProvenanceLive, Flights: rows}
		if err := f.store.Set(key, t, f.cfg.TTL); err != nil {
			slog.Warn("caching flight table failed", "key", key, "err", err)
		}
		return t, nil
	})
	if err != nil {
		slog.Warn("flight fetch failed, serving fallback", "origin", origin, "err", err)
		return f.fallbackTable(origin, airportCodes)
	}
	return v.(dataset.Table), nil
}

// Cheapest returns the current flight table narrowed to the lowest-priced
// rows, at most limit per destination.
func (f *FlightFetcher) Cheapest(ctx context.Context, origin string, airportCodes []string, departure time.Time, ret *time.Time, limit int) (dataset.Table, error) {
	t, err := f.GetCurrent(ctx, origin, airportCodes, departure, ret)
	if err != nil {
		return dataset.Table{}, err
	}
	t.Flights = loader.FlightsCheapest(limit)(t.Flights)
	return t, nil
}

func (f *FlightFetcher) fallbackTable(origin string, airportCodes []string) (dataset.Table, error) {
	dests, err := resolveDestinations(f.fallback, airportCodes)
	if err != nil {
		return dataset.Table{}, err
	}
	ids := idSet(dests)

	var filters []loader.FlightFilter
	if origin != "" {
		filters = append(filters, loader.FlightsByOrigin(origin))
	}
	rows, err := f.fallback.LoadFlights(filters...)
	if err != nil {
		return dataset.Table{}, err
	}

	kept := make([]dataset.FlightPriceRecord, 0, len(rows))
	for _, r := range rows {
		if ids[r.DestinationID] {
			kept = append(kept, r)
		}
	}
	return dataset.Table{Provenance: dataset.ProvenanceFallback, Flights: kept}, nil
}

// WeatherFetcher serves current weather with the same cache, live, and
// fallback resolution as FlightFetcher.
type WeatherFetcher struct {
	provider weatherProvider
	store    Store
	fallback Fallback
	cfg      Config
	group    singleflight.Group
}

// NewWeatherFetcher composes a WeatherFetcher from its parts.
func NewWeatherFetcher(provider weatherProvider, store Store, fallback Fallback, cfg Config) *WeatherFetcher {
	return &WeatherFetcher{provider: provider, store: store, fallback: fallback, cfg: cfg}
}

// GetCurrent returns weather rows for the given destination airports
// within [from, to].
func (f *WeatherFetcher) GetCurrent(ctx context.Context, airportCodes []string, from, to time.Time) (dataset.Table, error) {
	params := map[string]string{"from": from.Format(dateLayout), "to": to.Format(dateLayout)}
	key := cache.Fingerprint("weather", airportCodes, params)

	if t, ok := f.store.Get(key); ok {
		return t.WithProvenance(dataset.ProvenanceCached), nil
	}
	if f.cfg.Offline {
		return f.fallbackTable(airportCodes, from, to)
	}

	v, err, _ := f.group.Do(key, func() (any, error) {
		dests, err := resolveDestinations(f.fallback, airportCodes)
		if err != nil {
			return nil, err
		}
		rows, err := f.provider.Fetch(ctx, dests, from, to)
		if err != nil {
			return nil, err
		}
		t := dataset.Table{Provenance: dataset.ProvenanceLive, Weather: rows}
		if err := f.store.Set(key, t, f.cfg.TTL); err != nil {
			slog.Warn("caching weather table failed", "key", key, "err", err)
		}
		return t, nil
	})
	if err != nil {
		slog.Warn("weather fetch failed, serving fallback", "err", err)
		return f.fallbackTable(airportCodes, from, to)
	}
	return v.(dataset.Table), nil
}

func (f *WeatherFetcher) fallbackTable(airportCodes []string, from, to time.Time) (dataset.Table, error) {
	dests, err := resolveDestinations(f.fallback, airportCodes)
	if err != nil {
		return dataset.Table{}, err
	}
	ids := idSet(dests)

	rows, err := f.fallback.LoadWeather(loader.WeatherByDateRange(from, to))
	if err != nil {
		return dataset.Table{}, err
	}

	kept := make([]dataset.WeatherRecord, 0, len(rows))
	for _, r := range rows {
		if ids[r.DestinationID] {
			kept = append(kept, r)
		}
	}
	return dataset.Table{Provenance: dataset.ProvenanceFallback, Weather: kept}, nil
}

// CostFetcher serves current cost-of-living figures with the same cache,
// live, and fallback resolution as the other fetchers. Costs change
// slowly, so its TTL is typically much longer.
type CostFetcher struct {
	provider costProvider
	store    Store
	fallback Fallback
	cfg      Config
	group    singleflight.Group
}

// NewCostFetcher composes a CostFetcher from its parts.
func NewCostFetcher(provider costProvider, store Store, fallback Fallback, cfg Config) *CostFetcher {
	return &CostFetcher{provider: provider, store: store, fallback: fallback, cfg: cfg}
}

// GetCurrent returns the current cost record per destination airport.
func (f *CostFetcher) GetCurrent(ctx context.Context, airportCodes []string) (dataset.Table, error) {
	key := cache.Fingerprint("costs", airportCodes, nil)

	if t, ok := f.store.Get(key); ok {
		return t.WithProvenance(dataset.ProvenanceCached), nil
	}
	if f.cfg.Offline {
		return f.fallbackTable(airportCodes)
	}

	v, err, _ := f.group.Do(key, func() (any, error) {
		dests, err := resolveDestinations(f.fallback, airportCodes)
		if err != nil {
			return nil, err
		}
		rows, err := f.provider.Fetch(ctx, dests)
		if err != nil {
			return nil, err
		}
		t := dataset.Table{Provenance: dataset.ProvenanceLive, Costs: rows}
		if err := f.store.Set(key, t, f.cfg.TTL); err != nil {
			slog.Warn("caching cost table failed", "key", key, "err", err)
		}
		return t, nil
	})
	if err != nil {
		slog.Warn("cost fetch failed, serving fallback", "err", err)
		return f.fallbackTable(airportCodes)
	}
	return v.(dataset.Table), nil
}

func (f *CostFetcher) fallbackTable(airportCodes []string) (dataset.Table, error) {
	dests, err := resolveDestinations(f.fallback, airportCodes)
	if err != nil {
		return dataset.Table{}, err
	}
	ids := idSet(dests)

	rows, err := f.fallback.LoadCosts(loader.CostsMostRecent())
	if err != nil {
		return dataset.Table{}, err
	}

	kept := make([]dataset.CostRecord, 0, len(rows))
	for _, r := range rows {
		if ids[r.DestinationID] {
			kept = append(kept, r)
		}
	}
	return dataset.Table{Provenance: dataset.ProvenanceFallback, Costs: kept}, nil
}
