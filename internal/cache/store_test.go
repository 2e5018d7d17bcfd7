package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/places2go/internal/cache"
	"github.com/neexbeast/places2go/internal/dataset"
)

func sampleTable() dataset.Table {
	ret := time.Date(2025, 10, 25, 0, 0, 0, 0, time.UTC)
	return dataset.Table{
		Provenance: dataset.ProvenanceLive,
		Flights: []dataset.FlightPriceRecord{
			{
				FlightID:      1,
				DestinationID: 1,
				OriginAirport: "EXT",
				SearchDate:    time.Date(2025, 10, 4, 0, 0, 0, 0, time.UTC),
				DepartureDate: time.Date(2025, 10, 18, 0, 0, 0, 0, time.UTC),
				ReturnDate:    &ret,
				Price:         89.99,
				Currency:      "GBP",
				DurationHours: 2.5,
				DistanceKM:    1480,
				Airline:       "Ryanair",
				DirectFlight:  true,
				DataSource:    "skyscanner",
			},
			{
				FlightID:      2,
				DestinationID: 1,
				OriginAirport: "EXT",
				SearchDate:    time.Date(2025, 10, 4, 0, 0, 0, 0, time.UTC),
				DepartureDate: time.Date(2025, 10, 19, 0, 0, 0, 0, time.UTC),
				Price:         102.50,
				Currency:      "GBP",
				DurationHours: 2.5,
				DistanceKM:    1480,
				Airline:       "Vueling",
				DirectFlight:  true,
				DataSource:    "skyscanner",
			},
		},
	}
}

func newFileStore(t *testing.T, dir string) *cache.PersistentStore {
	t.Helper()
	backend, err := cache.NewFileBackend(dir)
	require.NoError(t, err)
	return cache.NewPersistentStore(backend, 16)
}

func TestPersistentStore_SetAndGet(t *testing.T) {
	store := newFileStore(t, t.TempDir())
	table := sampleTable()

	require.NoError(t, store.Set("flights_abc", table, time.Minute))

	got, ok := store.Get("flights_abc")
	require.True(t, ok)
	assert.Equal(t, table, got)
}

func TestPersistentStore_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	table := sampleTable()

	store := newFileStore(t, dir)
	require.NoError(t, store.Set("flights_abc", table, time.Hour))

	// A fresh store over the same directory models a process restart: the
	// in-memory layer is empty, so the read must come from disk.
	restarted := newFileStore(t, dir)

	got, ok := restarted.Get("flights_abc")
	require.True(t, ok)
	assert.Equal(t, table, got)
}

func TestPersistentStore_ExpiredEntryDeleted(t *testing.T) {
	dir := t.TempDir()
	backend, err := cache.NewFileBackend(dir)
	require.NoError(t, err)
	store := cache.NewPersistentStore(backend, 16)

	require.NoError(t, store.Set("flights_abc", sampleTable(), 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	// Read through a fresh store so the expiry check runs against the
	// persisted entry rather than the in-memory copy.
	restarted := cache.NewPersistentStore(backend, 16)
	_, ok := restarted.Get("flights_abc")
	assert.False(t, ok, "expired persisted entry must read as absent")

	_, found, err := backend.Load("flights_abc")
	require.NoError(t, err)
	assert.False(t, found, "expired entry should be deleted from the backend")
}

func TestPersistentStore_CorruptEntryDeleted(t *testing.T) {
	dir := t.TempDir()
	store := newFileStore(t, dir)

	// A truncated file stands in for a crash mid-write outside the
	// temp-and-rename path.
	path := filepath.Join(dir, "flights_abc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"key": "flights_abc", "payl`), 0o644))

	_, ok := store.Get("flights_abc")
	assert.False(t, ok)

	_, ok = store.Get("flights_abc")
	assert.False(t, ok, "corrupt entry should stay absent on repeat reads")
}

func TestPersistentStore_Invalidate(t *testing.T) {
	dir := t.TempDir()
	store := newFileStore(t, dir)

	require.NoError(t, store.Set("flights_abc", sampleTable(), time.Hour))
	require.NoError(t, store.Invalidate("flights_abc"))

	_, ok := store.Get("flights_abc")
	assert.False(t, ok)

	restarted := newFileStore(t, dir)
	_, ok = restarted.Get("flights_abc")
	assert.False(t, ok, "invalidation must reach the backend")
}

func TestPersistentStore_InvalidateAll(t *testing.T) {
	dir := t.TempDir()
	store := newFileStore(t, dir)

	require.NoError(t, store.Set("flights_abc", sampleTable(), time.Hour))
	require.NoError(t, store.Set("weather_def", sampleTable(), time.Hour))
	require.NoError(t, store.InvalidateAll())

	restarted := newFileStore(t, dir)
	for _, key := range []string{"flights_abc", "weather_def"} {
		_, ok := restarted.Get(key)
		assert.False(t, ok, "key %q should be gone", key)
	}
}

func TestBoltBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	backend, err := cache.NewBoltBackend(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	store := cache.NewPersistentStore(backend, 16)
	table := sampleTable()

	require.NoError(t, store.Set("flights_abc", table, time.Hour))

	restarted := cache.NewPersistentStore(backend, 16)
	got, ok := restarted.Get("flights_abc")
	require.True(t, ok)
	assert.Equal(t, table, got)

	require.NoError(t, store.InvalidateAll())
	_, ok = cache.NewPersistentStore(backend, 16).Get("flights_abc")
	assert.False(t, ok)
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := cache.Fingerprint("flights", []string{"ALC", "AGP", "FAO"}, map[string]string{"origin": "EXT", "month": "2025-10"})
	b := cache.Fingerprint("flights", []string{"FAO", "ALC", "AGP"}, map[string]string{"month": "2025-10", "origin": "EXT"})

	assert.Equal(t, a, b, "entity and parameter order must not change the key")
}

func TestFingerprint_Distinguishes(t *testing.T) {
	base := cache.Fingerprint("flights", []string{"ALC"}, map[string]string{"origin": "EXT"})

	assert.NotEqual(t, base, cache.Fingerprint("weather", []string{"ALC"}, map[string]string{"origin": "EXT"}))
	assert.NotEqual(t, base, cache.Fingerprint("flights", []string{"AGP"}, map[string]string{"origin": "EXT"}))
	assert.NotEqual(t, base, cache.Fingerprint("flights", []string{"ALC"}, map[string]string{"origin": "BRS"}))
}

func TestFingerprint_SourcePrefix(t *testing.T) {
	key := cache.Fingerprint("weather", []string{"ALC"}, nil)
	assert.Contains(t, key, "weather_")
}
