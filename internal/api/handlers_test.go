package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/places2go/internal/api"
	"github.com/neexbeast/places2go/internal/dataset"
)

const testToken = "test-token"

type stubCoordinator struct {
	rows      []dataset.JoinedRow
	stats     []dataset.DestinationStats
	sources   map[string][]string
	err       error
	reloadErr error

	lastSource string
	reloads    int
}

func (s *stubCoordinator) LoadAll(dataSource string) ([]dataset.JoinedRow, error) {
	s.lastSource = dataSource
	return s.rows, s.err
}

func (s *stubCoordinator) Aggregate(dataSource string) ([]dataset.DestinationStats, error) {
	s.lastSource = dataSource
	return s.stats, s.err
}

func (s *stubCoordinator) AvailableDataSources() (map[string][]string, error) {
	return s.sources, s.err
}

func (s *stubCoordinator) Reload() error {
	s.reloads++
	return s.reloadErr
}

type stubFlightSource struct {
	table dataset.Table
	err   error

	lastOrigin string
	lastCodes  []string
}

func (s *stubFlightSource) GetCurrent(ctx context.Context, origin string, airportCodes []string, departure time.Time, ret *time.Time) (dataset.Table, error) {
	s.lastOrigin = origin
	s.lastCodes = airportCodes
	return s.table, s.err
}

type stubWeatherSource struct {
	table dataset.Table
	err   error
}

func (s *stubWeatherSource) GetCurrent(ctx context.Context, airportCodes []string, from, to time.Time) (dataset.Table, error) {
	return s.table, s.err
}

type stubCostSource struct {
	table dataset.Table
	err   error
}

func (s *stubCostSource) GetCurrent(ctx context.Context, airportCodes []string) (dataset.Table, error) {
	return s.table, s.err
}

type testServer struct {
	coord   *stubCoordinator
	flights *stubFlightSource
	weather *stubWeatherSource
	costs   *stubCostSource
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		coord:   &stubCoordinator{},
		flights: &stubFlightSource{},
		weather: &stubWeatherSource{},
		costs:   &stubCostSource{},
	}
	log := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))
	handlers := api.NewHandlers(ts.coord, ts.flights, ts.weather, ts.costs, log)
	ts.router = api.NewRouter(handlers, testToken)
	return ts
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func (ts *testServer) request(t *testing.T, method, target string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth_NoAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/v1/health", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_MissingToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/v1/destinations", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_WrongToken(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/destinations", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetMergedView(t *testing.T) {
	ts := newTestServer(t)
	ts.coord.rows = []dataset.JoinedRow{
		{Destination: dataset.Destination{ID: 1, Name: "Alicante"}},
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/destinations?source=demo1", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "demo1", ts.coord.lastSource)

	var rows []dataset.JoinedRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Alicante", rows[0].Destination.Name)
}

func TestGetMergedView_ValidationError(t *testing.T) {
	ts := newTestServer(t)
	ts.coord.err = &dataset.ValidationError{
		Kind:    dataset.MissingColumn,
		Dataset: "flight_prices",
		Column:  "price",
		Detail:  "required column absent",
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/destinations", true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "missing column")
}

func TestGetAggregates(t *testing.T) {
	ts := newTestServer(t)
	cost := 1450.0
	ts.coord.stats = []dataset.DestinationStats{
		{DestinationID: 1, Name: "Alicante", Country: "Spain", MonthlyLivingCost: &cost},
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/aggregates", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats []dataset.DestinationStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats, 1)
	require.NotNil(t, stats[0].MonthlyLivingCost)
	assert.Equal(t, 1450.0, *stats[0].MonthlyLivingCost)
}

func TestGetDataSources(t *testing.T) {
	ts := newTestServer(t)
	ts.coord.sources = map[string][]string{"flight_prices": {"demo1"}}

	rec := ts.request(t, http.MethodGet, "/api/v1/sources", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var sources map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sources))
	assert.Equal(t, []string{"demo1"}, sources["flight_prices"])
}

func TestReload(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/api/v1/reload", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ts.coord.reloads)
}

func TestReload_ValidationFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.coord.reloadErr = &dataset.ValidationError{
		Kind:    dataset.ReferentialIntegrity,
		Dataset: "flight_prices",
		Detail:  "unknown destination id 99",
	}

	rec := ts.request(t, http.MethodPost, "/api/v1/reload", true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetFlights(t *testing.T) {
	ts := newTestServer(t)
	ts.flights.table = dataset.Table{
		Provenance: dataset.ProvenanceLive,
		Flights:    []dataset.FlightPriceRecord{{FlightID: 1, DestinationID: 1, Price: 89.99}},
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/flights?origin=ext&airports=alc,agp&departure=2025-10-18&return=2025-10-25", true)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "EXT", ts.flights.lastOrigin, "origin must be uppercased")
	assert.Equal(t, []string{"ALC", "AGP"}, ts.flights.lastCodes)

	var table dataset.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	assert.Equal(t, dataset.ProvenanceLive, table.Provenance)
	require.Len(t, table.Flights, 1)
}

func TestGetFlights_MissingParams(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/v1/flights?airports=ALC&departure=2025-10-18", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "origin is required")

	rec = ts.request(t, http.MethodGet, "/api/v1/flights?origin=EXT&departure=2025-10-18", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "airports is required")

	rec = ts.request(t, http.MethodGet, "/api/v1/flights?origin=EXT&airports=ALC&departure=18-10-2025", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "departure must be ISO formatted")

	rec = ts.request(t, http.MethodGet, "/api/v1/flights?origin=EXT&airports=ALC&departure=2025-10-18&return=soon", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "return must be ISO formatted")
}

func TestGetFlights_DegradedStillServes(t *testing.T) {
	ts := newTestServer(t)
	ts.flights.table = dataset.Table{
		Provenance: dataset.ProvenanceFallback,
		Flights:    []dataset.FlightPriceRecord{{FlightID: 1, DestinationID: 1, Price: 89.99}},
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/flights?origin=EXT&airports=ALC&departure=2025-10-18", true)
	require.Equal(t, http.StatusOK, rec.Code, "degraded data is served, not refused")

	var table dataset.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	assert.Equal(t, dataset.ProvenanceFallback, table.Provenance)
}

func TestGetWeather(t *testing.T) {
	ts := newTestServer(t)
	ts.weather.table = dataset.Table{
		Provenance: dataset.ProvenanceCached,
		Weather:    []dataset.WeatherRecord{{WeatherID: 1, DestinationID: 1, TempAvgC: 21.5}},
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/weather?airports=ALC&from=2025-10-15&to=2025-10-20", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var table dataset.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	assert.Equal(t, dataset.ProvenanceCached, table.Provenance)
	require.Len(t, table.Weather, 1)
}

func TestGetWeather_MissingParams(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/v1/weather?from=2025-10-15&to=2025-10-20", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.request(t, http.MethodGet, "/api/v1/weather?airports=ALC&from=2025-10-15", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCosts(t *testing.T) {
	ts := newTestServer(t)
	ts.costs.table = dataset.Table{
		Provenance: dataset.ProvenanceFallback,
		Costs:      []dataset.CostRecord{{DestinationID: 1, MonthlyLivingCost: 1450}},
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/costs?airports=ALC", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var table dataset.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	require.Len(t, table.Costs, 1)
	assert.Equal(t, 1450.0, table.Costs[0].MonthlyLivingCost)
}

func TestGetCosts_MissingAirports(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/v1/costs", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
