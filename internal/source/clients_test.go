package source_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/places2go/internal/dataset"
	"github.com/neexbeast/places2go/internal/httpfetch"
	"github.com/neexbeast/places2go/internal/source"
)

type allowAll struct{}

func (allowAll) Acquire(ctx context.Context) error { return ctx.Err() }

func testFetchClient() *httpfetch.Client {
	return httpfetch.NewClient(allowAll{}, httpfetch.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond})
}

func alicante() dataset.Destination {
	return dataset.Destination{
		ID:          1,
		Name:        "Alicante",
		Latitude:    38.3452,
		Longitude:   -0.4810,
		AirportCode: "ALC",
	}
}

func TestWeatherClient_Fetch(t *testing.T) {
	day18 := time.Date(2025, 10, 18, 0, 0, 0, 0, time.UTC)
	day30 := time.Date(2025, 10, 30, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.NotEmpty(t, r.URL.Query().Get("lat"))

		body := `{"list": [
			{"dt": ` + unixStr(day18) + `, "temp": {"min": 17.0, "max": 26.0, "day": 21.5},
			 "humidity": 58, "rain": 0.4, "speed": 5.0, "uvi": 7,
			 "weather": [{"description": "clear sky"}]},
			{"dt": ` + unixStr(day30) + `, "temp": {"min": 15.0, "max": 22.0, "day": 18.0},
			 "humidity": 70, "rain": 2.0, "speed": 6.0, "uvi": 4,
			 "weather": [{"description": "rain"}]}
		]}`
		w.Write([]byte(body))
	}))
	defer srv.Close()

	client := source.NewWeatherClientWithURL(srv.URL, "test-key", testFetchClient())

	rows, err := client.Fetch(context.Background(), []dataset.Destination{alicante()},
		time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, rows, 1, "the day outside the requested range must be dropped")

	got := rows[0]
	assert.Equal(t, 1, got.DestinationID)
	assert.Equal(t, day18, got.Date)
	assert.Equal(t, 26.0, got.TempHighC)
	assert.Equal(t, 17.0, got.TempLowC)
	assert.Equal(t, 21.5, got.TempAvgC)
	assert.InDelta(t, 18.0, got.WindSpeedKMH, 1e-9, "wind arrives in m/s and is stored in km/h")
	assert.Equal(t, "clear sky", got.Conditions)
	assert.True(t, got.Forecast)
	assert.Equal(t, "openweather", got.DataSource)
}

func TestWeatherClient_Fetch_PropagatesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := source.NewWeatherClientWithURL(srv.URL, "bad-key", testFetchClient())

	_, err := client.Fetch(context.Background(), []dataset.Destination{alicante()},
		time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)

	var fe *httpfetch.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusUnauthorized, fe.Status)
}

func TestFlightClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/EXT/ALC/2025-10-18")
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		w.Write([]byte(`{
			"Quotes": [
				{"MinPrice": 89.99, "Direct": true,
				 "OutboundLeg": {"DepartureDate": "2025-10-18"},
				 "InboundLeg": {"DepartureDate": "2025-10-25"},
				 "CarrierName": "Ryanair", "DurationHours": 2.5, "DistanceKm": 1480},
				{"MinPrice": 102.50, "Direct": false,
				 "OutboundLeg": {"DepartureDate": "2025-10-18"},
				 "CarrierName": "Vueling", "DurationHours": 3.0, "DistanceKm": 1480}
			],
			"Currency": "GBP"
		}`))
	}))
	defer srv.Close()

	client := source.NewFlightClientWithURL(srv.URL, "test-key", testFetchClient())

	departure := time.Date(2025, 10, 18, 0, 0, 0, 0, time.UTC)
	rows, err := client.Fetch(context.Background(), "EXT", []dataset.Destination{alicante()}, departure, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, 1, first.DestinationID)
	assert.Equal(t, "EXT", first.OriginAirport)
	assert.Equal(t, 89.99, first.Price)
	assert.Equal(t, "GBP", first.Currency)
	assert.Equal(t, departure, first.DepartureDate)
	require.NotNil(t, first.ReturnDate)
	assert.Equal(t, time.Date(2025, 10, 25, 0, 0, 0, 0, time.UTC), *first.ReturnDate)
	assert.True(t, first.DirectFlight)
	assert.Equal(t, "skyscanner", first.DataSource)

	assert.Nil(t, rows[1].ReturnDate, "a quote without an inbound leg is one-way")
	assert.False(t, rows[1].DirectFlight)
}

func TestCostClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/slug:alicante/"), "city names become slugs in the path, got %s", r.URL.Path)

		w.Write([]byte(`{
			"currency": "EUR",
			"categories": [
				{"id": "HOUSING", "data": [{"id": "COST-RENT", "value": 780}]},
				{"id": "FOOD", "data": [
					{"id": "COST-FOOD", "value": 320},
					{"id": "COST-MEAL-INEXPENSIVE", "value": 12},
					{"id": "COST-BEER", "value": 3}
				]},
				{"id": "TRANSPORT", "data": [{"id": "COST-TRANSPORT", "value": 45}]},
				{"id": "UTILITIES", "data": [{"id": "COST-UTILITIES", "value": 110}]}
			]
		}`))
	}))
	defer srv.Close()

	client := source.NewCostClientWithURL(srv.URL, testFetchClient())

	rows, err := client.Fetch(context.Background(), []dataset.Destination{alicante()})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got := rows[0]
	assert.Equal(t, 1, got.DestinationID)
	assert.Equal(t, "EUR", got.Currency)
	assert.Equal(t, 780.0, got.Rent)
	assert.Equal(t, 320.0, got.Food)
	assert.Equal(t, 45.0, got.Transport)
	assert.Equal(t, 110.0, got.Utilities)
	assert.Equal(t, 12.0, got.MealInexpensive)
	assert.Equal(t, 3.0, got.Beer)
	assert.Equal(t, 780.0+320.0+45.0+110.0, got.MonthlyLivingCost)
	assert.Equal(t, "teleport", got.DataSource)
}

func unixStr(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
