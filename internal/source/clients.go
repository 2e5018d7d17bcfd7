package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/places2go/internal/dataset"
	"github.com/neexbeast/places2go/internal/httpfetch"
)

const dateLayout = "2006-01-02"

// ---- OpenWeatherMap ----

// WeatherClient fetches daily forecasts from OpenWeatherMap.
type WeatherClient struct {
	apiKey  string
	baseURL string
	client  *httpfetch.Client
}

const owmDefaultURL = "https://api.openweathermap.org/data/2.5/forecast/daily"

// NewWeatherClient constructs a WeatherClient with the given API key.
func NewWeatherClient(apiKey string, client *httpfetch.Client) *WeatherClient {
	return &WeatherClient{apiKey: apiKey, baseURL: owmDefaultURL, client: client}
}

// NewWeatherClientWithURL constructs a WeatherClient pointing at a custom
// base URL (for tests).
func NewWeatherClientWithURL(baseURL, apiKey string, client *httpfetch.Client) *WeatherClient {
	return &WeatherClient{apiKey: apiKey, baseURL: baseURL, client: client}
}

type owmDailyResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
			Day float64 `json:"day"`
		} `json:"temp"`
		Humidity float64 `json:"humidity"`
		Rain     float64 `json:"rain"`
		Speed    float64 `json:"speed"`
		UVI      float64 `json:"uvi"`
		Weather  []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// Fetch retrieves forecast rows for the given destinations, one provider
// call per destination, keeping only days within [from, to].
func (c *WeatherClient) Fetch(ctx context.Context, dests []dataset.Destination, from, to time.Time) ([]dataset.WeatherRecord, error) {
	g, gCtx := errgroup.WithContext(ctx)
	perDest := make([][]dataset.WeatherRecord, len(dests))

	for i, d := range dests {
		i, d := i, d
		g.Go(func() error {
			endpoint := fmt.Sprintf("%s?lat=%f&lon=%f&units=metric&appid=%s",
				c.baseURL, d.Latitude, d.Longitude, c.apiKey)

			var raw owmDailyResponse
			if err := c.client.GetJSON(gCtx, endpoint, &raw); err != nil {
				return fmt.Errorf("openweathermap fetch for %s: %w", d.Name, err)
			}

			rows := make([]dataset.WeatherRecord, 0, len(raw.List))
			for _, day := range raw.List {
				date := time.Unix(day.Dt, 0).UTC().Truncate(24 * time.Hour)
				if date.Before(from) || date.After(to) {
					continue
				}
				conditions := ""
				if len(day.Weather) > 0 {
					conditions = day.Weather[0].Description
				}
				rows = append(rows, dataset.WeatherRecord{
					DestinationID:   d.ID,
					Date:            date,
					TempHighC:       day.Temp.Max,
					TempLowC:        day.Temp.Min,
					TempAvgC:        day.Temp.Day,
					RainfallMM:      day.Rain,
					HumidityPercent: day.Humidity,
					WindSpeedKMH:    day.Speed * 3.6,
					Conditions:      conditions,
					UVIndex:         day.UVI,
					Forecast:        true,
					DataSource:      "openweather",
				})
			}
			perDest[i] = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []dataset.WeatherRecord
	for _, rows := range perDest {
		out = append(out, rows...)
	}
	return out, nil
}

// ---- Skyscanner-style flight quotes ----

// FlightClient fetches indicative flight quotes from a Skyscanner-style
// browse-quotes endpoint.
type FlightClient struct {
	apiKey  string
	baseURL string
	client  *httpfetch.Client
}

const skyscannerDefaultURL = "https://partners.api.skyscanner.net/apiservices/browsequotes/v1.0"

// NewFlightClient constructs a FlightClient with the given API key.
func NewFlightClient(apiKey string, client *httpfetch.Client) *FlightClient {
	return &FlightClient{apiKey: apiKey, baseURL: skyscannerDefaultURL, client: client}
}

// NewFlightClientWithURL constructs a FlightClient pointing at a custom
// base URL (for tests).
func NewFlightClientWithURL(baseURL, apiKey string, client *httpfetch.Client) *FlightClient {
	return &FlightClient{apiKey: apiKey, baseURL: baseURL, client: client}
}

type quotesResponse struct {
	Quotes []struct {
		MinPrice    float64 `json:"MinPrice"`
		Direct      bool    `json:"Direct"`
		OutboundLeg struct {
			DepartureDate string `json:"DepartureDate"`
		} `json:"OutboundLeg"`
		InboundLeg *struct {
			DepartureDate string `json:"DepartureDate"`
		} `json:"InboundLeg"`
		CarrierName   string  `json:"CarrierName"`
		DurationHours float64 `json:"DurationHours"`
		DistanceKM    float64 `json:"DistanceKm"`
	} `json:"Quotes"`
	Currency string `json:"Currency"`
}

// Fetch retrieves quotes from origin to each destination for the given
// departure (and optional return) date.
func (c *FlightClient) Fetch(ctx context.Context, origin string, dests []dataset.Destination, departure time.Time, ret *time.Time) ([]dataset.FlightPriceRecord, error) {
	g, gCtx := errgroup.WithContext(ctx)
	perDest := make([][]dataset.FlightPriceRecord, len(dests))
	searchDate := time.Now().UTC().Truncate(24 * time.Hour)

	for i, d := range dests {
		i, d := i, d
		g.Go(func() error {
			endpoint := fmt.Sprintf("%s/%s/%s/%s?apikey=%s",
				c.baseURL, url.PathEscape(origin), url.PathEscape(d.AirportCode),
				departure.Format(dateLayout), c.apiKey)
			if ret != nil {
				endpoint += "&inboundpartialdate=" + ret.Format(dateLayout)
			}

			var raw quotesResponse
			if err := c.client.GetJSON(gCtx, endpoint, &raw); err != nil {
				return fmt.Errorf("flight quotes fetch for %s: %w", d.AirportCode, err)
			}

			rows := make([]dataset.FlightPriceRecord, 0, len(raw.Quotes))
			for _, q := range raw.Quotes {
				dep, err := time.Parse(dateLayout, q.OutboundLeg.DepartureDate)
				if err != nil {
					dep = departure
				}
				var retDate *time.Time
				if q.InboundLeg != nil {
					if rd, err := time.Parse(dateLayout, q.InboundLeg.DepartureDate); err == nil {
						retDate = &rd
					}
				}
				rows = append(rows, dataset.FlightPriceRecord{
					DestinationID: d.ID,
					OriginAirport: origin,
					SearchDate:    searchDate,
					DepartureDate: dep,
					ReturnDate:    retDate,
					Price:         q.MinPrice,
					Currency:      raw.Currency,
					DurationHours: q.DurationHours,
					DistanceKM:    q.DistanceKM,
					Airline:       q.CarrierName,
					DirectFlight:  q.Direct,
					DataSource:    "skyscanner",
				})
			}
			perDest[i] = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []dataset.FlightPriceRecord
	for _, rows := range perDest {
		out = append(out, rows...)
	}
	return out, nil
}

// ---- Teleport-style cost of living ----

// CostClient fetches cost-of-living figures from a Teleport-style urban
// areas endpoint (no key required).
type CostClient struct {
	baseURL string
	client  *httpfetch.Client
}

const teleportDefaultURL = "https://api.teleport.org/api/urban_areas"

// NewCostClient constructs a CostClient.
func NewCostClient(client *httpfetch.Client) *CostClient {
	return &CostClient{baseURL: teleportDefaultURL, client: client}
}

// NewCostClientWithURL constructs a CostClient pointing at a custom base
// URL (for tests).
func NewCostClientWithURL(baseURL string, client *httpfetch.Client) *CostClient {
	return &CostClient{baseURL: baseURL, client: client}
}

type costDetailsResponse struct {
	Currency   string `json:"currency"`
	Categories []struct {
		ID   string `json:"id"`
		Data []struct {
			ID    string  `json:"id"`
			Value float64 `json:"value"`
		} `json:"data"`
	} `json:"categories"`
}

// cityToSlug converts a city name to a slug (lowercase, spaces to hyphens).
func cityToSlug(city string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(city), " ", "-"))
}

// Fetch retrieves the current cost-of-living record for each destination.
func (c *CostClient) Fetch(ctx context.Context, dests []dataset.Destination) ([]dataset.CostRecord, error) {
	g, gCtx := errgroup.WithContext(ctx)
	out := make([]dataset.CostRecord, len(dests))
	today := time.Now().UTC().Truncate(24 * time.Hour)

	for i, d := range dests {
		i, d := i, d
		g.Go(func() error {
			endpoint := c.baseURL + "/slug:" + cityToSlug(d.Name) + "/details/"

			var raw costDetailsResponse
			if err := c.client.GetJSON(gCtx, endpoint, &raw); err != nil {
				return fmt.Errorf("cost of living fetch for %s: %w", d.Name, err)
			}

			rec := dataset.CostRecord{
				DestinationID: d.ID,
				DataDate:      today,
				Currency:      raw.Currency,
				DataSource:    "teleport",
			}
			for _, cat := range raw.Categories {
				for _, item := range cat.Data {
					switch item.ID {
					case "COST-RENT":
						rec.Rent = item.Value
					case "COST-FOOD":
						rec.Food = item.Value
					case "COST-TRANSPORT":
						rec.Transport = item.Value
					case "COST-UTILITIES":
						rec.Utilities = item.Value
					case "COST-MEAL-INEXPENSIVE":
						rec.MealInexpensive = item.Value
					case "COST-MEAL-MID-RANGE":
						rec.MealMidRange = item.Value
					case "COST-BEER":
						rec.Beer = item.Value
					case "COST-COFFEE":
						rec.Coffee = item.Value
					}
				}
			}
			rec.MonthlyLivingCost = rec.Rent + rec.Food + rec.Transport + rec.Utilities
			out[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
