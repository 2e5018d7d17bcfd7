package dataset

import "time"

// Destination is the reference root every other record points at.
// Rows are immutable once loaded.
type Destination struct {
	ID            int     `json:"destination_id"`
	Name          string  `json:"name"`
	Country       string  `json:"country"`
	CountryCode   string  `json:"country_code"`
	Region        string  `json:"region"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Timezone      string  `json:"timezone"`
	AirportCode   string  `json:"airport_code"`
	AirportName   string  `json:"airport_name"`
	OriginAirport string  `json:"origin_airport"`
	DataSource    string  `json:"data_source"`
}

// CostRecord holds one cost-of-living snapshot for a destination.
// Monetary figures are monthly unless the field name says otherwise.
type CostRecord struct {
	DestinationID     int       `json:"destination_id"`
	DataDate          time.Time `json:"data_date"`
	Currency          string    `json:"currency"`
	MonthlyLivingCost float64   `json:"monthly_living_cost"`
	Rent              float64   `json:"rent"`
	Food              float64   `json:"food"`
	Transport         float64   `json:"transport"`
	Utilities         float64   `json:"utilities"`
	MealInexpensive   float64   `json:"meal_inexpensive"`
	MealMidRange      float64   `json:"meal_mid_range"`
	Beer              float64   `json:"beer"`
	Coffee            float64   `json:"coffee"`
	DataSource        string    `json:"data_source"`
}

// FlightPriceRecord is one priced itinerary from a search.
// ReturnDate is nil for one-way fares.
type FlightPriceRecord struct {
	FlightID      int        `json:"flight_id"`
	DestinationID int        `json:"destination_id"`
	OriginAirport string     `json:"origin_airport"`
	SearchDate    time.Time  `json:"search_date"`
	DepartureDate time.Time  `json:"departure_date"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`
	Price         float64    `json:"price"`
	Currency      string     `json:"currency"`
	DurationHours float64    `json:"duration_hours"`
	DistanceKM    float64    `json:"distance_km"`
	Airline       string     `json:"airline"`
	DirectFlight  bool       `json:"direct_flight"`
	DataSource    string     `json:"data_source"`
}

// WeatherRecord is one day of observed or forecast weather.
// Forecast distinguishes predictions from observations.
type WeatherRecord struct {
	WeatherID       int       `json:"weather_id"`
	DestinationID   int       `json:"destination_id"`
	Date            time.Time `json:"date"`
	TempHighC       float64   `json:"temp_high_c"`
	TempLowC        float64   `json:"temp_low_c"`
	TempAvgC        float64   `json:"temp_avg_c"`
	RainfallMM      float64   `json:"rainfall_mm"`
	HumidityPercent float64   `json:"humidity_percent"`
	SunshineHours   float64   `json:"sunshine_hours"`
	WindSpeedKMH    float64   `json:"wind_speed_kmh"`
	Conditions      string    `json:"conditions"`
	UVIndex         float64   `json:"uv_index"`
	Forecast        bool      `json:"forecast_flag"`
	DataSource      string    `json:"data_source"`
}

// JoinedRow is one row of the merged view: a destination left-joined with
// its latest cost record and any matching flight and weather rows.
// Absent datasets leave the corresponding pointer nil rather than dropping
// the row.
type JoinedRow struct {
	Destination Destination        `json:"destination"`
	Cost        *CostRecord        `json:"cost,omitempty"`
	Flight      *FlightPriceRecord `json:"flight,omitempty"`
	Weather     *WeatherRecord     `json:"weather,omitempty"`
}

// DestinationStats holds per-destination summary statistics computed over
// the joined datasets. Pointer fields are nil when the backing dataset has
// no rows for the destination.
type DestinationStats struct {
	DestinationID      int      `json:"destination_id"`
	Name               string   `json:"name"`
	Country            string   `json:"country"`
	MonthlyLivingCost  *float64 `json:"monthly_living_cost,omitempty"`
	AvgFlightPrice     *float64 `json:"avg_flight_price,omitempty"`
	MinFlightPrice     *float64 `json:"min_flight_price,omitempty"`
	MaxFlightPrice     *float64 `json:"max_flight_price,omitempty"`
	FlightCount        int      `json:"flight_count"`
	AvgTempC           *float64 `json:"avg_temp_c,omitempty"`
	MaxTempC           *float64 `json:"max_temp_c,omitempty"`
	MinTempC           *float64 `json:"min_temp_c,omitempty"`
	TotalRainfallMM    *float64 `json:"total_rainfall_mm,omitempty"`
	AvgUVIndex         *float64 `json:"avg_uv_index,omitempty"`
	TotalSunshineHours *float64 `json:"total_sunshine_hours,omitempty"`
}
