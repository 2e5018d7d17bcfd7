package loader

import (
	"fmt"

	"github.com/neexbeast/places2go/internal/dataset"
)

// Dataset names used in validation errors and AvailableDataSources.
const (
	dsDestinations = "destinations"
	dsCosts        = "cost_of_living"
	dsFlights      = "flight_prices"
	dsWeather      = "weather_data"
)

func parseDestinations(path string) ([]dataset.Destination, error) {
	h, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	required := []string{"destination_id", "name", "country", "latitude", "longitude", "timezone", "airport_code"}
	if err := requireColumns(dsDestinations, h, required); err != nil {
		return nil, err
	}

	out := make([]dataset.Destination, 0, len(rows))
	seen := make(map[int]bool, len(rows))

	for i, row := range rows {
		r := &rowReader{ds: dsDestinations, h: h, row: row, n: i + 1}

		d := dataset.Destination{
			ID:            r.reqInt("destination_id"),
			Name:          r.reqStr("name"),
			Country:       r.reqStr("country"),
			CountryCode:   r.str("country_code"),
			Region:        r.str("region"),
			Latitude:      r.reqFloat("latitude"),
			Longitude:     r.reqFloat("longitude"),
			Timezone:      r.reqStr("timezone"),
			AirportCode:   r.reqStr("airport_code"),
			AirportName:   r.str("airport_name"),
			OriginAirport: r.str("origin_airport"),
			DataSource:    r.str("data_source"),
		}
		if r.err == nil {
			if d.Latitude < -90 || d.Latitude > 90 {
				r.fail(dataset.RangeViolation, "latitude", fmt.Sprintf("latitude %v outside [-90, 90]", d.Latitude))
			} else if d.Longitude < -180 || d.Longitude > 180 {
				r.fail(dataset.RangeViolation, "longitude", fmt.Sprintf("longitude %v outside [-180, 180]", d.Longitude))
			} else if seen[d.ID] {
				r.fail(dataset.ReferentialIntegrity, "destination_id", fmt.Sprintf("duplicate destination id %d", d.ID))
			}
		}
		if r.err != nil {
			return nil, r.err
		}

		seen[d.ID] = true
		out = append(out, d)
	}
	return out, nil
}

func parseCosts(path string, destIDs map[int]bool) ([]dataset.CostRecord, error) {
	h, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	required := []string{"destination_id", "data_date", "currency", "monthly_living_cost", "rent", "food", "transport", "utilities"}
	if err := requireColumns(dsCosts, h, required); err != nil {
		return nil, err
	}

	out := make([]dataset.CostRecord, 0, len(rows))
	for i, row := range rows {
		r := &rowReader{ds: dsCosts, h: h, row: row, n: i + 1}

		c := dataset.CostRecord{
			DestinationID:     r.reqInt("destination_id"),
			DataDate:          r.reqDate("data_date"),
			Currency:          r.reqStr("currency"),
			MonthlyLivingCost: r.reqFloat("monthly_living_cost"),
			Rent:              r.reqFloat("rent"),
			Food:              r.reqFloat("food"),
			Transport:         r.reqFloat("transport"),
			Utilities:         r.reqFloat("utilities"),
			MealInexpensive:   r.float("meal_inexpensive"),
			MealMidRange:      r.float("meal_mid_range"),
			Beer:              r.float("beer"),
			Coffee:            r.float("coffee"),
			DataSource:        r.str("data_source"),
		}
		if r.err == nil {
			for col, v := range map[string]float64{
				"monthly_living_cost": c.MonthlyLivingCost,
				"rent":                c.Rent,
				"food":                c.Food,
				"transport":           c.Transport,
				"utilities":           c.Utilities,
				"meal_inexpensive":    c.MealInexpensive,
				"meal_mid_range":      c.MealMidRange,
				"beer":                c.Beer,
				"coffee":              c.Coffee,
			} {
				if v < 0 {
					r.fail(dataset.RangeViolation, col, fmt.Sprintf("monetary figure %v is negative", v))
					break
				}
			}
		}
		if r.err == nil && !destIDs[c.DestinationID] {
			r.fail(dataset.ReferentialIntegrity, "destination_id", fmt.Sprintf("unknown destination id %d", c.DestinationID))
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseFlights(path string, destIDs map[int]bool) ([]dataset.FlightPriceRecord, error) {
	h, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	required := []string{"flight_id", "destination_id", "origin_airport", "search_date", "departure_date", "price", "currency", "duration_hours", "airline"}
	if err := requireColumns(dsFlights, h, required); err != nil {
		return nil, err
	}

	out := make([]dataset.FlightPriceRecord, 0, len(rows))
	for i, row := range rows {
		r := &rowReader{ds: dsFlights, h: h, row: row, n: i + 1}

		f := dataset.FlightPriceRecord{
			FlightID:      r.reqInt("flight_id"),
			DestinationID: r.reqInt("destination_id"),
			OriginAirport: r.reqStr("origin_airport"),
			SearchDate:    r.reqDate("search_date"),
			DepartureDate: r.reqDate("departure_date"),
			ReturnDate:    r.date("return_date"),
			Price:         r.reqFloat("price"),
			Currency:      r.reqStr("currency"),
			DurationHours: r.reqFloat("duration_hours"),
			DistanceKM:    r.float("distance_km"),
			Airline:       r.reqStr("airline"),
			DirectFlight:  r.boolean("direct_flight"),
			DataSource:    r.str("data_source"),
		}
		if r.err == nil {
			switch {
			case f.Price <= 0:
				r.fail(dataset.RangeViolation, "price", fmt.Sprintf("price %v must be positive", f.Price))
			case f.DurationHours <= 0:
				r.fail(dataset.RangeViolation, "duration_hours", fmt.Sprintf("duration %v must be positive", f.DurationHours))
			case f.DistanceKM < 0:
				r.fail(dataset.RangeViolation, "distance_km", fmt.Sprintf("distance %v is negative", f.DistanceKM))
			case f.DepartureDate.Before(f.SearchDate):
				r.fail(dataset.RangeViolation, "departure_date", "departure date before search date")
			case f.ReturnDate != nil && f.ReturnDate.Before(f.DepartureDate):
				r.fail(dataset.RangeViolation, "return_date", "return date before departure date")
			}
		}
		if r.err == nil && !destIDs[f.DestinationID] {
			r.fail(dataset.ReferentialIntegrity, "destination_id", fmt.Sprintf("unknown destination id %d", f.DestinationID))
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, f)
	}
	return out, nil
}

func parseWeather(path string, destIDs map[int]bool) ([]dataset.WeatherRecord, error) {
	h, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	required := []string{"weather_id", "destination_id", "date", "temp_high_c", "temp_low_c", "temp_avg_c", "rainfall_mm", "humidity_percent", "uv_index"}
	if err := requireColumns(dsWeather, h, required); err != nil {
		return nil, err
	}

	out := make([]dataset.WeatherRecord, 0, len(rows))
	for i, row := range rows {
		r := &rowReader{ds: dsWeather, h: h, row: row, n: i + 1}

		w := dataset.WeatherRecord{
			WeatherID:       r.reqInt("weather_id"),
			DestinationID:   r.reqInt("destination_id"),
			Date:            r.reqDate("date"),
			TempHighC:       r.reqFloat("temp_high_c"),
			TempLowC:        r.reqFloat("temp_low_c"),
			TempAvgC:        r.reqFloat("temp_avg_c"),
			RainfallMM:      r.reqFloat("rainfall_mm"),
			HumidityPercent: r.reqFloat("humidity_percent"),
			SunshineHours:   r.float("sunshine_hours"),
			WindSpeedKMH:    r.float("wind_speed_kmh"),
			Conditions:      r.str("conditions"),
			UVIndex:         r.reqFloat("uv_index"),
			Forecast:        r.boolean("forecast_flag"),
			DataSource:      r.str("data_source"),
		}
		if r.err == nil {
			switch {
			case w.TempHighC < w.TempAvgC || w.TempAvgC < w.TempLowC:
				r.fail(dataset.RangeViolation, "temp_avg_c",
					fmt.Sprintf("temperatures must satisfy high >= avg >= low (got %v/%v/%v)", w.TempHighC, w.TempAvgC, w.TempLowC))
			case w.RainfallMM < 0:
				r.fail(dataset.RangeViolation, "rainfall_mm", fmt.Sprintf("rainfall %v is negative", w.RainfallMM))
			case w.HumidityPercent < 0 || w.HumidityPercent > 100:
				r.fail(dataset.RangeViolation, "humidity_percent", fmt.Sprintf("humidity %v outside [0, 100]", w.HumidityPercent))
			case w.UVIndex < 0 || w.UVIndex > 15:
				r.fail(dataset.RangeViolation, "uv_index", fmt.Sprintf("uv index %v outside [0, 15]", w.UVIndex))
			}
		}
		if r.err == nil && !destIDs[w.DestinationID] {
			r.fail(dataset.ReferentialIntegrity, "destination_id", fmt.Sprintf("unknown destination id %d", w.DestinationID))
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, w)
	}
	return out, nil
}
