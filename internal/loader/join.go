package loader

import (
	"sort"

	"github.com/neexbeast/places2go/internal/dataset"
)

// LoadAll left-joins all datasets on destination_id into a single table.
// Every destination keeps at least one row even when it has no cost,
// flight, or weather data. The latest cost record per destination is used.
// Weather rows are aligned to flight departure dates when the destination
// has flights; otherwise each weather row becomes its own joined row.
// dataSource filters the dynamic datasets; pass "" for all sources.
func (l *Loader) LoadAll(dataSource string) ([]dataset.JoinedRow, error) {
	destinations, err := l.LoadDestinations()
	if err != nil {
		return nil, err
	}

	costFilters := []CostFilter{CostsMostRecent()}
	var flightFilters []FlightFilter
	var weatherFilters []WeatherFilter
	if dataSource != "" {
		costFilters = append([]CostFilter{CostsBySource(dataSource)}, costFilters...)
		flightFilters = append(flightFilters, FlightsBySource(dataSource))
		weatherFilters = append(weatherFilters, WeatherBySource(dataSource))
	}

	costs, err := l.LoadCosts(costFilters...)
	if err != nil {
		return nil, err
	}
	flights, err := l.LoadFlights(flightFilters...)
	if err != nil {
		return nil, err
	}
	weather, err := l.LoadWeather(weatherFilters...)
	if err != nil {
		return nil, err
	}

	costByDest := make(map[int]dataset.CostRecord, len(costs))
	for _, c := range costs {
		costByDest[c.DestinationID] = c
	}
	flightsByDest := make(map[int][]dataset.FlightPriceRecord)
	for _, f := range flights {
		flightsByDest[f.DestinationID] = append(flightsByDest[f.DestinationID], f)
	}
	weatherByDest := make(map[int][]dataset.WeatherRecord)
	for _, w := range weather {
		weatherByDest[w.DestinationID] = append(weatherByDest[w.DestinationID], w)
	}

	var rows []dataset.JoinedRow
	for _, d := range destinations {
		var cost *dataset.CostRecord
		if c, ok := costByDest[d.ID]; ok {
			c := c
			cost = &c
		}

		destFlights := flightsByDest[d.ID]
		destWeather := weatherByDest[d.ID]

		switch {
		case len(destFlights) == 0 && len(destWeather) == 0:
			rows = append(rows, dataset.JoinedRow{Destination: d, Cost: cost})

		case len(destFlights) == 0:
			for _, w := range destWeather {
				w := w
				rows = append(rows, dataset.JoinedRow{Destination: d, Cost: cost, Weather: &w})
			}

		default:
			for _, f := range destFlights {
				f := f
				row := dataset.JoinedRow{Destination: d, Cost: cost, Flight: &f}
				for _, w := range destWeather {
					if w.Date.Equal(f.DepartureDate) {
						w := w
						row.Weather = &w
						break
					}
				}
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}

// Aggregate computes per-destination summary statistics over the
// optionally source-filtered datasets: latest monthly living cost, flight
// price mean/min/max/count, temperature mean and extremes, total rainfall,
// mean UV index, and total sunshine hours.
func (l *Loader) Aggregate(dataSource string) ([]dataset.DestinationStats, error) {
	destinations, err := l.LoadDestinations()
	if err != nil {
		return nil, err
	}

	costFilters := []CostFilter{CostsMostRecent()}
	var flightFilters []FlightFilter
	var weatherFilters []WeatherFilter
	if dataSource != "" {
		costFilters = append([]CostFilter{CostsBySource(dataSource)}, costFilters...)
		flightFilters = append(flightFilters, FlightsBySource(dataSource))
		weatherFilters = append(weatherFilters, WeatherBySource(dataSource))
	}

	costs, err := l.LoadCosts(costFilters...)
	if err != nil {
		return nil, err
	}
	flights, err := l.LoadFlights(flightFilters...)
	if err != nil {
		return nil, err
	}
	weather, err := l.LoadWeather(weatherFilters...)
	if err != nil {
		return nil, err
	}

	costByDest := make(map[int]dataset.CostRecord, len(costs))
	for _, c := range costs {
		costByDest[c.DestinationID] = c
	}
	flightsByDest := make(map[int][]dataset.FlightPriceRecord)
	for _, f := range flights {
		flightsByDest[f.DestinationID] = append(flightsByDest[f.DestinationID], f)
	}
	weatherByDest := make(map[int][]dataset.WeatherRecord)
	for _, w := range weather {
		weatherByDest[w.DestinationID] = append(weatherByDest[w.DestinationID], w)
	}

	stats := make([]dataset.DestinationStats, 0, len(destinations))
	for _, d := range destinations {
		s := dataset.DestinationStats{
			DestinationID: d.ID,
			Name:          d.Name,
			Country:       d.Country,
		}

		if c, ok := costByDest[d.ID]; ok {
			v := c.MonthlyLivingCost
			s.MonthlyLivingCost = &v
		}

		if fl := flightsByDest[d.ID]; len(fl) > 0 {
			sum, minP, maxP := 0.0, fl[0].Price, fl[0].Price
			for _, f := range fl {
				sum += f.Price
				if f.Price < minP {
					minP = f.Price
				}
				if f.Price > maxP {
					maxP = f.Price
				}
			}
			avg := sum / float64(len(fl))
			s.AvgFlightPrice = &avg
			s.MinFlightPrice = &minP
			s.MaxFlightPrice = &maxP
			s.FlightCount = len(fl)
		}

		if wl := weatherByDest[d.ID]; len(wl) > 0 {
			var avgSum, uvSum, rainfall, sunshine float64
			maxT, minT := wl[0].TempHighC, wl[0].TempLowC
			for _, w := range wl {
				avgSum += w.TempAvgC
				uvSum += w.UVIndex
				rainfall += w.RainfallMM
				sunshine += w.SunshineHours
				if w.TempHighC > maxT {
					maxT = w.TempHighC
				}
				if w.TempLowC < minT {
					minT = w.TempLowC
				}
			}
			avgT := avgSum / float64(len(wl))
			avgUV := uvSum / float64(len(wl))
			s.AvgTempC = &avgT
			s.MaxTempC = &maxT
			s.MinTempC = &minT
			s.TotalRainfallMM = &rainfall
			s.AvgUVIndex = &avgUV
			s.TotalSunshineHours = &sunshine
		}

		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].DestinationID < stats[j].DestinationID })
	return stats, nil
}
