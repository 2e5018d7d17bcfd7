package api

import (
	"context"
	"time"

	"github.com/neexbeast/places2go/internal/dataset"
)

// Coordinator is the interface satisfied by loader.Loader.
type Coordinator interface {
	LoadAll(dataSource string) ([]dataset.JoinedRow, error)
	Aggregate(dataSource string) ([]dataset.DestinationStats, error)
	AvailableDataSources() (map[string][]string, error)
	Reload() error
}

// FlightSource is the interface satisfied by source.FlightFetcher.
type FlightSource interface {
	GetCurrent(ctx context.Context, origin string, airportCodes []string, departure time.Time, ret *time.Time) (dataset.Table, error)
}

// WeatherSource is the interface satisfied by source.WeatherFetcher.
type WeatherSource interface {
	GetCurrent(ctx context.Context, airportCodes []string, from, to time.Time) (dataset.Table, error)
}

// CostSource is the interface satisfied by source.CostFetcher.
type CostSource interface {
	GetCurrent(ctx context.Context, airportCodes []string) (dataset.Table, error)
}
