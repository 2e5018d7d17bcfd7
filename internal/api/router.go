package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// NewRouter builds and returns the Chi router with all routes configured.
// The health endpoint is unauthenticated; everything else requires bearer
// auth. Rate limiting is applied globally: 60 requests per minute per IP.
func NewRouter(handlers *Handlers, token string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/api/v1/health", handlers.Health)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))
		r.Get("/api/v1/destinations", handlers.GetMergedView)
		r.Get("/api/v1/aggregates", handlers.GetAggregates)
		r.Get("/api/v1/sources", handlers.GetDataSources)
		r.Post("/api/v1/reload", handlers.Reload)
		r.Get("/api/v1/flights", handlers.GetFlights)
		r.Get("/api/v1/weather", handlers.GetWeather)
		r.Get("/api/v1/costs", handlers.GetCosts)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
