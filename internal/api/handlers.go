package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/neexbeast/places2go/internal/dataset"
)

const dateLayout = "2006-01-02"

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	coord   Coordinator
	flights FlightSource
	weather WeatherSource
	costs   CostSource
	log     *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(coord Coordinator, flights FlightSource, weather WeatherSource, costs CostSource, log *slog.Logger) *Handlers {
	return &Handlers{
		coord:   coord,
		flights: flights,
		weather: weather,
		costs:   costs,
		log:     log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeLoadError maps validation failures to 422 and everything else to 500.
func (h *Handlers) writeLoadError(w http.ResponseWriter, err error) {
	var ve *dataset.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": ve.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

// airports splits the comma-separated airports query parameter.
func airports(r *http.Request) []string {
	raw := r.URL.Query().Get("airports")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

// GetMergedView handles GET /api/v1/destinations.
// Returns the left-joined table, optionally filtered by ?source=.
func (h *Handlers) GetMergedView(w http.ResponseWriter, r *http.Request) {
	rows, err := h.coord.LoadAll(r.URL.Query().Get("source"))
	if err != nil {
		h.log.Error("merged view load failed", "err", err)
		h.writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetAggregates handles GET /api/v1/aggregates.
func (h *Handlers) GetAggregates(w http.ResponseWriter, r *http.Request) {
	stats, err := h.coord.Aggregate(r.URL.Query().Get("source"))
	if err != nil {
		h.log.Error("aggregate failed", "err", err)
		h.writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetDataSources handles GET /api/v1/sources.
func (h *Handlers) GetDataSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.coord.AvailableDataSources()
	if err != nil {
		h.log.Error("listing data sources failed", "err", err)
		h.writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

// Reload handles POST /api/v1/reload.
// Re-reads the static datasets; validation failures keep the old tables.
func (h *Handlers) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.Reload(); err != nil {
		h.log.Error("reload failed", "err", err)
		h.writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// GetFlights handles GET /api/v1/flights.
// Query: origin, airports (comma-separated), departure, return (optional).
func (h *Handlers) GetFlights(w http.ResponseWriter, r *http.Request) {
	origin := strings.ToUpper(r.URL.Query().Get("origin"))
	codes := airports(r)
	if origin == "" || len(codes) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "origin and airports are required"})
		return
	}

	departure, err := time.Parse(dateLayout, r.URL.Query().Get("departure"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "departure must be YYYY-MM-DD"})
		return
	}
	var ret *time.Time
	if v := r.URL.Query().Get("return"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "return must be YYYY-MM-DD"})
			return
		}
		ret = &t
	}

	table, err := h.flights.GetCurrent(r.Context(), origin, codes, departure, ret)
	if err != nil {
		h.log.Error("flight fetch failed", "origin", origin, "err", err)
		h.writeLoadError(w, err)
		return
	}
	if table.Degraded() {
		h.log.Warn("serving degraded flight data", "origin", origin)
	}
	writeJSON(w, http.StatusOK, table)
}

// GetWeather handles GET /api/v1/weather.
// Query: airports (comma-separated), from, to.
func (h *Handlers) GetWeather(w http.ResponseWriter, r *http.Request) {
	codes := airports(r)
	if len(codes) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "airports is required"})
		return
	}

	from, err := time.Parse(dateLayout, r.URL.Query().Get("from"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from must be YYYY-MM-DD"})
		return
	}
	to, err := time.Parse(dateLayout, r.URL.Query().Get("to"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to must be YYYY-MM-DD"})
		return
	}

	table, err := h.weather.GetCurrent(r.Context(), codes, from, to)
	if err != nil {
		h.log.Error("weather fetch failed", "err", err)
		h.writeLoadError(w, err)
		return
	}
	if table.Degraded() {
		h.log.Warn("serving degraded weather data", "airports", codes)
	}
	writeJSON(w, http.StatusOK, table)
}

// GetCosts handles GET /api/v1/costs.
// Query: airports (comma-separated).
func (h *Handlers) GetCosts(w http.ResponseWriter, r *http.Request) {
	codes := airports(r)
	if len(codes) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "airports is required"})
		return
	}

	table, err := h.costs.GetCurrent(r.Context(), codes)
	if err != nil {
		h.log.Error("cost fetch failed", "err", err)
		h.writeLoadError(w, err)
		return
	}
	if table.Degraded() {
		h.log.Warn("serving degraded cost data", "airports", codes)
	}
	writeJSON(w, http.StatusOK, table)
}

// Health handles GET /api/v1/health. The static datasets are the only
// backing store, so health is a cheap liveness answer.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
