package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/neexbeast/places2go/internal/api"
	"github.com/neexbeast/places2go/internal/cache"
	"github.com/neexbeast/places2go/internal/httpfetch"
	"github.com/neexbeast/places2go/internal/loader"
	"github.com/neexbeast/places2go/internal/ratelimit"
	"github.com/neexbeast/places2go/internal/source"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	bearerToken := mustEnv("BEARER_TOKEN")
	port := getEnv("PORT", "8080")
	dataDir := getEnv("DATA_DIR", "data")
	cacheDir := getEnv("CACHE_DIR", ".cache")
	cacheBackend := getEnv("CACHE_BACKEND", "file")
	offline := getEnv("OFFLINE", "false") == "true"

	weatherKey := os.Getenv("OPENWEATHER_API_KEY")
	flightKey := os.Getenv("FLIGHT_API_KEY")
	if !offline && (weatherKey == "" || flightKey == "") {
		return fmt.Errorf("OPENWEATHER_API_KEY and FLIGHT_API_KEY are required unless OFFLINE=true")
	}

	flightTTL := getSeconds("FLIGHT_CACHE_TTL", 3600)
	weatherTTL := getSeconds("WEATHER_CACHE_TTL", 21600)
	costTTL := getSeconds("COST_CACHE_TTL", 2592000)

	rateCapacity := getInt("RATE_CAPACITY", 50)
	rateRefill := getFloat("RATE_REFILL_PER_SEC", float64(rateCapacity)/60.0)

	policy := httpfetch.RetryPolicy{
		MaxAttempts: getInt("FETCH_MAX_ATTEMPTS", 3),
		BaseDelay:   time.Duration(getInt("FETCH_BACKOFF_BASE_MS", 1000)) * time.Millisecond,
		MaxDelay:    time.Duration(getInt("FETCH_BACKOFF_MAX_MS", 30000)) * time.Millisecond,
	}

	// Static datasets and fallback source.
	ld := loader.New(dataDir)

	// Persistent cache: one namespace shared by all fetchers.
	var backend cache.Backend
	switch cacheBackend {
	case "bolt":
		b, err := cache.NewBoltBackend(cacheDir + "/cache.db")
		if err != nil {
			return fmt.Errorf("opening bolt cache: %w", err)
		}
		defer func() { _ = b.Close() }()
		backend = b
	case "file":
		b, err := cache.NewFileBackend(cacheDir)
		if err != nil {
			return fmt.Errorf("opening file cache: %w", err)
		}
		backend = b
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q (want file or bolt)", cacheBackend)
	}
	store := cache.NewPersistentStore(backend, getInt("CACHE_MAX_ENTRIES", 128))

	// One rate limiter and fetch client per provider; limits are
	// provider-specific and never shared.
	flightClient := source.NewFlightClient(flightKey,
		httpfetch.NewClient(ratelimit.New(rateCapacity, rateRefill), policy))
	weatherClient := source.NewWeatherClient(weatherKey,
		httpfetch.NewClient(ratelimit.New(rateCapacity, rateRefill), policy))
	costClient := source.NewCostClient(
		httpfetch.NewClient(ratelimit.New(rateCapacity, rateRefill), policy))

	flights := source.NewFlightFetcher(flightClient, store, ld, source.Config{TTL: flightTTL, Offline: offline})
	weather := source.NewWeatherFetcher(weatherClient, store, ld, source.Config{TTL: weatherTTL, Offline: offline})
	costs := source.NewCostFetcher(costClient, store, ld, source.Config{TTL: costTTL, Offline: offline})

	handlers := api.NewHandlers(ld, flights, weather, costs, log)
	router := api.NewRouter(handlers, bearerToken)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", port, "offline", offline)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable not set", "key", key)
		os.Exit(1)
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getSeconds(key string, fallback int) time.Duration {
	return time.Duration(getInt(key, fallback)) * time.Second
}
