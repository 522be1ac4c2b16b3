package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/opsforge/warden/internal/healthcheck"
	"github.com/opsforge/warden/internal/metrics"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Start launches health and metrics HTTP servers as configured. A port of
// zero disables the corresponding server; equal ports share one listener.
func Start(ctx context.Context, logger zerolog.Logger, heartbeatInterval time.Duration, tracker *healthcheck.Tracker, collector *metrics.Metrics, healthPort, metricsPort int) {
	if healthPort == 0 && metricsPort == 0 {
		return
	}

	if healthPort > 0 && metricsPort > 0 && healthPort == metricsPort {
		mux := http.NewServeMux()
		registerHealthRoutes(mux, tracker, heartbeatInterval)
		registerMetricsRoute(mux, collector)
		serve(ctx, logger, mux, healthPort, "health/metrics")
		return
	}

	if healthPort > 0 {
		mux := http.NewServeMux()
		registerHealthRoutes(mux, tracker, heartbeatInterval)
		serve(ctx, logger, mux, healthPort, "health")
	}

	if metricsPort > 0 {
		mux := http.NewServeMux()
		registerMetricsRoute(mux, collector)
		serve(ctx, logger, mux, metricsPort, "metrics")
	}
}

func registerHealthRoutes(mux *http.ServeMux, tracker *healthcheck.Tracker, heartbeatInterval time.Duration) {
	mux.HandleFunc("/healthz", healthcheck.HealthHandler(tracker, heartbeatInterval))
	mux.HandleFunc("/readyz", healthcheck.ReadyHandler(tracker))
}

func registerMetricsRoute(mux *http.ServeMux, collector *metrics.Metrics) {
	if collector == nil {
		return
	}
	mux.Handle("/metrics", collector.Handler())
}

func serve(ctx context.Context, logger zerolog.Logger, handler http.Handler, port int, label string) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("server", label).Int("port", port).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("server", label).Int("port", port).Msg("http server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("server", label).Int("port", port).Msg("http server shutdown failed")
		}
	}()
}
