// Package main implements the suggestion refresh worker.
// The worker recomputes the cached daily suggestions from the backlog on a
// cron schedule so that the API serves them without scoring on every request.
//
// Features:
//   - Cron driven refresh (REFRESH_SPEC, default "@every 1m")
//   - Prometheus metrics exposed on METRICS_ADDR (default :8080/metrics)
//   - Backlog size gauge updated every 5 seconds
//   - Graceful shutdown waiting for a running refresh
//
// Usage:
//
//	go run ./cmd/worker
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guido-cesarano/taskprio/pkg/backlog"
	"github.com/guido-cesarano/taskprio/pkg/config"
	"github.com/guido-cesarano/taskprio/pkg/logger"
	"github.com/guido-cesarano/taskprio/pkg/metrics"
	"github.com/guido-cesarano/taskprio/pkg/suggest"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// main wires the backlog, the suggestion cache and the refresher, then blocks
// until SIGINT/SIGTERM.
func main() {
	cfg := config.Load()
	logger.Configure(cfg.Env, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	store, closeStore, err := backlog.Open(ctx, cfg, rdb)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("driver", cfg.BacklogDriver).Msg("Failed to open backlog")
	}
	defer closeStore()

	selector, err := suggest.NewSelector(&suggest.ParamsNewSelector{
		Backlog: store,
		Limit:   cfg.SuggestionLimit,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to build suggestion selector")
	}

	refresher := backlog.NewRefresher(store, selector, backlog.NewSuggestionCache(rdb, cfg.SuggestionTTL))

	if _, err := refresher.Schedule(cfg.RefreshSpec); err != nil {
		logger.Log.Fatal().Err(err).Str("spec", cfg.RefreshSpec).Msg("Invalid refresh schedule")
	}

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go serveMetrics(metricsServer)

	// Setup graceful shutdown handlers
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Log.Info().Msg("Shutting down worker...")
		cancel()
	}()

	// Warm the cache before the first tick.
	if _, err := refresher.Refresh(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Initial suggestion refresh failed")
	}

	refresher.Start()
	logger.Log.Info().Str("spec", cfg.RefreshSpec).Msg("Worker started. Refreshing suggestions...")

	go collectBacklogMetrics(ctx, store)

	<-ctx.Done()

	refresher.Stop()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Metrics server shutdown failed")
	}

	logger.Log.Info().Msg("Worker stopped")
}

func serveMetrics(srv *http.Server) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv.Handler = mux

	logger.Log.Info().Str("addr", srv.Addr).Msg("Metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Error().Err(err).Msg("Metrics server failed")
	}
}

// collectBacklogMetrics periodically reads the backlog size and updates the gauge.
func collectBacklogMetrics(ctx context.Context, store backlog.Store) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			size, err := store.Len(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Log.Warn().Err(err).Msg("Failed to read backlog size")
				}
				continue
			}

			metrics.BacklogSize.Set(float64(size))
		}
	}
}
