// Package main implements the task analyzer HTTP API server.
//
// API Endpoints:
//
//	GET    /api/tasks/              - Describes the API and the available strategies
//	POST   /api/tasks/analyze/      - Scores, ranks and explains a batch of tasks
//	GET    /api/tasks/suggest/      - Returns the top backlog tasks for today
//	GET    /api/tasks/backlog/      - Lists the persisted backlog
//	POST   /api/tasks/backlog/      - Adds a task to the backlog
//	DELETE /api/tasks/backlog/{id}  - Removes a task from the backlog
//	GET    /health, GET /metrics
//
// Analyze Request Format:
//
//	{
//	  "strategy": "smart_balance",
//	  "manual": [
//	    {"title": "Ship report", "due_date": "2025-03-10", "estimated_hours": "1", "importance": "9", "dependencies": "1, 2"}
//	  ],
//	  "tasks": [
//	    {"title": "Fix bug", "due_date": "2025-03-12", "estimated_hours": 3, "importance": 7, "dependencies": []}
//	  ]
//	}
//
// Usage:
//
//	go run ./cmd/server
//
// The server listens on HTTP_ADDR (default :8081) and connects to Redis at
// REDIS_ADDR (default 127.0.0.1:6379).
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
	"github.com/guido-cesarano/taskprio/pkg/ratelimit"
	"github.com/guido-cesarano/taskprio/pkg/suggest"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Env, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, caching and rate limiting degraded")
	}

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

	handler := setupRouter(&api{
		store:    store,
		selector: selector,
		cache:    backlog.NewSuggestionCache(rdb, cfg.SuggestionTTL),
		limiter:  ratelimit.New(rdb, cfg.RateLimit, cfg.RateBurst),
		now:      time.Now,
	}, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logger.Log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("backlog", cfg.BacklogDriver).
		Msg("Server listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatal().Err(err).Msg("Server failed")
	}

	logger.Log.Info().Msg("Server stopped")
}
