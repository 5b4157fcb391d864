// Package main runs an in-memory Redis for local development and seeds it
// with a demo backlog so that /api/tasks/suggest/ has something to rank.
//
// Usage:
//
//	go run ./cmd/redis_server -addr 127.0.0.1:6379
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/guido-cesarano/taskprio/pkg/backlog"
	"github.com/guido-cesarano/taskprio/pkg/logger"
	"github.com/guido-cesarano/taskprio/pkg/tasks"
	"github.com/redis/go-redis/v9"
)

// demoBacklog returns the sample tasks, with due dates relative to today.
func demoBacklog(today tasks.Date) []tasks.Task {
	return []tasks.Task{
		{
			Title:          "Complete urgent project proposal",
			DueDate:        today.AddDays(1),
			EstimatedHours: 4,
			Importance:     8,
			Dependencies:   []int{},
		},
		{
			Title:          "Fix login bug",
			DueDate:        today.AddDays(2),
			EstimatedHours: 2,
			Importance:     7,
			Dependencies:   []int{1, 3},
		},
		{
			Title:          "Update documentation",
			DueDate:        today.AddDays(6),
			EstimatedHours: 1,
			Importance:     4,
			Dependencies:   []int{},
		},
	}
}

func seedBacklog(ctx context.Context, store backlog.Store, backlogTasks []tasks.Task) error {
	for _, task := range backlogTasks {
		if _, err := store.Add(ctx, task); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	addr := flag.String("addr", "127.0.0.1:6379", "listen address")
	seed := flag.Bool("seed", true, "seed the demo backlog")
	flag.Parse()

	s := miniredis.NewMiniRedis()
	if err := s.StartAddr(*addr); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to start miniredis")
	}
	defer s.Close()

	logger.Log.Info().Str("addr", s.Addr()).Msg("MiniRedis server started")

	if *seed {
		rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
		defer rdb.Close()

		demo := demoBacklog(tasks.DateOf(time.Now()))
		if err := seedBacklog(context.Background(), backlog.NewRedisStore(rdb), demo); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to seed backlog")
		}

		logger.Log.Info().Int("tasks", len(demo)).Msg("Demo backlog seeded")
	}

	// Wait for interrupt signal to gracefully shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Log.Info().Msg("Shutting down MiniRedis...")
}
