package integration_tests

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/guido-cesarano/taskprio/pkg/backlog"
	"github.com/guido-cesarano/taskprio/pkg/suggest"
	"github.com/guido-cesarano/taskprio/pkg/tasks"
	"github.com/redis/go-redis/v9"
)

// setupIntegrationRedis connects to the local Redis instance.
// Requires docker-compose up -d to be running.
func setupIntegrationRedis(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping integration test: Redis not reachable at %s (%v)", addr, err)
	}

	// Clear backlog keys for clean state
	rdb.Del(context.Background(), "backlog:tasks", "backlog:order", "suggestions:latest")

	return rdb
}

// setupIntegrationPostgres connects to DATABASE_URL and empties the backlog table.
func setupIntegrationPostgres(t *testing.T) *backlog.PostgresStore {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := backlog.Connect(ctx, dsn)
	if err != nil {
		t.Skipf("Skipping integration test: Postgres not reachable (%v)", err)
	}
	t.Cleanup(func() { db.Close() })

	store := backlog.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	if _, err := db.ExecContext(ctx, `TRUNCATE backlog_tasks`); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}

	return store
}

func sampleTasks(today tasks.Date) []tasks.Task {
	return []tasks.Task{
		{Title: "Write tests", DueDate: today.AddDays(5), EstimatedHours: 3, Importance: 5, Dependencies: []int{}},
		{Title: "Ship report", DueDate: today, EstimatedHours: 1, Importance: 9, Dependencies: []int{2}},
		{Title: "Plan sprint", DueDate: today.AddDays(20), EstimatedHours: 2, Importance: 4, Dependencies: []int{}},
	}
}

// exerciseStore runs the same add/list/suggest/remove flow against any backend.
func exerciseStore(t *testing.T, store backlog.Store) {
	ctx := context.Background()
	now := time.Now()

	var ids []string
	for _, task := range sampleTasks(tasks.DateOf(now)) {
		entry, err := store.Add(ctx, task)
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		ids = append(ids, entry.ID)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Title != "Write tests" {
		t.Errorf("Expected insertion order, first entry is %q", entries[0].Title)
	}
	if len(entries[1].Dependencies) != 1 || entries[1].Dependencies[0] != 2 {
		t.Errorf("Expected dependencies [2], got %v", entries[1].Dependencies)
	}

	sel, err := suggest.NewSelector(&suggest.ParamsNewSelector{Backlog: store, Limit: 2})
	if err != nil {
		t.Fatalf("NewSelector failed: %v", err)
	}

	suggestions, err := sel.Select(ctx, now)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].Task != "Ship report" {
		t.Errorf("Expected Ship report first, got %q", suggestions[0].Task)
	}

	if err := store.Remove(ctx, ids[1]); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := store.Remove(ctx, ids[1]); err != backlog.ErrNotFound {
		t.Errorf("Expected ErrNotFound on second remove, got %v", err)
	}

	size, err := store.Len(ctx)
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if size != 2 {
		t.Errorf("Expected 2 entries after remove, got %d", size)
	}
}

func TestIntegrationRedisBacklog(t *testing.T) {
	rdb := setupIntegrationRedis(t)
	exerciseStore(t, backlog.NewRedisStore(rdb))
}

func TestIntegrationPostgresBacklog(t *testing.T) {
	store := setupIntegrationPostgres(t)
	exerciseStore(t, store)

	if err := store.Remove(context.Background(), "not-a-uuid"); err != backlog.ErrNotFound {
		t.Errorf("Expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestIntegrationRefresh(t *testing.T) {
	rdb := setupIntegrationRedis(t)
	ctx := context.Background()

	store := backlog.NewRedisStore(rdb)
	for _, task := range sampleTasks(tasks.DateOf(time.Now())) {
		if _, err := store.Add(ctx, task); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	sel, err := suggest.NewSelector(&suggest.ParamsNewSelector{Backlog: store})
	if err != nil {
		t.Fatalf("NewSelector failed: %v", err)
	}

	cache := backlog.NewSuggestionCache(rdb, time.Minute)
	refresher := backlog.NewRefresher(store, sel, cache)

	if _, err := refresher.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	cached, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("Cache Get failed: %v", err)
	}
	if len(cached.Suggestions) != 3 {
		t.Errorf("Expected 3 cached suggestions, got %d", len(cached.Suggestions))
	}
}
