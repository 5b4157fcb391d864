package backlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guido-cesarano/taskprio/pkg/logger"
	"github.com/guido-cesarano/taskprio/pkg/tasks"
	"github.com/redis/go-redis/v9"
)

// Redis keys used by the backlog.
//   - backlog:tasks: hash of entry ID to entry JSON
//   - backlog:order: sorted set of entry IDs scored by insertion time
const (
	keyTasks = "backlog:tasks"
	keyOrder = "backlog:order"
)

// RedisStore keeps the backlog in Redis. Every write touches both keys in a
// single MULTI/EXEC transaction.
type RedisStore struct {
	rdb redis.UniversalClient
	now func() time.Time
}

// NewRedisStore creates a backlog store on top of an existing Redis client.
//
// Example:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := backlog.NewRedisStore(rdb)
func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		now: time.Now,
	}
}

// Add stores a validated task under a fresh UUID.
func (s *RedisStore) Add(ctx context.Context, task tasks.Task) (*Entry, error) {
	entry := Entry{
		ID:      uuid.New().String(),
		AddedAt: s.now().UTC(),
		Task:    normalized(task),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, keyTasks, entry.ID, data)
	pipe.ZAdd(ctx, keyOrder, redis.Z{
		Score:  float64(entry.AddedAt.UnixNano()),
		Member: entry.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("adding backlog entry: %w", err)
	}

	return &entry, nil
}

// Remove deletes an entry. Unknown IDs yield ErrNotFound.
func (s *RedisStore) Remove(ctx context.Context, id string) error {
	pipe := s.rdb.TxPipeline()
	deleted := pipe.HDel(ctx, keyTasks, id)
	pipe.ZRem(ctx, keyOrder, id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("removing backlog entry %s: %w", id, err)
	}

	if deleted.Val() == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns every entry in insertion order.
func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	ids, err := s.rdb.ZRange(ctx, keyOrder, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing backlog order: %w", err)
	}

	entries := make([]Entry, 0, len(ids))
	if len(ids) == 0 {
		return entries, nil
	}

	values, err := s.rdb.HMGet(ctx, keyTasks, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("listing backlog tasks: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// order entry without a task body
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			logger.Log.Warn().Err(err).Str("id", ids[i]).Msg("Skipping malformed backlog entry")
			continue
		}

		entry.Task = normalized(entry.Task)
		entries = append(entries, entry)
	}

	return entries, nil
}

// Snapshot returns a copy of the backlog tasks.
func (s *RedisStore) Snapshot(ctx context.Context) ([]tasks.Task, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	return tasksOf(entries), nil
}

// Len returns the number of backlog entries.
func (s *RedisStore) Len(ctx context.Context) (int64, error) {
	return s.rdb.HLen(ctx, keyTasks).Result()
}
