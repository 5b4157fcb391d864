package backlog

import (
	"context"
	"fmt"

	"github.com/guido-cesarano/taskprio/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Open returns the backlog store selected by cfg.BacklogDriver together with
// a function releasing its resources. The Redis driver reuses rdb.
func Open(ctx context.Context, cfg *config.Config, rdb redis.UniversalClient) (Store, func() error, error) {
	switch cfg.BacklogDriver {
	case config.DriverPostgres:
		db, err := Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}

		store := NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}

		return store, db.Close, nil

	case config.DriverRedis, "":
		return NewRedisStore(rdb), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported backlog driver %q", cfg.BacklogDriver)
	}
}
