package backlog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/guido-cesarano/taskprio/pkg/suggest"
	"github.com/redis/go-redis/v9"
)

const keySuggestions = "suggestions:latest"

// ErrCacheMiss is returned when no fresh suggestions are cached.
var ErrCacheMiss = errors.New("suggestions not cached")

// CachedSuggestions is the payload stored by the refresher.
type CachedSuggestions struct {
	Suggestions []suggest.Suggestion `json:"suggestions"`
	ComputedAt  time.Time            `json:"computed_at"`
}

// SuggestionCache stores the latest suggestion list in Redis with a TTL.
type SuggestionCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewSuggestionCache(rdb redis.UniversalClient, ttl time.Duration) *SuggestionCache {
	return &SuggestionCache{
		rdb: rdb,
		ttl: ttl,
	}
}

// Set replaces the cached suggestions.
func (c *SuggestionCache) Set(ctx context.Context, cached CachedSuggestions) error {
	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, keySuggestions, data, c.ttl).Err()
}

// Get returns the cached suggestions or ErrCacheMiss.
func (c *SuggestionCache) Get(ctx context.Context) (*CachedSuggestions, error) {
	raw, err := c.rdb.Get(ctx, keySuggestions).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var cached CachedSuggestions
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, err
	}

	if cached.Suggestions == nil {
		cached.Suggestions = []suggest.Suggestion{}
	}

	return &cached, nil
}

// Invalidate drops the cached suggestions, typically after a backlog write.
func (c *SuggestionCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, keySuggestions).Err()
}
