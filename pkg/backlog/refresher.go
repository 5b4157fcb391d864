package backlog

import (
	"context"
	"fmt"
	"time"

	"github.com/guido-cesarano/taskprio/pkg/logger"
	"github.com/guido-cesarano/taskprio/pkg/metrics"
	"github.com/guido-cesarano/taskprio/pkg/suggest"
	"github.com/robfig/cron/v3"
)

// Refresher recomputes the cached suggestions on a cron schedule and keeps
// the backlog size gauge current.
type Refresher struct {
	store    Store
	selector *suggest.Selector
	cache    *SuggestionCache
	cron     *cron.Cron
	now      func() time.Time
}

func NewRefresher(store Store, selector *suggest.Selector, cache *SuggestionCache) *Refresher {
	return &Refresher{
		store:    store,
		selector: selector,
		cache:    cache,
		cron:     cron.New(cron.WithSeconds()),
		now:      time.Now,
	}
}

// Refresh computes suggestions from the current backlog and caches them.
func (r *Refresher) Refresh(ctx context.Context) (*CachedSuggestions, error) {
	now := r.now()

	suggestions, err := r.selector.Select(ctx, now)
	if err != nil {
		metrics.Refreshes.WithLabelValues("failed").Inc()
		return nil, err
	}

	cached := CachedSuggestions{
		Suggestions: suggestions,
		ComputedAt:  now.UTC(),
	}

	if err := r.cache.Set(ctx, cached); err != nil {
		metrics.Refreshes.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("caching suggestions: %w", err)
	}

	if size, err := r.store.Len(ctx); err == nil {
		metrics.BacklogSize.Set(float64(size))
	}

	metrics.Refreshes.WithLabelValues("success").Inc()

	return &cached, nil
}

// Schedule registers the periodic refresh. The schedule uses the cron syntax
// with seconds, or descriptors such as "@every 1m".
func (r *Refresher) Schedule(spec string) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cached, err := r.Refresh(ctx)
		if err != nil {
			logger.Log.Error().Err(err).Str("spec", spec).Msg("Failed to refresh suggestions")
			return
		}

		logger.Log.Info().
			Int("suggestions", len(cached.Suggestions)).
			Str("spec", spec).
			Msg("Suggestions refreshed")
	})
}

// Start runs the cron scheduler in a background goroutine.
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}
