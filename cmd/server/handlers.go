package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/guido-cesarano/taskprio/pkg/backlog"
	"github.com/guido-cesarano/taskprio/pkg/logger"
	"github.com/guido-cesarano/taskprio/pkg/metrics"
	"github.com/guido-cesarano/taskprio/pkg/priority"
	"github.com/guido-cesarano/taskprio/pkg/ratelimit"
	"github.com/guido-cesarano/taskprio/pkg/suggest"
	"github.com/guido-cesarano/taskprio/pkg/tasks"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

var errRateLimited = errors.New("rate limit exceeded, retry shortly")

// api holds the collaborators of the HTTP handlers.
type api struct {
	store    backlog.Store
	selector *suggest.Selector
	cache    *backlog.SuggestionCache
	limiter  *ratelimit.Limiter
	now      func() time.Time
}

// setupRouter configures the HTTP handlers and returns the handler chain:
// CORS -> request logging -> mux.
func setupRouter(a *api, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/tasks/{$}", a.handleInfo)
	mux.HandleFunc("POST /api/tasks/analyze/{$}", a.handleAnalyze)
	mux.HandleFunc("GET /api/tasks/suggest/{$}", a.handleSuggest)

	mux.HandleFunc("GET /api/tasks/backlog/{$}", a.handleListBacklog)
	mux.HandleFunc("POST /api/tasks/backlog/{$}", a.handleAddBacklog)
	mux.HandleFunc("DELETE /api/tasks/backlog/{id}", a.handleRemoveBacklog)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
	})

	return c.Handler(requestLogger(mux))
}

// handleInfo lists the endpoints and the available strategies.
func (a *api) handleInfo(w http.ResponseWriter, r *http.Request) {
	strategies := priority.Strategies()

	ids := make([]priority.StrategyID, len(strategies))
	for i, s := range strategies {
		ids[i] = s.ID
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Smart Task Analyzer API",
		"endpoints": map[string]string{
			"POST /api/tasks/analyze/":       "Analyze and prioritize tasks",
			"GET /api/tasks/suggest/":        "Get task suggestions",
			"GET /api/tasks/backlog/":        "List the backlog",
			"POST /api/tasks/backlog/":       "Add a task to the backlog",
			"DELETE /api/tasks/backlog/{id}": "Remove a task from the backlog",
		},
		"strategies": ids,
	})
}

type analyzeRequest struct {
	Strategy priority.StrategyID `json:"strategy"`
	Manual   []tasks.FormRecord  `json:"manual"`

	// Tasks is the bulk payload: a JSON array, or a string holding the raw
	// text of one.
	Tasks json.RawMessage `json:"tasks"`
}

type analyzeResponse struct {
	Strategy   priority.StrategyID   `json:"strategy"`
	Tasks      []priority.ScoredTask `json:"tasks"`
	TotalTasks int                   `json:"total_tasks"`
}

func (a *api) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if a.limiter != nil {
		allowed, err := a.limiter.Allow(r.Context(), clientIP(r))
		if err != nil {
			// fail open: a Redis outage must not block analysis
			logger.Log.Error().Err(err).Msg("Rate limit check failed")
		} else if !allowed {
			writeError(w, errRateLimited)
			return
		}
	}

	var req analyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.Strategy == "" {
		req.Strategy = priority.DefaultStrategy
	}

	strategyLabel := string(req.Strategy)
	if _, err := priority.Lookup(req.Strategy); err != nil {
		strategyLabel = "invalid"
	}

	start := time.Now()

	result, err := a.analyze(req)
	if err != nil {
		_, code := mapError(err)
		metrics.Analyses.WithLabelValues(strategyLabel, code).Inc()
		writeError(w, err)
		return
	}

	metrics.AnalysisDuration.WithLabelValues(strategyLabel).Observe(time.Since(start).Seconds())
	metrics.Analyses.WithLabelValues(strategyLabel, "ok").Inc()
	for _, scored := range result.Tasks {
		metrics.PriorityScores.WithLabelValues(strategyLabel).Observe(float64(scored.PriorityScore))
		metrics.Buckets.WithLabelValues(strategyLabel, string(scored.PriorityBucket)).Inc()
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Strategy:   result.Strategy,
		Tasks:      result.Tasks,
		TotalTasks: len(result.Tasks),
	})
}

func (a *api) analyze(req analyzeRequest) (*priority.Result, error) {
	bulk, err := bulkText(req.Tasks)
	if err != nil {
		return nil, err
	}

	batch, err := tasks.Collect(tasks.Submission{
		Manual: req.Manual,
		Bulk:   bulk,
	})
	if err != nil {
		return nil, err
	}

	return priority.Analyze(batch, req.Strategy, a.now())
}

// bulkText unwraps a bulk payload sent as a JSON string. A JSON null means no
// bulk input.
func bulkText(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)

	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return nil, nil

	case trimmed[0] == '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, &tasks.BulkError{Err: err}
		}

		return []byte(text), nil

	default:
		return trimmed, nil
	}
}

type suggestResponse struct {
	Suggestions []suggest.Suggestion `json:"suggestions"`
	Date        string               `json:"date"`
}

func (a *api) handleSuggest(w http.ResponseWriter, r *http.Request) {
	now := a.now()

	cached, err := a.cache.Get(r.Context())
	if err == nil && !sameDay(cached.ComputedAt, now) {
		// reasons such as "due tomorrow" are relative to the day they were computed on
		err = backlog.ErrCacheMiss
	}
	if err == nil {
		metrics.SuggestionCache.WithLabelValues("hit").Inc()
		writeJSON(w, http.StatusOK, suggestResponse{
			Suggestions: cached.Suggestions,
			Date:        tasks.DateOf(now).String(),
		})
		return
	}

	if !errors.Is(err, backlog.ErrCacheMiss) {
		logger.Log.Warn().Err(err).Msg("Suggestion cache unavailable")
	}
	metrics.SuggestionCache.WithLabelValues("miss").Inc()

	suggestions, err := a.selector.Select(r.Context(), now)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := a.cache.Set(r.Context(), backlog.CachedSuggestions{
		Suggestions: suggestions,
		ComputedAt:  now.UTC(),
	}); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to cache suggestions")
	}

	writeJSON(w, http.StatusOK, suggestResponse{
		Suggestions: suggestions,
		Date:        tasks.DateOf(now).String(),
	})
}

func sameDay(computedAt, now time.Time) bool {
	return tasks.DateOf(computedAt.In(now.Location())) == tasks.DateOf(now)
}

func (a *api) handleListBacklog(w http.ResponseWriter, r *http.Request) {
	entries, err := a.store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": entries,
		"total": len(entries),
	})
}

func (a *api) handleAddBacklog(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeBody(w, r, &raw); err != nil {
		writeError(w, err)
		return
	}

	record, err := tasks.DecodeRecord(raw)
	if err != nil {
		writeError(w, err)
		return
	}

	task, err := record.Validate()
	if err != nil {
		writeError(w, err)
		return
	}

	entry, err := a.store.Add(r.Context(), task)
	if err != nil {
		writeError(w, err)
		return
	}

	a.invalidateSuggestions(r)

	logger.Log.Info().Str("id", entry.ID).Str("title", entry.Title).Msg("Backlog task added")
	writeJSON(w, http.StatusCreated, entry)
}

func (a *api) handleRemoveBacklog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := a.store.Remove(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	a.invalidateSuggestions(r)

	logger.Log.Info().Str("id", id).Msg("Backlog task removed")
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) invalidateSuggestions(r *http.Request) {
	if err := a.cache.Invalidate(r.Context()); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to invalidate suggestion cache")
	}
}

var errInvalidBody = errors.New("request body must be a JSON object")

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errInvalidBody, err)
	}

	return nil
}

// clientIP keys rate limiting on the connection peer. Client supplied headers
// such as X-Forwarded-For are ignored.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger tags every request with an ID and logs its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
