// Package metrics declares the Prometheus collectors shared by the server and
// the worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Analyses counts analysis requests.
	// Labels:
	//   - strategy: requested strategy identifier (or "invalid")
	//   - status: "ok" or the error code returned
	Analyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskprio_analyses_total",
		Help: "The total number of analysis requests",
	}, []string{"strategy", "status"})

	// AnalysisDuration tracks validation + scoring latency in seconds.
	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskprio_analysis_duration_seconds",
		Help:    "Duration of task analysis",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	// PriorityScores records the distribution of computed scores.
	PriorityScores = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskprio_priority_score",
		Help:    "Distribution of priority scores",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	}, []string{"strategy"})

	// Buckets counts scored tasks per priority bucket.
	Buckets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskprio_bucket_total",
		Help: "Scored tasks by priority bucket",
	}, []string{"strategy", "bucket"})

	// BacklogSize is the number of tasks in the persisted backlog,
	// updated periodically by the worker.
	BacklogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taskprio_backlog_size",
		Help: "Number of tasks in the backlog",
	})

	// Refreshes counts suggestion cache refreshes by status ("success", "failed").
	Refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskprio_suggestion_refresh_total",
		Help: "Suggestion cache refreshes",
	}, []string{"status"})

	// SuggestionCache counts suggest requests served from cache or computed.
	SuggestionCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskprio_suggestion_cache_total",
		Help: "Suggestion lookups by cache outcome",
	}, []string{"outcome"})
)
