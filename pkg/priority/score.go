package priority

import (
	"math"
	"time"

	"github.com/guido-cesarano/taskprio/pkg/tasks"
)

// Bucket is the coarse label derived from a priority score.
type Bucket string

const (
	BucketHigh   Bucket = "high"
	BucketMedium Bucket = "medium"
	BucketLow    Bucket = "low"
)

// Bucket thresholds, inclusive lower bounds.
const (
	HighThreshold   = 70
	MediumThreshold = 40
)

// Label returns the capitalized bucket name, as shown to users.
func (b Bucket) Label() string {
	switch b {
	case BucketHigh:
		return "High"
	case BucketMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// BucketFor maps a score to its bucket.
func BucketFor(score int) Bucket {
	switch {
	case score >= HighThreshold:
		return BucketHigh
	case score >= MediumThreshold:
		return BucketMedium
	default:
		return BucketLow
	}
}

// Score combines factors with w into an integer in [0,100].
func Score(f Factors, w Weights) int {
	raw := 100 * (w.Urgency*f.Urgency +
		w.Importance*f.Importance +
		w.Effort*f.Effort +
		w.Dependency*f.Dependency)

	// snap float noise so that exact halves such as 84.5 round up
	raw = math.Round(raw*1e6) / 1e6

	return int(math.Max(0, math.Min(100, math.Round(raw))))
}

// ScoredTask is a task annotated with its priority.
type ScoredTask struct {
	tasks.Task

	PriorityScore  int    `json:"priority_score"`
	PriorityBucket Bucket `json:"priority_bucket"`
	Explanation    string `json:"explanation,omitempty"`
}

// ScoreTask scores a single task under strategy at now.
func ScoreTask(task tasks.Task, strategy Strategy, now time.Time) ScoredTask {
	score := Score(Extract(task, now), strategy.Weights)

	return ScoredTask{
		Task:           task,
		PriorityScore:  score,
		PriorityBucket: BucketFor(score),
	}
}
