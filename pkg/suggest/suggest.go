// Package suggest picks the most actionable tasks out of a persisted backlog.
package suggest

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	goerrors "github.com/TudorHulban/go-errors"
	"github.com/guido-cesarano/taskprio/pkg/priority"
	"github.com/guido-cesarano/taskprio/pkg/tasks"
)

// DefaultLimit is the number of suggestions returned when none is configured.
const DefaultLimit = 5

// Snapshotter supplies a read-only copy of the backlog.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]tasks.Task, error)
}

// Suggestion is one recommended backlog task.
type Suggestion struct {
	Task           string  `json:"task"`
	Priority       string  `json:"priority"`
	Reason         string  `json:"reason"`
	EstimatedHours float64 `json:"estimated_hours"`
}

// Selector ranks a backlog snapshot with the default strategy.
type Selector struct {
	backlog Snapshotter
	limit   int
}

type ParamsNewSelector struct {
	Backlog Snapshotter
	Limit   int
}

func (p *ParamsNewSelector) IsValid() error {
	if p.Backlog == nil {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsNewSelector",
			Issue: goerrors.ErrNilInput{
				InputName: "Backlog",
			},
		}
	}

	if p.Limit < 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsNewSelector",
			Issue: goerrors.ErrNegativeInput{
				InputName: "Limit",
			},
		}
	}

	return nil
}

// NewSelector builds a Selector. A zero Limit means DefaultLimit.
func NewSelector(params *ParamsNewSelector) (*Selector, error) {
	if errValidation := params.IsValid(); errValidation != nil {
		return nil,
			errValidation
	}

	limit := params.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	return &Selector{
		backlog: params.Backlog,
		limit:   limit,
	}, nil
}

// Select returns the top suggestions of the current backlog at now.
// An empty backlog is not an error: the result is simply empty.
func (s *Selector) Select(ctx context.Context, now time.Time) ([]Suggestion, error) {
	backlog, err := s.backlog.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading backlog snapshot: %w", err)
	}

	return Top(backlog, s.limit, now), nil
}

// Top scores backlog under the default strategy and converts the first limit
// entries into suggestions.
func Top(backlog []tasks.Task, limit int, now time.Time) []Suggestion {
	result := make([]Suggestion, 0, min(limit, len(backlog)))
	if len(backlog) == 0 || limit <= 0 {
		return result
	}

	strategy, err := priority.Lookup(priority.DefaultStrategy)
	if err != nil {
		panic(err) // the default strategy is always registered
	}

	ranked := priority.ScoreBatch(backlog, strategy, now)

	for _, scored := range ranked[:min(limit, len(ranked))] {
		result = append(result, Suggestion{
			Task:           scored.Title,
			Priority:       scored.PriorityBucket.Label(),
			Reason:         Reason(scored.Explanation),
			EstimatedHours: scored.EstimatedHours,
		})
	}

	return result
}

// Reason trims an explanation sentence down to its clauses:
//
//	"This task has high priority because it's due TODAY, high importance."
//	// "Due TODAY, high importance"
func Reason(explanation string) string {
	reason := strings.TrimSuffix(strings.TrimSpace(explanation), ".")

	if _, after, found := strings.Cut(reason, " because "); found {
		reason = strings.TrimPrefix(after, "it's ")
	}

	first, size := utf8.DecodeRuneInString(reason)
	if size == 0 {
		return reason
	}

	return string(unicode.ToUpper(first)) + reason[size:]
}
