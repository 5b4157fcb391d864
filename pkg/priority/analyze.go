package priority

import (
	"time"

	"github.com/guido-cesarano/taskprio/pkg/tasks"
)

// Result is the ranked, explained output of one analysis.
type Result struct {
	Strategy StrategyID   `json:"strategy"`
	Tasks    []ScoredTask `json:"tasks"`
}

// Analyze scores every task under the named strategy, ranks the batch and
// attaches an explanation to each entry. Nothing is scored unless the whole
// batch can be: an unknown strategy or an empty batch fails the call.
func Analyze(batch []tasks.Task, id StrategyID, now time.Time) (*Result, error) {
	strategy, err := Lookup(id)
	if err != nil {
		return nil, err
	}

	if len(batch) == 0 {
		return nil, tasks.ErrEmptyBatch
	}

	return &Result{
		Strategy: strategy.ID,
		Tasks:    ScoreBatch(batch, strategy, now),
	}, nil
}

// ScoreBatch scores, ranks and explains batch under strategy.
func ScoreBatch(batch []tasks.Task, strategy Strategy, now time.Time) []ScoredTask {
	scored := make([]ScoredTask, len(batch))
	for i, task := range batch {
		scored[i] = ScoreTask(task, strategy, now)
	}

	ranked := Rank(scored)
	for i := range ranked {
		ranked[i].Explanation = Explain(ranked[i].Task, ranked[i].PriorityBucket, now)
	}

	return ranked
}
