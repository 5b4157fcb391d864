// Package priority scores, ranks and explains batches of tasks.
//
// Every function in this package is pure: the result depends only on the
// batch, the strategy and the reference time passed in. Nothing is cached and
// nothing is logged, so calls may run concurrently without coordination.
package priority

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned for a strategy identifier that is not registered.
var ErrUnknownStrategy = errors.New("unknown strategy")

// StrategyID names a weighting policy.
type StrategyID string

const (
	SmartBalance   StrategyID = "smart_balance"
	FastestWins    StrategyID = "fastest_wins"
	HighImpact     StrategyID = "high_impact"
	DeadlineDriven StrategyID = "deadline_driven"
)

// DefaultStrategy applies when a caller does not name one.
const DefaultStrategy = SmartBalance

// Weights distributes one unit of priority over the four factors.
type Weights struct {
	Urgency    float64
	Importance float64
	Effort     float64
	Dependency float64
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Urgency + w.Importance + w.Effort + w.Dependency
}

// Strategy is an immutable registry entry.
type Strategy struct {
	ID      StrategyID
	Name    string
	Weights Weights
}

var registry = []Strategy{
	{SmartBalance, "Smart Balance", Weights{Urgency: 0.40, Importance: 0.30, Effort: 0.20, Dependency: 0.10}},
	{FastestWins, "Fastest Wins", Weights{Urgency: 0.25, Importance: 0.10, Effort: 0.60, Dependency: 0.05}},
	{HighImpact, "High Impact", Weights{Urgency: 0.20, Importance: 0.60, Effort: 0.10, Dependency: 0.10}},
	{DeadlineDriven, "Deadline Driven", Weights{Urgency: 0.70, Importance: 0.15, Effort: 0.10, Dependency: 0.05}},
}

// Lookup returns the registered strategy for id.
func Lookup(id StrategyID) (Strategy, error) {
	for _, s := range registry {
		if s.ID == id {
			return s, nil
		}
	}

	return Strategy{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, string(id))
}

// Strategies lists every registered strategy in registry order.
func Strategies() []Strategy {
	result := make([]Strategy, len(registry))
	copy(result, registry)

	return result
}
