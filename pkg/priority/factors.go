package priority

import (
	"math"
	"time"

	"github.com/guido-cesarano/taskprio/pkg/tasks"
)

// Normalization horizons of the factors.
const (
	UrgencyHorizonDays    = 14
	EffortHorizonHours    = 8
	DependencySaturation  = 5
	ImportanceNormalizing = 10
)

// Factors are the four normalized signals of a task, each in [0,1].
type Factors struct {
	Urgency    float64 `json:"urgency"`
	Importance float64 `json:"importance"`
	Effort     float64 `json:"effort"`
	Dependency float64 `json:"dependency"`
}

// DaysUntilDue counts whole days from now to the start of the due day, rounding
// up. The due day is taken in now's location. Overdue tasks yield a negative count.
func DaysUntilDue(due tasks.Date, now time.Time) int {
	remaining := due.StartIn(now.Location()).Sub(now)

	return int(math.Ceil(remaining.Hours() / 24))
}

// Extract derives the factors of task at the reference instant now.
func Extract(task tasks.Task, now time.Time) Factors {
	days := DaysUntilDue(task.DueDate, now)

	return Factors{
		Urgency:    clamp01(1 - float64(days)/UrgencyHorizonDays),
		Importance: clamp01(float64(task.Importance) / ImportanceNormalizing),
		Effort:     clamp01(1 - task.EstimatedHours/EffortHorizonHours),
		Dependency: clamp01(float64(len(task.Dependencies)) / DependencySaturation),
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
