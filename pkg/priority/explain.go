package priority

import (
	"fmt"
	"strings"
	"time"

	"github.com/guido-cesarano/taskprio/pkg/tasks"
)

const noClauses = "nothing about it is pressing"

// Clauses lists the reasons behind a task's priority, at most one per group,
// in the order due date, importance, effort, dependencies.
func Clauses(task tasks.Task, now time.Time) []string {
	var clauses []string

	switch days := DaysUntilDue(task.DueDate, now); {
	case days < 0:
		clauses = append(clauses, "OVERDUE - needs immediate attention")
	case days == 0:
		clauses = append(clauses, "due TODAY")
	case days <= 1:
		clauses = append(clauses, "due tomorrow")
	case days <= 3:
		clauses = append(clauses, "due in 3 days")
	case days <= 7:
		clauses = append(clauses, "due this week")
	}

	switch {
	case task.Importance >= 9:
		clauses = append(clauses, "very high importance")
	case task.Importance >= 7:
		clauses = append(clauses, "high importance")
	}

	switch {
	case task.EstimatedHours <= 1:
		clauses = append(clauses, "quick win (≤1 hour)")
	case task.EstimatedHours <= 2:
		clauses = append(clauses, "low effort (≤2 hours)")
	case task.EstimatedHours >= 8:
		clauses = append(clauses, "high effort task")
	}

	if count := len(task.Dependencies); count > 0 {
		clauses = append(clauses, fmt.Sprintf("blocks %d other task(s)", count))
	}

	return clauses
}

// Explain renders the one-sentence justification of bucket for task.
func Explain(task tasks.Task, bucket Bucket, now time.Time) string {
	return sentence(bucket, Clauses(task, now))
}

func sentence(bucket Bucket, clauses []string) string {
	if len(clauses) == 0 {
		return fmt.Sprintf("This task has %s priority because %s.", bucket, noClauses)
	}

	return fmt.Sprintf(
		"This task has %s priority because it's %s.",
		bucket, strings.Join(clauses, ", "),
	)
}
