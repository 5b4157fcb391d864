package priority

import "sort"

// Rank returns the scored tasks ordered by descending score. Ties go to the
// earlier due date, then fewer estimated hours, then the smaller title.
// The input slice is left untouched.
func Rank(scored []ScoredTask) []ScoredTask {
	result := make([]ScoredTask, len(scored))
	copy(result, scored)

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]

		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if a.DueDate != b.DueDate {
			return a.DueDate.Before(b.DueDate)
		}
		if a.EstimatedHours != b.EstimatedHours {
			return a.EstimatedHours < b.EstimatedHours
		}

		return a.Title < b.Title
	})

	return result
}
