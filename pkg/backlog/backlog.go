// Package backlog persists the tasks that feed suggestions.
//
// The backlog is the only shared mutable resource of the system. Stores
// serialize writes through their database (Redis or PostgreSQL); the
// prioritization engine only ever reads a Snapshot and never mutates it.
package backlog

import (
	"context"
	"errors"
	"time"

	"github.com/guido-cesarano/taskprio/pkg/tasks"
)

// ErrNotFound is returned when no backlog entry has the requested ID.
var ErrNotFound = errors.New("backlog entry not found")

// Entry is a backlog task together with its storage metadata.
type Entry struct {
	ID      string    `json:"id"`
	AddedAt time.Time `json:"added_at"`

	tasks.Task
}

// Store is implemented by every backlog backend.
type Store interface {
	Add(ctx context.Context, task tasks.Task) (*Entry, error)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]Entry, error)
	Snapshot(ctx context.Context) ([]tasks.Task, error)
	Len(ctx context.Context) (int64, error)
}

func tasksOf(entries []Entry) []tasks.Task {
	result := make([]tasks.Task, len(entries))
	for i, entry := range entries {
		result[i] = entry.Task
	}

	return result
}

func normalized(task tasks.Task) tasks.Task {
	if task.Dependencies == nil {
		task.Dependencies = []int{}
	}

	return task
}
