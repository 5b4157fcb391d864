// Package tasks defines the task records submitted for prioritization and the
// validation rules that turn raw form or bulk JSON input into Tasks.
// Tasks live for a single analysis request and are never mutated after creation.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

// MaxTitleLength bounds the title of a task, in characters.
const MaxTitleLength = 200

// Date is a calendar day without timezone semantics.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}

	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()

	return Date{Year: y, Month: m, Day: d}
}

// StartIn returns midnight of the day in loc.
func (d Date) StartIn(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(d.StartIn(time.UTC).AddDate(0, 0, n))
}

// Before reports whether d is an earlier day than other.
func (d Date) Before(other Date) bool {
	return d.StartIn(time.UTC).Before(other.StartIn(time.UTC))
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

// Task is a validated unit of work waiting to be prioritized.
//
// Dependencies are opaque identifiers: they are counted, never resolved against
// the batch or the backlog, and duplicates are kept.
type Task struct {
	// Title is the trimmed, non-empty task name.
	Title string `json:"title"`

	// DueDate is the day the task is due.
	DueDate Date `json:"due_date"`

	// EstimatedHours is the expected effort, always > 0.
	EstimatedHours float64 `json:"estimated_hours"`

	// Importance ranges from 1 (trivial) to 10 (critical).
	Importance int `json:"importance"`

	// Dependencies holds positive task identifiers.
	Dependencies []int `json:"dependencies"`
}

const (
	ImportanceMin = 1
	ImportanceMax = 10
)
