package tasks

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTaskField is returned when one record fails validation.
	ErrInvalidTaskField = errors.New("invalid task field")

	// ErrMalformedBulkPayload is returned when the bulk input is not a JSON array.
	ErrMalformedBulkPayload = errors.New("malformed bulk payload")

	// ErrEmptyBatch is returned when there is nothing to analyze after merging.
	ErrEmptyBatch = errors.New("no tasks provided")
)

// Source tells where a record came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceBulk   Source = "bulk"
)

// FieldError describes the first invalid field of a record.
type FieldError struct {
	Source Source
	Index  int
	Field  string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %s %s", ErrInvalidTaskField, e.Field, e.Reason)
	}

	return fmt.Sprintf(
		"%s: %s task #%d: %s %s",
		ErrInvalidTaskField, e.Source, e.Index+1, e.Field, e.Reason,
	)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidTaskField
}

// BulkError reports an unparseable bulk payload. The manual tasks validated
// before the bulk input was read are carried in Retained so that callers can
// hand them back instead of dropping them.
type BulkError struct {
	Retained []Task
	Err      error
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedBulkPayload, e.Err)
}

func (e *BulkError) Unwrap() []error {
	return []error{ErrMalformedBulkPayload, e.Err}
}
