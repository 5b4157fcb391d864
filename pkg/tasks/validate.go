package tasks

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
)

// Record is an unvalidated task as typed by a user. All fields are text.
type Record struct {
	Title          string
	DueDate        string
	EstimatedHours string
	Importance     string
	Dependencies   []string // raw tokens, one identifier each
}

// FormRecord is the single-task form: dependencies arrive as comma separated text.
type FormRecord struct {
	Title          string `json:"title"`
	DueDate        string `json:"due_date"`
	EstimatedHours string `json:"estimated_hours"`
	Importance     string `json:"importance"`
	Dependencies   string `json:"dependencies"`
}

// Record converts the form fields into a Record.
func (f FormRecord) Record() Record {
	return Record{
		Title:          f.Title,
		DueDate:        f.DueDate,
		EstimatedHours: f.EstimatedHours,
		Importance:     f.Importance,
		Dependencies:   strings.Split(f.Dependencies, ","),
	}
}

// ParseDependencies splits comma separated identifiers. Tokens that are not
// integers or are not positive are dropped without error.
//
//	ParseDependencies("1, abc, -3, 4") // [1 4]
func ParseDependencies(text string) []int {
	return parseDependencyTokens(strings.Split(text, ","))
}

func parseDependencyTokens(tokens []string) []int {
	result := make([]int, 0, len(tokens))

	for _, token := range tokens {
		id, err := parseDecimal(token)
		if err != nil || id <= 0 || id > math.MaxInt32 {
			continue
		}

		result = append(result, int(id))
	}

	return result
}

// parseDecimal reads a base 10 integer. Leading zeros are allowed and never
// switch the base: "010" is 10.
func parseDecimal(text string) (int64, error) {
	return strconv.ParseInt(govalidator.Trim(text, ""), 10, 64)
}

// Validate checks the record and builds a Task from it.
// The returned error is a *FieldError naming the first offending field.
func (r Record) Validate() (Task, error) {
	title := govalidator.Trim(r.Title, "")
	if govalidator.IsNull(title) {
		return Task{}, fieldError("title", r.Title, "is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return Task{}, fieldError("title", r.Title, "must be at most 200 characters")
	}

	dueDate, err := ParseDate(govalidator.Trim(r.DueDate, ""))
	if err != nil {
		return Task{}, fieldError("due_date", r.DueDate, "must be a date formatted as YYYY-MM-DD")
	}

	hours, err := govalidator.ToFloat(govalidator.Trim(r.EstimatedHours, ""))
	if err != nil || math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return Task{}, fieldError("estimated_hours", r.EstimatedHours, "must be a number greater than 0")
	}

	importance, err := parseDecimal(r.Importance)
	if err != nil || !govalidator.InRangeInt(importance, ImportanceMin, ImportanceMax) {
		return Task{}, fieldError("importance", r.Importance, "must be an integer between 1 and 10")
	}

	return Task{
		Title:          title,
		DueDate:        dueDate,
		EstimatedHours: hours,
		Importance:     int(importance),
		Dependencies:   parseDependencyTokens(r.Dependencies),
	}, nil
}

func fieldError(field, value, reason string) *FieldError {
	return &FieldError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

type bulkRecord struct {
	Title          string            `json:"title"`
	DueDate        string            `json:"due_date"`
	EstimatedHours json.RawMessage   `json:"estimated_hours"`
	Importance     json.RawMessage   `json:"importance"`
	Dependencies   []json.RawMessage `json:"dependencies"`
}

// numberText returns the text of a JSON number, or the content of a JSON
// string so that quoted numbers get the same checks as typed ones. Missing
// and null values yield "". Any other JSON type is a *FieldError for field.
func numberText(field string, raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}

	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return "", fieldError(field, string(trimmed), "has the wrong type")
	}

	switch v := value.(type) {
	case float64:
		return string(trimmed), nil
	case string:
		return v, nil
	default:
		return "", fieldError(field, string(trimmed), "has the wrong type")
	}
}

func (b bulkRecord) record() (Record, error) {
	hours, err := numberText("estimated_hours", b.EstimatedHours)
	if err != nil {
		return Record{}, err
	}

	importance, err := numberText("importance", b.Importance)
	if err != nil {
		return Record{}, err
	}

	tokens := make([]string, 0, len(b.Dependencies))

	for _, raw := range b.Dependencies {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			continue
		}

		tokens = append(tokens, n.String())
	}

	return Record{
		Title:          b.Title,
		DueDate:        b.DueDate,
		EstimatedHours: hours,
		Importance:     importance,
		Dependencies:   tokens,
	}, nil
}

// DecodeBulk parses a bulk JSON array of task objects into Records.
// Blank input yields no records. Anything that is not a JSON array fails with
// ErrMalformedBulkPayload; an element of the wrong shape fails with a
// *FieldError for that element.
func DecodeBulk(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] != '[' {
		return nil, &BulkError{Err: errors.New("bulk input must be a JSON array")}
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, &BulkError{Err: err}
	}

	records := make([]Record, 0, len(elements))

	for i, element := range elements {
		record, err := DecodeRecord(element)
		if err != nil {
			return nil, annotate(err, SourceBulk, i)
		}

		records = append(records, record)
	}

	return records, nil
}

// DecodeRecord parses one JSON task object into a Record. A value that is not
// an object, or a field of the wrong JSON type, yields a *FieldError.
func DecodeRecord(data []byte) (Record, error) {
	var b bulkRecord
	if err := json.Unmarshal(data, &b); err != nil {
		fe := fieldError("record", "", "must be a JSON object")

		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			fe.Field = typeErr.Field
			fe.Reason = "has the wrong type"
		}

		return Record{}, fe
	}

	return b.record()
}

// Submission is what one analysis request carries: manual form entries and an
// optional bulk JSON array.
type Submission struct {
	Manual []FormRecord
	Bulk   []byte
}

// Collect validates a submission into a batch. Manual entries come first, in
// order, followed by the bulk entries. Either every record is admitted or the
// call fails.
func Collect(sub Submission) ([]Task, error) {
	batch := make([]Task, 0, len(sub.Manual))

	for i, form := range sub.Manual {
		task, err := form.Record().Validate()
		if err != nil {
			return nil, annotate(err, SourceManual, i)
		}

		batch = append(batch, task)
	}

	records, err := DecodeBulk(sub.Bulk)
	if err != nil {
		var bulkErr *BulkError
		if errors.As(err, &bulkErr) {
			bulkErr.Retained = batch
		}

		return nil, err
	}

	for i, record := range records {
		task, err := record.Validate()
		if err != nil {
			return nil, annotate(err, SourceBulk, i)
		}

		batch = append(batch, task)
	}

	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	return batch, nil
}

func annotate(err error, source Source, index int) error {
	var fe *FieldError
	if errors.As(err, &fe) {
		fe.Source = source
		fe.Index = index
	}

	return err
}
