package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/guido-cesarano/taskprio/pkg/backlog"
	"github.com/guido-cesarano/taskprio/pkg/logger"
	"github.com/guido-cesarano/taskprio/pkg/priority"
	"github.com/guido-cesarano/taskprio/pkg/tasks"
)

const (
	codeInvalidTaskField = "invalid_task_field"
	codeMalformedBulk    = "malformed_bulk_payload"
	codeEmptyBatch       = "empty_batch"
	codeUnknownStrategy  = "unknown_strategy"
	codeRateLimited      = "rate_limited"
	codeNotFound         = "not_found"
	codeInvalidRequest   = "invalid_request"
	codeInternal         = "internal_error"
)

type errorResponse struct {
	Error          string       `json:"error"`
	Code           string       `json:"code"`
	Field          string       `json:"field,omitempty"`
	RetainedManual []tasks.Task `json:"retained_manual,omitempty"`
}

// mapError translates an error into an HTTP status and a stable error code.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, tasks.ErrInvalidTaskField):
		return http.StatusBadRequest, codeInvalidTaskField
	case errors.Is(err, tasks.ErrMalformedBulkPayload):
		return http.StatusBadRequest, codeMalformedBulk
	case errors.Is(err, tasks.ErrEmptyBatch):
		return http.StatusBadRequest, codeEmptyBatch
	case errors.Is(err, priority.ErrUnknownStrategy):
		return http.StatusBadRequest, codeUnknownStrategy
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest, codeInvalidRequest
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, codeRateLimited
	case errors.Is(err, backlog.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := mapError(err)

	resp := errorResponse{
		Error: err.Error(),
		Code:  code,
	}

	var fieldErr *tasks.FieldError
	if errors.As(err, &fieldErr) {
		resp.Field = fieldErr.Field
	}

	var bulkErr *tasks.BulkError
	if errors.As(err, &bulkErr) {
		resp.RetainedManual = bulkErr.Retained
	}

	if status == http.StatusInternalServerError {
		logger.Log.Error().Err(err).Msg("Request failed")
		resp.Error = "internal server error"
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to encode response")
	}
}
