package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/guido-cesarano/taskprio/pkg/backlog"
	"github.com/guido-cesarano/taskprio/pkg/priority"
	"github.com/guido-cesarano/taskprio/pkg/ratelimit"
	"github.com/guido-cesarano/taskprio/pkg/suggest"
	"github.com/guido-cesarano/taskprio/pkg/tasks"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

type testServer struct {
	redis   *miniredis.Miniredis
	store   *backlog.RedisStore
	cache   *backlog.SuggestionCache
	handler http.Handler
}

func setupTestServer(t *testing.T, limiter func(redis.UniversalClient) *ratelimit.Limiter) *testServer {
	s := miniredis.RunT(t)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := backlog.NewRedisStore(rdb)

	selector, err := suggest.NewSelector(&suggest.ParamsNewSelector{Backlog: store, Limit: 2})
	require.NoError(t, err)

	a := &api{
		store:    store,
		selector: selector,
		cache:    backlog.NewSuggestionCache(rdb, time.Minute),
		now:      func() time.Time { return now },
	}
	if limiter != nil {
		a.limiter = limiter(rdb)
	}

	return &testServer{
		redis:   s,
		store:   store,
		cache:   a.cache,
		handler: setupRouter(a, []string{"*"}),
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())

	return v
}

func TestHealthAndInfo(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = ts.do(t, http.MethodGet, "/api/tasks/", "")
	require.Equal(t, http.StatusOK, w.Code)

	info := decode[struct {
		Strategies []priority.StrategyID `json:"strategies"`
	}](t, w)
	require.Equal(t,
		[]priority.StrategyID{priority.SmartBalance, priority.FastestWins, priority.HighImpact, priority.DeadlineDriven},
		info.Strategies,
	)

	w = ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyze(t *testing.T) {
	ts := setupTestServer(t, nil)

	body := `{
		"manual": [
			{"title": "Ship report", "due_date": "2025-03-10", "estimated_hours": "1", "importance": "9", "dependencies": ""}
		],
		"tasks": [
			{"title": "Refactor", "due_date": "2025-04-30", "estimated_hours": 10, "importance": 2, "dependencies": [1, "x", -2]}
		]
	}`

	w := ts.do(t, http.MethodPost, "/api/tasks/analyze/", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[analyzeResponse](t, w)
	require.Equal(t, priority.SmartBalance, resp.Strategy)
	require.Equal(t, 2, resp.TotalTasks)
	require.Len(t, resp.Tasks, 2)

	first := resp.Tasks[0]
	require.Equal(t, "Ship report", first.Title)
	require.Equal(t, 85, first.PriorityScore)
	require.Equal(t, priority.BucketHigh, first.PriorityBucket)
	require.Equal(t,
		"This task has high priority because it's due TODAY, very high importance, quick win (≤1 hour).",
		first.Explanation,
	)

	second := resp.Tasks[1]
	require.Equal(t, "Refactor", second.Title)
	require.Equal(t, priority.BucketLow, second.PriorityBucket)
	require.Equal(t, []int{1}, second.Dependencies)
}

func TestAnalyzeBulkAsString(t *testing.T) {
	ts := setupTestServer(t, nil)

	body := `{
		"strategy": "deadline_driven",
		"tasks": "[{\"title\": \"Pay rent\", \"due_date\": \"2025-03-09\", \"estimated_hours\": 0.5, \"importance\": 6}]"
	}`

	w := ts.do(t, http.MethodPost, "/api/tasks/analyze/", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[analyzeResponse](t, w)
	require.Equal(t, priority.DeadlineDriven, resp.Strategy)
	require.Len(t, resp.Tasks, 1)
	require.Contains(t, resp.Tasks[0].Explanation, "OVERDUE - needs immediate attention")
}

func TestAnalyzeErrors(t *testing.T) {
	ts := setupTestServer(t, nil)

	const manual = `{"title": "Ship report", "due_date": "2025-03-10", "estimated_hours": "1", "importance": "9"}`

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Invalid JSON body",
			body:           `{"manual": [`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeInvalidRequest,
		},
		{
			name:           "Empty batch",
			body:           `{"strategy": "smart_balance"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeEmptyBatch,
		},
		{
			name:           "Unknown strategy",
			body:           `{"strategy": "coin_flip", "manual": [` + manual + `]}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeUnknownStrategy,
		},
		{
			name:           "Invalid manual field",
			body:           `{"manual": [{"title": "", "due_date": "2025-03-10", "estimated_hours": "1", "importance": "9"}]}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeInvalidTaskField,
		},
		{
			name:           "Invalid bulk field",
			body:           `{"tasks": [{"title": "x", "due_date": "2025-03-10", "estimated_hours": 1, "importance": 11}]}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeInvalidTaskField,
		},
		{
			name:           "Bulk payload is an object",
			body:           `{"tasks": {"title": "x"}}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeMalformedBulk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/tasks/analyze/", tt.body)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			resp := decode[errorResponse](t, w)
			require.Equal(t, tt.expectedCode, resp.Code)
			require.NotEmpty(t, resp.Error)
		})
	}
}

func TestAnalyzeMalformedBulkRetainsManual(t *testing.T) {
	ts := setupTestServer(t, nil)

	body := `{
		"manual": [{"title": "Ship report", "due_date": "2025-03-10", "estimated_hours": "1", "importance": "9"}],
		"tasks": "{not valid json"
	}`

	w := ts.do(t, http.MethodPost, "/api/tasks/analyze/", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[errorResponse](t, w)
	require.Equal(t, codeMalformedBulk, resp.Code)
	require.Len(t, resp.RetainedManual, 1)
	require.Equal(t, "Ship report", resp.RetainedManual[0].Title)
}

func TestAnalyzeRateLimited(t *testing.T) {
	ts := setupTestServer(t, func(rdb redis.UniversalClient) *ratelimit.Limiter {
		return ratelimit.New(rdb, 1, 1)
	})

	body := `{"manual": [{"title": "a", "due_date": "2025-03-10", "estimated_hours": "1", "importance": "5"}]}`

	send := func(forwardedFor string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/tasks/analyze/", strings.NewReader(body))
		req.RemoteAddr = "192.0.2.10:41000"
		if forwardedFor != "" {
			req.Header.Set("X-Forwarded-For", forwardedFor)
		}

		w := httptest.NewRecorder()
		ts.handler.ServeHTTP(w, req)

		return w
	}

	require.Equal(t, http.StatusOK, send("").Code)

	// a forged forwarding header must not open a fresh bucket
	w := send("203.0.113.7")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, codeRateLimited, decode[errorResponse](t, w).Code)

	require.Equal(t, http.StatusTooManyRequests, send("198.51.100.1, 10.0.0.1").Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:41000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	require.Equal(t, "192.0.2.10", clientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	require.Equal(t, "2001:db8::1", clientIP(req))

	req.RemoteAddr = "unix-socket"
	require.Equal(t, "unix-socket", clientIP(req))
}

func TestMethodNotAllowed(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/api/tasks/analyze/", "")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestBacklogAndSuggest(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/api/tasks/suggest/", "")
	require.Equal(t, http.StatusOK, w.Code)

	empty := decode[suggestResponse](t, w)
	require.Empty(t, empty.Suggestions)
	require.Equal(t, "2025-03-10", empty.Date)

	var ids []string
	for _, body := range []string{
		`{"title": "Later", "due_date": "2025-03-30", "estimated_hours": 4, "importance": 5}`,
		`{"title": "Ship report", "due_date": "2025-03-10", "estimated_hours": 1, "importance": 9}`,
		`{"title": "Review PR", "due_date": "2025-03-11", "estimated_hours": 2, "importance": 7, "dependencies": [1]}`,
	} {
		w := ts.do(t, http.MethodPost, "/api/tasks/backlog/", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		entry := decode[backlog.Entry](t, w)
		require.NotEmpty(t, entry.ID)
		ids = append(ids, entry.ID)
	}

	w = ts.do(t, http.MethodGet, "/api/tasks/backlog/", "")
	require.Equal(t, http.StatusOK, w.Code)

	listed := decode[struct {
		Tasks []backlog.Entry `json:"tasks"`
		Total int             `json:"total"`
	}](t, w)
	require.Equal(t, 3, listed.Total)
	require.Equal(t, "Later", listed.Tasks[0].Title)

	// the empty result computed above must not survive the additions
	w = ts.do(t, http.MethodGet, "/api/tasks/suggest/", "")
	require.Equal(t, http.StatusOK, w.Code)

	suggestions := decode[suggestResponse](t, w)
	require.Len(t, suggestions.Suggestions, 2)
	require.Equal(t, "Ship report", suggestions.Suggestions[0].Task)
	require.Equal(t, "High", suggestions.Suggestions[0].Priority)
	require.Equal(t, "Review PR", suggestions.Suggestions[1].Task)

	cached, err := ts.cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, suggestions.Suggestions, cached.Suggestions)

	w = ts.do(t, http.MethodDelete, "/api/tasks/backlog/"+ids[1], "")
	require.Equal(t, http.StatusNoContent, w.Code)

	_, err = ts.cache.Get(context.Background())
	require.ErrorIs(t, err, backlog.ErrCacheMiss)

	w = ts.do(t, http.MethodDelete, "/api/tasks/backlog/"+ids[1], "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, codeNotFound, decode[errorResponse](t, w).Code)

	snapshot, err := ts.store.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
}

func TestSuggestCacheFreshness(t *testing.T) {
	ts := setupTestServer(t, nil)
	ctx := context.Background()

	cachedToday := backlog.CachedSuggestions{
		Suggestions: []suggest.Suggestion{{Task: "From cache", Priority: "High", Reason: "Due TODAY", EstimatedHours: 1}},
		ComputedAt:  now.Add(-time.Hour),
	}
	require.NoError(t, ts.cache.Set(ctx, cachedToday))

	w := ts.do(t, http.MethodGet, "/api/tasks/suggest/", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, cachedToday.Suggestions, decode[suggestResponse](t, w).Suggestions)

	cachedYesterday := backlog.CachedSuggestions{
		Suggestions: []suggest.Suggestion{{Task: "Stale", Priority: "High", Reason: "Due tomorrow", EstimatedHours: 1}},
		ComputedAt:  now.Add(-12 * time.Hour),
	}
	require.NoError(t, ts.cache.Set(ctx, cachedYesterday))

	w = ts.do(t, http.MethodGet, "/api/tasks/suggest/", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[suggestResponse](t, w)
	require.Empty(t, resp.Suggestions)
	require.Equal(t, "2025-03-10", resp.Date)

	recomputed, err := ts.cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, now.Equal(recomputed.ComputedAt))
}

func TestAddBacklogInvalid(t *testing.T) {
	ts := setupTestServer(t, nil)

	tests := []struct {
		name          string
		body          string
		expectedField string
	}{
		{
			name:          "Missing title",
			body:          `{"due_date": "2025-03-10", "estimated_hours": 1, "importance": 5}`,
			expectedField: "title",
		},
		{
			name:          "Bad date",
			body:          `{"title": "x", "due_date": "10/03/2025", "estimated_hours": 1, "importance": 5}`,
			expectedField: "due_date",
		},
		{
			name:          "Wrong type",
			body:          `{"title": 42, "due_date": "2025-03-10", "estimated_hours": 1, "importance": 5}`,
			expectedField: "title",
		},
		{
			name:          "Not an object",
			body:          `[1, 2]`,
			expectedField: "record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/tasks/backlog/", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			resp := decode[errorResponse](t, w)
			require.Equal(t, codeInvalidTaskField, resp.Code)
			require.Equal(t, tt.expectedField, resp.Field)
		})
	}

	size, err := ts.store.Len(context.Background())
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestCORSPreflight(t *testing.T) {
	ts := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks/analyze/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBulkText(t *testing.T) {
	got, err := bulkText(nil)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = bulkText(json.RawMessage(`null`))
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = bulkText(json.RawMessage(`"[1]"`))
	require.NoError(t, err)
	require.Equal(t, "[1]", string(got))

	got, err = bulkText(json.RawMessage(` [1] `))
	require.NoError(t, err)
	require.Equal(t, "[1]", string(got))

	_, err = bulkText(json.RawMessage(`"unterminated`))
	require.ErrorIs(t, err, tasks.ErrMalformedBulkPayload)
}
