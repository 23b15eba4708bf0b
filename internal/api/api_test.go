package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/platform/sqlite"
	"github.com/phrazzld/tasks-api/internal/service"
	"github.com/phrazzld/tasks-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "Corr3ct-Horse!"

type testEnv struct {
	t       *testing.T
	handler http.Handler
	tasks   *service.TaskService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := sqlite.OpenTest(t)

	tasks, err := service.NewTaskService(sqlite.NewTaskStore(db, log), log)
	require.NoError(t, err)

	tokens, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            "test-secret-that-is-at-least-32-characters",
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	provider, err := auth.NewLocalProvider(sqlite.NewUserStore(db, log), tokens, auth.NewBcryptVerifier(4), log)
	require.NoError(t, err)

	a, err := New(Options{Provider: provider, Tasks: tasks, Environment: "test", Logger: log})
	require.NoError(t, err)

	return &testEnv{t: t, handler: a.Router(), tasks: tasks}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (e *testEnv) do(method, path, token string, body any) (int, envelope) {
	e.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	assert.Equal(e.t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(e.t, rec.Header().Get("X-Trace-ID"))

	var env envelope
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	assertEnvelopeShape(e.t, rec.Code, rec.Body.Bytes())
	return rec.Code, env
}

// assertEnvelopeShape checks that a body is exactly one of the two envelopes.
func assertEnvelopeShape(t *testing.T, status int, body []byte) {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &raw))

	if status < 400 {
		assert.ElementsMatch(t, []string{"success", "data", "meta"}, keys(raw))
		assert.JSONEq(t, "true", string(raw["success"]))
		assert.True(t, bytes.HasPrefix(raw["meta"], []byte("{")), "meta must be an object")
		return
	}

	assert.ElementsMatch(t, []string{"success", "error"}, keys(raw))
	assert.JSONEq(t, "false", string(raw["success"]))
	var errBody map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["error"], &errBody))
	assert.ElementsMatch(t, []string{"message", "code"}, keys(errBody))
	assert.JSONEq(t, fmt.Sprint(status), string(errBody["code"]))
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (e *testEnv) signUpAndToken(email string) string {
	e.t.Helper()

	status, env := e.do(http.MethodPost, "/auth/signup", "", map[string]any{"email": email, "password": testPassword})
	require.Equal(e.t, http.StatusCreated, status, env.Error)

	status, env = e.do(http.MethodPost, "/api/v1/auth/token", "", map[string]any{"email": email, "password": testPassword})
	require.Equal(e.t, http.StatusOK, status, env.Error)

	var data TokenData
	require.NoError(e.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(e.t, data.Token)
	assert.Equal(e.t, email, data.User.Email)
	return data.Token
}

func (e *testEnv) createTask(token string, body any) TaskResponse {
	e.t.Helper()
	status, env := e.do(http.MethodPost, "/api/v1/tasks", token, body)
	require.Equal(e.t, http.StatusCreated, status, env.Error)
	return decodeTask(e.t, env)
}

func decodeTask(t *testing.T, env envelope) TaskResponse {
	t.Helper()
	var data TaskData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Task
}

func decodeTasks(t *testing.T, env envelope) []TaskResponse {
	t.Helper()
	var data TaskListData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Tasks
}

func TestAuthenticationRequired(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method string
		path   string
		token  string
		body   any
	}{
		{http.MethodGet, "/tasks", "", nil},
		{http.MethodGet, "/api/v1/tasks/1", "", nil},
		{http.MethodPost, "/tasks", "", map[string]any{"title": "x"}},
		{http.MethodPut, "/api/v1/tasks/abc", "", map[string]any{"title": ""}},
		{http.MethodDelete, "/tasks/1", "not-a-jwt", nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			status, body := env.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, http.StatusUnauthorized, body.Error.Code)
		})
	}
}

func TestRoundTripAndCreateDefaults(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUpAndToken("alice@example.com")

	created := env.createTask(token, map[string]any{"title": "x"})
	assert.False(t, created.Completed)
	assert.Positive(t, created.ID)

	status, body := env.do(http.MethodGet, fmt.Sprintf("/tasks/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	got := decodeTask(t, body)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "x", got.Title)
	assert.False(t, got.Completed)
	assert.Empty(t, body.Meta)

	completed := env.createTask(token, map[string]any{"title": "done", "completed": "true"})
	assert.True(t, completed.Completed, "boolean-like strings are coerced")
}

func TestOwnershipIsolation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUpAndToken("alice@example.com")
	bob := env.signUpAndToken("bob@example.com")

	task := env.createTask(alice, map[string]any{"title": "private"})
	owned := fmt.Sprintf("/api/v1/tasks/%d", task.ID)
	missing := "/api/v1/tasks/999999"

	requests := []struct {
		method string
		body   any
	}{
		{http.MethodGet, nil},
		{http.MethodPut, map[string]any{"title": "hijacked"}},
		{http.MethodDelete, nil},
	}
	for _, req := range requests {
		req := req
		t.Run(req.method, func(t *testing.T) {
			s1, notOwned := env.do(req.method, owned, bob, req.body)
			s2, notFound := env.do(req.method, missing, bob, req.body)

			assert.Equal(t, http.StatusNotFound, s1)
			assert.Equal(t, s1, s2)
			assert.Equal(t, notFound.Error, notOwned.Error)
		})
	}

	status, body := env.do(http.MethodGet, owned, alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "private", decodeTask(t, body).Title)

	status, body = env.do(http.MethodGet, "/tasks", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decodeTasks(t, body))
	assert.EqualValues(t, 0, body.Meta["total"])
}

func TestPagination(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUpAndToken("alice@example.com")

	var ids []int64
	for i := 1; i <= 25; i++ {
		ids = append(ids, env.createTask(token, map[string]any{"title": fmt.Sprintf("task %d", i)}).ID)
	}

	status, body := env.do(http.MethodGet, "/tasks?page=2&limit=10", token, nil)
	require.Equal(t, http.StatusOK, status)

	tasks := decodeTasks(t, body)
	require.Len(t, tasks, 10)
	for i, task := range tasks {
		assert.Equal(t, ids[10+i], task.ID)
	}
	assert.EqualValues(t, 2, body.Meta["page"])
	assert.EqualValues(t, 10, body.Meta["limit"])
	assert.EqualValues(t, 25, body.Meta["total"])

	status, body = env.do(http.MethodGet, "/tasks", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeTasks(t, body), 10)
	assert.EqualValues(t, 1, body.Meta["page"])
	assert.EqualValues(t, 10, body.Meta["limit"])
	status, body = env.do(http.MethodGet, "/tasks?page=100000000000000000&limit=100", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decodeTasks(t, body))
	assert.EqualValues(t, 25, body.Meta["total"])
	assert.EqualValues(t, 100, body.Meta["limit"])
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUpAndToken("alice@example.com")

	milk := env.createTask(token, map[string]any{"title": "Buy milk"})
	env.createTask(token, map[string]any{"title": "Call mom"})

	status, body := env.do(http.MethodGet, "/tasks?search=MILK", token, nil)
	require.Equal(t, http.StatusOK, status)
	tasks := decodeTasks(t, body)
	require.Len(t, tasks, 1)
	assert.Equal(t, milk.ID, tasks[0].ID)
	assert.EqualValues(t, 1, body.Meta["total"])
}

func TestValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUpAndToken("alice@example.com")
	task := env.createTask(token, map[string]any{"title": "keep me"})
	item := fmt.Sprintf("/tasks/%d", task.ID)

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		message string
	}{
		{"non-numeric id", http.MethodGet, "/tasks/abc", nil, "id must be an integer"},
		{"negative id", http.MethodDelete, "/tasks/-1", nil, "id must be greater than or equal to 0"},
		{"missing title", http.MethodPost, "/tasks", map[string]any{"completed": true}, "title is required"},
		{"empty title", http.MethodPost, "/tasks", map[string]any{"title": ""}, "title is required"},
		{"title too long", http.MethodPost, "/tasks", map[string]any{"title": strings.Repeat("é", 256)}, "title must be at most 255 characters"},
		{"numeric title", http.MethodPost, "/tasks", map[string]any{"title": 42}, "title must be a string"},
		{"bad completed", http.MethodPost, "/tasks", map[string]any{"title": "x", "completed": "maybe"}, "completed must be a boolean"},
		{"malformed json", http.MethodPost, "/tasks", `{"title":`, "Invalid JSON in request body"},
		{"non-object body", http.MethodPost, "/tasks", `["x"]`, "Request body must be a JSON object"},
		{"page zero", http.MethodGet, "/tasks?page=0", nil, "page must be greater than or equal to 1"},
		{"limit too high", http.MethodGet, "/tasks?limit=101", nil, "limit must be less than or equal to 100"},
		{"limit not a number", http.MethodGet, "/tasks?limit=ten", nil, "limit must be an integer"},
		{"update empty title", http.MethodPut, item, map[string]any{"title": ""}, "title must be at least 1 characters"},
		{"body before path", http.MethodPut, "/tasks/abc", map[string]any{"completed": "maybe"}, "completed must be a boolean"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(tt.method, tt.path, token, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.message, body.Error.Message)
		})
	}
}

func TestValidationPrecedesMutation(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUpAndToken("alice@example.com")
	task := env.createTask(token, map[string]any{"title": "original"})

	status, _ := env.do(http.MethodPut, "/tasks/abc", token, map[string]any{"title": "changed", "completed": true})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := env.do(http.MethodGet, fmt.Sprintf("/tasks/%d", task.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	got := decodeTask(t, body)
	assert.Equal(t, "original", got.Title)
	assert.False(t, got.Completed)
}

func TestUpdatePatchSemantics(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUpAndToken("alice@example.com")
	task := env.createTask(token, map[string]any{"title": "write report"})
	item := fmt.Sprintf("/api/v1/tasks/%d", task.ID)

	status, body := env.do(http.MethodPut, item, token, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, status)
	got := decodeTask(t, body)
	assert.Equal(t, "write report", got.Title, "omitted title is preserved")
	assert.True(t, got.Completed)

	status, body = env.do(http.MethodPut, item, token, map[string]any{"title": "write summary", "completed": nil})
	require.Equal(t, http.StatusOK, status)
	got = decodeTask(t, body)
	assert.Equal(t, "write summary", got.Title)
	assert.True(t, got.Completed, "null completed is treated as absent")
}

func TestDeleteTwice(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUpAndToken("alice@example.com")
	task := env.createTask(token, map[string]any{"title": "ephemeral"})
	item := fmt.Sprintf("/tasks/%d", task.ID)

	status, body := env.do(http.MethodDelete, item, token, nil)
	require.Equal(t, http.StatusOK, status)
	var msg MessageData
	require.NoError(t, json.Unmarshal(body.Data, &msg))
	assert.Equal(t, fmt.Sprintf("Task with id %d deleted", task.ID), msg.Message)

	status, body = env.do(http.MethodDelete, item, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Task not found", body.Error.Message)
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.signUpAndToken("alice@example.com")

	status, body := env.do(http.MethodPost, "/auth/signup", "", map[string]any{"email": "alice@example.com", "password": testPassword})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Email already exists", body.Error.Message)

	status, body = env.do(http.MethodPost, "/auth/signup", "", map[string]any{"email": "carol@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Error.Message, "password")

	status, body = env.do(http.MethodPost, "/auth/token", "", map[string]any{"email": "alice@example.com", "password": "Wr0ng-password"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", body.Error.Message)

	status, body = env.do(http.MethodPost, "/auth/token", "", map[string]any{"email": "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "password is required", body.Error.Message)
}

func TestUnknownRoutes(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Route /nope not found", body.Error.Message)

	status, body = env.do(http.MethodPatch, "/api/v1/tasks/1", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Route /api/v1/tasks/1 not found", body.Error.Message)
}

func TestMetaAndHealth(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(http.MethodGet, "/internal/meta/apis", "", nil)
	require.Equal(t, http.StatusOK, status)
	var apis struct {
		APIs []EndpointMeta `json:"apis"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &apis))
	require.Len(t, apis.APIs, 7)

	var list EndpointMeta
	for _, m := range apis.APIs {
		if m.Method == http.MethodGet && m.Path == "/tasks" {
			list = m
		}
	}
	assert.True(t, list.AuthRequired)
	assert.True(t, list.SupportsPagination)
	assert.Equal(t, []string{"authenticate", "validate(query)", "handle"}, list.Pipeline)
	assert.Len(t, list.Params, 3)

	status, body = env.do(http.MethodGet, "/internal/meta/system", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body.Data), `"environment":"test"`)

	status, body = env.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body.Data), `"status":"ok"`)
}

type failingTasks struct {
	*service.TaskService
}

func (failingTasks) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthDegraded(t *testing.T) {
	env := newTestEnv(t)
	a, err := New(Options{
		Provider: &auth.LocalProvider{},
		Tasks:    failingTasks{env.tasks},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	env.handler = a.Router()

	status, body := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.NotContains(t, body.Error.Message, "connection refused")
}

func TestRecoverPanics(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"message":"Internal Server Error","code":500}}`, rec.Body.String())
}

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", fmt.Errorf("wrapped: %w", auth.ErrExpiredToken), http.StatusUnauthorized},
		{"validation", domain.NewValidationError("id", "must be an integer", nil), http.StatusBadRequest},
		{"domain validation", domain.ErrEmptyTitle, http.StatusBadRequest},
		{"not found", service.ErrTaskNotFound, http.StatusNotFound},
		{"provider down", auth.ErrProviderUnavailable, http.StatusInternalServerError},
		{"store failure", service.NewTaskServiceError("list", "store error", errors.New("pq: timeout")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, genericErrorMessage, GetSafeErrorMessage(tt.err))
			}
		})
	}
}

func TestHandleAPIError_LogsRedactedDetail(t *testing.T) {
	log, buf := logger.NewTestLogger(t)
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req = req.WithContext(logger.WithLogger(req.Context(), log))
	rec := httptest.NewRecorder()

	HandleAPIError(rec, req, fmt.Errorf("list failed: dial postgres://admin:hunter2@db:5432/tasks: refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "list failed")

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0]["level"])
	assert.Contains(t, entries[0]["error"], "list failed")
	assert.NotContains(t, buf.String(), "hunter2")
}
