package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/platform/redis"
)

type stubEngine struct {
	id      uuid.UUID
	task    *domain.Task
	taskErr error
	enqErr  error

	gotType     domain.TaskType
	gotPriority domain.TaskPriority
}

func (s *stubEngine) Enqueue(_ context.Context, taskType domain.TaskType, _ json.RawMessage, override domain.TaskPriority) (uuid.UUID, error) {
	s.gotType = taskType
	s.gotPriority = override
	if s.enqErr != nil {
		return uuid.Nil, s.enqErr
	}
	return s.id, nil
}

func (s *stubEngine) Task(uuid.UUID) (*domain.Task, error) {
	return s.task, s.taskErr
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (bool, error) { return false, nil }
func (denyLimiter) Limit() int                                  { return 1 }

func newTaskRouter(engine *stubEngine, limiter redis.RateLimiter) http.Handler {
	h := NewTaskHandler(engine, limiter, slog.Default())
	r := chi.NewRouter()
	r.Post("/api/tasks", h.Enqueue)
	r.Get("/api/tasks/{id}", h.Get)
	return r
}

func TestTaskHandler_Enqueue(t *testing.T) {
	t.Parallel()

	t.Run("accepts a valid task", func(t *testing.T) {
		t.Parallel()

		engine := &stubEngine{id: uuid.New()}
		router := newTaskRouter(engine, redis.NoopLimiter{})

		body := `{"type":"sales_recovery","priority":"critical","payload":{"user_id":"u1"}}`
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)
		var resp EnqueueResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, engine.id.String(), resp.TaskID)
		assert.Equal(t, "pending", resp.Status)
		assert.Equal(t, domain.TaskTypeSalesRecovery, engine.gotType)
		assert.Equal(t, domain.PriorityCritical, engine.gotPriority)
	})

	t.Run("invalid type is a 400", func(t *testing.T) {
		t.Parallel()

		engine := &stubEngine{enqErr: domain.ErrInvalidTaskType}
		router := newTaskRouter(engine, redis.NoopLimiter{})

		req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{"type":"mystery"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(&stubEngine{}, redis.NoopLimiter{})
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("over the rate limit is a 429", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(&stubEngine{id: uuid.New()}, denyLimiter{})
		body := `{"type":"data_sync","payload":{"user_id":"u1"}}`
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}

func TestTaskHandler_Get(t *testing.T) {
	t.Parallel()

	t.Run("returns the task record", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		engine := &stubEngine{task: &domain.Task{
			ID:     id,
			Type:   domain.TaskTypeDataSync,
			Status: domain.TaskStatusCompleted,
		}}
		router := newTaskRouter(engine, redis.NoopLimiter{})

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+id.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got domain.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	})

	t.Run("unknown id is a 404", func(t *testing.T) {
		t.Parallel()

		engine := &stubEngine{taskErr: domain.ErrTaskNotFound}
		router := newTaskRouter(engine, redis.NoopLimiter{})

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+uuid.NewString(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id is a 400", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(&stubEngine{}, redis.NoopLimiter{})
		req := httptest.NewRequest(http.MethodGet, "/api/tasks/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
