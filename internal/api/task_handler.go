package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nexusplatform/orchestrator/internal/api/shared"
	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/platform/redis"
	"github.com/nexusplatform/orchestrator/internal/telemetry"
)

// TaskEnqueuer is the slice of the engine the task handler needs.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, taskType domain.TaskType, payload json.RawMessage, override domain.TaskPriority) (uuid.UUID, error)
	Task(id uuid.UUID) (*domain.Task, error)
}

// TaskHandler serves task submission and polling.
type TaskHandler struct {
	engine  TaskEnqueuer
	limiter redis.RateLimiter
	logger  *slog.Logger
}

// NewTaskHandler creates a task handler. limiter may be redis.NoopLimiter.
func NewTaskHandler(engine TaskEnqueuer, limiter redis.RateLimiter, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		engine:  engine,
		limiter: limiter,
		logger:  logger.With("component", "task_handler"),
	}
}

// EnqueueRequest is the body of POST /api/tasks.
type EnqueueRequest struct {
	Type     string          `json:"type"`
	Priority string          `json:"priority,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// EnqueueResponse is the 202 body: the id to poll.
type EnqueueResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// Enqueue handles POST /api/tasks.
func (h *TaskHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Payload == nil {
		req.Payload = json.RawMessage(`{}`)
	}

	key := rateLimitKey(req.Payload, r)
	allowed, err := h.limiter.Allow(r.Context(), key)
	if err != nil {
		// A rate limiter outage never blocks task intake.
		h.logger.Error("rate limiter unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		telemetry.RateLimitedRequests.Inc()
		shared.RespondWithError(w, r, http.StatusTooManyRequests, "too many tasks, slow down")
		return
	}

	id, err := h.engine.Enqueue(r.Context(), domain.TaskType(req.Type), req.Payload, domain.TaskPriority(req.Priority))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTaskType) || errors.Is(err, domain.ErrInvalidPriority) {
			shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		shared.RespondWithError(w, r, http.StatusInternalServerError, "failed to enqueue task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, EnqueueResponse{
		TaskID: id.String(),
		Status: string(domain.TaskStatusPending),
	})
}

// Get handles GET /api/tasks/{id}: the polling side of fire-and-forget
// submission.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := h.engine.Task(id)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "task not found")
			return
		}
		shared.RespondWithError(w, r, http.StatusInternalServerError, "failed to load task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// rateLimitKey prefers the submitting user; anonymous submissions fall back
// to the remote address.
func rateLimitKey(payload json.RawMessage, r *http.Request) string {
	var p struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(payload, &p); err == nil && p.UserID != "" {
		return "user:" + p.UserID
	}
	return "addr:" + r.RemoteAddr
}
