// Package engine is the orchestration core: the priority task queue, the
// single-flight scheduler, the executor with its per-type dispatch table,
// the retry controller, and the content pipeline saga.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nexusplatform/orchestrator/internal/config"
	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/events"
	"github.com/nexusplatform/orchestrator/internal/generation"
	"github.com/nexusplatform/orchestrator/internal/platform/kafka"
	"github.com/nexusplatform/orchestrator/internal/store"
	"github.com/nexusplatform/orchestrator/internal/telemetry"
)

// healthGate is the score below which the scheduler defers non-critical
// work. Deferred tasks stay pending in place; nothing is reordered.
const healthGate = 50

// HealthReporter is the slice of the health monitor the engine needs.
type HealthReporter interface {
	Score() int
	RecordFailure()
	RecordSuccess()
}

// Deps carries the engine's collaborators. All are required except Audit,
// which may be the kafka.NoopPublisher.
type Deps struct {
	Gate      Authorizer
	Health    HealthReporter
	Generator generation.Generator
	Router    InstanceSelector
	Sender    MessageSender
	TaskStore store.TaskStore
	Audit     kafka.AuditPublisher
	Logger    *slog.Logger
}

// Engine is the orchestration core. It is an explicitly constructed,
// injectable instance; there are no package-level globals.
type Engine struct {
	cfg      config.EngineConfig
	queue    *queue
	handlers map[domain.TaskType]Handler
	gate     Authorizer
	health   HealthReporter
	tasks    store.TaskStore
	audit    kafka.AuditPublisher
	logger   *slog.Logger

	mu     sync.RWMutex
	byID   map[uuid.UUID]*domain.Task
	cancel context.CancelFunc
	done   chan struct{}

	inFlight atomic.Bool
}

// New creates an Engine and wires the closed task type set to its handlers.
func New(cfg config.EngineConfig, deps Deps) *Engine {
	logger := deps.Logger.With("component", "engine")

	handlers := map[domain.TaskType]Handler{
		domain.TaskTypeCampaignGeneration: &campaignHandler{generator: deps.Generator, logger: logger},
		domain.TaskTypeContentCreation:    &contentHandler{generator: deps.Generator, logger: logger},
		domain.TaskTypeSalesRecovery:      &salesRecovery{router: deps.Router, sender: deps.Sender, logger: logger},
		domain.TaskTypeDataSync:           &dataSync{logger: logger},
		domain.TaskTypeContentPipeline: &contentPipeline{
			gate:      deps.Gate,
			generator: deps.Generator,
			router:    deps.Router,
			sender:    deps.Sender,
			logger:    logger,
		},
	}

	audit := deps.Audit
	if audit == nil {
		audit = kafka.NoopPublisher{}
	}

	return &Engine{
		cfg:      cfg,
		queue:    newQueue(),
		handlers: handlers,
		gate:     deps.Gate,
		health:   deps.Health,
		tasks:    deps.TaskStore,
		audit:    audit,
		logger:   logger,
		byID:     make(map[uuid.UUID]*domain.Task),
	}
}

// Enqueue accepts a task and returns its id immediately; execution is
// asynchronous. An empty override uses the per-type default priority.
func (e *Engine) Enqueue(ctx context.Context, taskType domain.TaskType, payload json.RawMessage, override domain.TaskPriority) (uuid.UUID, error) {
	if !domain.ValidTaskType(taskType) {
		return uuid.Nil, fmt.Errorf("%q: %w", taskType, domain.ErrInvalidTaskType)
	}

	priority := domain.DefaultPriority(taskType)
	if override != "" {
		if !domain.ValidPriority(override) {
			return uuid.Nil, fmt.Errorf("%q: %w", override, domain.ErrInvalidPriority)
		}
		priority = override
	}

	task := &domain.Task{
		ID:         uuid.New(),
		Type:       taskType,
		Priority:   priority,
		Payload:    payload,
		Status:     domain.TaskStatusPending,
		EnqueuedAt: time.Now().UTC(),
	}

	e.mu.Lock()
	e.byID[task.ID] = task
	e.mu.Unlock()
	e.queue.Push(task)

	if err := e.tasks.Save(ctx, task); err != nil {
		e.logger.Error("failed to persist task record",
			"task_id", task.ID,
			"error", err)
	}

	telemetry.TasksEnqueued.WithLabelValues(string(taskType), string(priority)).Inc()
	telemetry.QueueDepth.Set(float64(e.queue.Len()))
	e.logger.Info("task enqueued",
		"task_id", task.ID,
		"task_type", taskType,
		"priority", priority)
	return task.ID, nil
}

// HandleEvent implements events.EventHandler, turning a task request event
// into a queued task.
func (e *Engine) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	_, err := e.Enqueue(ctx, domain.TaskType(event.Type), event.Payload, domain.TaskPriority(event.Priority))
	return err
}

var _ events.EventHandler = (*Engine)(nil)

// Task returns a copy of the task record for polling. Enqueue is
// fire-and-forget, so this is the only outcome channel producers have.
func (e *Engine) Task(id uuid.UUID) (*domain.Task, error) {
	e.mu.RLock()
	task, ok := e.byID[id]
	e.mu.RUnlock()
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	found := *task
	return &found, nil
}

// QueueLen returns the number of waiting tasks.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Processing reports whether a task is currently executing.
func (e *Engine) Processing() bool {
	return e.inFlight.Load()
}

// Start launches the scheduler loop. It returns immediately.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	interval := time.Duration(e.cfg.TickMs) * time.Millisecond
	go func() {
		defer close(e.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		e.logger.Info("scheduler started", "tick", interval)
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("scheduler stopped")
				return
			case <-ticker.C:
				e.tick(ctx)
			}
		}
	}()
}

// Stop halts the scheduler loop. An in-flight task finishes its attempt.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}

// tick runs one scheduler pass: back-pressure by single-flight, then the
// health gate, then pop-and-execute.
func (e *Engine) tick(ctx context.Context) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return
	}

	head := e.queue.Peek()
	if head == nil {
		e.inFlight.Store(false)
		return
	}

	if e.health.Score() < healthGate && head.Priority != domain.PriorityCritical {
		// Starve non-critical work during instability without reordering.
		telemetry.TicksSkipped.Inc()
		e.logger.Debug("tick skipped: degraded health",
			"score", e.health.Score(),
			"head_priority", head.Priority)
		e.inFlight.Store(false)
		return
	}

	task := e.queue.Pop()
	telemetry.QueueDepth.Set(float64(e.queue.Len()))
	e.execute(ctx, task)
	e.inFlight.Store(false)
}

// execute runs one attempt: billing gate, handler, then outcome routing
// into completion, retry, or terminal failure.
func (e *Engine) execute(ctx context.Context, task *domain.Task) {
	e.setStatus(ctx, task, domain.TaskStatusProcessing, "")
	start := time.Now()

	err := e.authorize(ctx, task)
	if err == nil {
		handler, ok := e.handlers[task.Type]
		if !ok {
			err = fmt.Errorf("%q: %w", task.Type, domain.ErrInvalidTaskType)
		} else {
			err = handler.Handle(ctx, task)
		}
	}

	telemetry.TaskDurationSeconds.WithLabelValues(string(task.Type)).Observe(time.Since(start).Seconds())

	if err == nil {
		e.health.RecordSuccess()
		e.finalize(ctx, task, domain.TaskStatusCompleted, "")
		return
	}

	e.health.RecordFailure()

	if domain.IsBillingFailure(err) || errors.Is(err, domain.ErrSagaStageFailed) {
		// Retrying cannot conjure credits or a subscription, and a partly
		// billed pipeline would charge its completed stages again.
		e.finalize(ctx, task, domain.TaskStatusFailed, err.Error())
		return
	}

	if task.RetryCount < e.cfg.MaxRetries {
		e.scheduleRetry(ctx, task, err)
		return
	}

	e.finalize(ctx, task, domain.TaskStatusFailed, err.Error())
}

// authorize runs the billing gate for tasks carrying a user identity. The
// content pipeline bills inside its stages instead.
func (e *Engine) authorize(ctx context.Context, task *domain.Task) error {
	if task.Type == domain.TaskTypeContentPipeline {
		return nil
	}
	userID := task.UserID()
	if userID == "" {
		return nil
	}
	desc := fmt.Sprintf("task %s (%s)", task.ID, task.Type)
	return e.gate.Authorize(ctx, userID, domain.BillingToolID(task.Type), desc)
}

// scheduleRetry re-queues the task after a linear backoff delay. The delay
// line feeds the same priority queue, so the re-insert re-sorts.
func (e *Engine) scheduleRetry(ctx context.Context, task *domain.Task, cause error) {
	e.mu.Lock()
	task.RetryCount++
	e.mu.Unlock()
	e.setStatus(ctx, task, domain.TaskStatusPending, cause.Error())

	delay := time.Duration(e.cfg.BackoffBaseMs) * time.Millisecond * time.Duration(task.RetryCount)
	telemetry.TaskRetries.WithLabelValues(string(task.Type)).Inc()
	e.logger.Warn("task scheduled for retry",
		"task_id", task.ID,
		"task_type", task.Type,
		"retry_count", task.RetryCount,
		"delay", delay,
		"error", cause)

	time.AfterFunc(delay, func() {
		e.queue.Push(task)
		telemetry.QueueDepth.Set(float64(e.queue.Len()))
	})
}

// finalize moves a task to a terminal status and reports it.
func (e *Engine) finalize(ctx context.Context, task *domain.Task, status domain.TaskStatus, lastError string) {
	e.setStatus(ctx, task, status, lastError)
	telemetry.TasksProcessed.WithLabelValues(string(task.Type), string(status)).Inc()

	if status == domain.TaskStatusFailed {
		e.logger.Error("task failed",
			"task_id", task.ID,
			"task_type", task.Type,
			"retry_count", task.RetryCount,
			"reason", lastError)
	} else {
		e.logger.Info("task completed",
			"task_id", task.ID,
			"task_type", task.Type)
	}

	if err := e.audit.PublishTaskEvent(ctx, task); err != nil {
		e.logger.Error("failed to publish audit event",
			"task_id", task.ID,
			"error", err)
	}
}

func (e *Engine) setStatus(ctx context.Context, task *domain.Task, status domain.TaskStatus, lastError string) {
	e.mu.Lock()
	task.Status = status
	task.LastError = lastError
	e.mu.Unlock()

	if err := e.tasks.UpdateStatus(ctx, task.ID, status, lastError); err != nil {
		e.logger.Error("failed to persist task status",
			"task_id", task.ID,
			"status", status,
			"error", err)
	}
}
