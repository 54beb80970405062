package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/platform/logger"
	"github.com/nexusplatform/orchestrator/internal/store"
)

// PostgresTaskStore implements store.TaskStore. It is the durable audit
// shadow of the in-memory scheduling state: producers poll it for
// outcomes since enqueue is fire-and-forget.
type PostgresTaskStore struct {
	db store.DBTX
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

// Save persists a task record.
func (s *PostgresTaskStore) Save(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, type, priority, payload, status, retry_count, last_error, enqueued_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, task.ID, task.Type, task.Priority, []byte(task.Payload), task.Status,
		task.RetryCount, task.LastError, task.EnqueuedAt, time.Now().UTC())
	if err != nil {
		log.Error("failed to save task",
			"task_id", task.ID,
			"task_type", task.Type,
			"error", err)
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// UpdateStatus updates a task's status and last error.
func (s *PostgresTaskStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus, lastError string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1, last_error = $2, updated_at = $3
		WHERE id = $4
	`, status, lastError, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// Get returns the task record for status polling.
func (s *PostgresTaskStore) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, priority, payload, status, retry_count, last_error, enqueued_at
		FROM tasks
		WHERE id = $1
	`, id).Scan(&task.ID, &task.Type, &task.Priority, &payload, &task.Status,
		&task.RetryCount, &task.LastError, &task.EnqueuedAt)
	if err != nil {
		return nil, mapNotFound(err, "task")
	}
	task.Payload = payload
	return &task, nil
}
