package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nexusplatform/orchestrator/internal/domain"
)

// CreditStore manages user credit balances and their transaction ledger.
type CreditStore interface {
	// Debit atomically checks the balance, decrements it, and appends a
	// ledger entry with a negative amount. The check and write form one
	// critical section: no partial debit is ever visible to concurrent
	// readers. Returns domain.ErrInsufficientCredits when the balance
	// cannot cover the amount, and domain.ErrUserNotFound for unknown
	// users. On failure no ledger mutation occurs.
	Debit(ctx context.Context, userID, toolID string, amount int64, description string) (*domain.LedgerEntry, error)

	// Credit adds to the balance and appends a positive ledger entry,
	// creating the account if needed.
	Credit(ctx context.Context, userID string, amount int64, description string) error

	// Balance returns the current credit balance for the user.
	Balance(ctx context.Context, userID string) (int64, error)

	// Transactions returns the most recent ledger entries, newest first.
	Transactions(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error)
}

// SubscriptionStore persists at most one subscription per (user, tool) pair.
type SubscriptionStore interface {
	// Get returns the subscription for the pair, or ErrNotFound.
	Get(ctx context.Context, userID, toolID string) (*domain.Subscription, error)

	// Put creates or replaces the subscription for its (user, tool) pair.
	Put(ctx context.Context, sub *domain.Subscription) error
}

// ToolCostStore persists tool pricing configuration.
type ToolCostStore interface {
	List(ctx context.Context) ([]domain.ToolCostConfig, error)
	Get(ctx context.Context, toolID string) (*domain.ToolCostConfig, error)

	// Put creates or replaces the config for its tool ID.
	Put(ctx context.Context, cfg domain.ToolCostConfig) error
}

// InstanceStore persists messaging instance records.
type InstanceStore interface {
	List(ctx context.Context) ([]domain.MessagingInstance, error)
	Get(ctx context.Context, id string) (*domain.MessagingInstance, error)
	Put(ctx context.Context, inst domain.MessagingInstance) error
}

// TaskStore records task lifecycle for post-mortem audit and caller polling.
// The engine's live scheduling state stays in memory; this is the durable
// shadow of it.
type TaskStore interface {
	Save(ctx context.Context, task *domain.Task) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus, lastError string) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// SystemStatus is the externally visible health record published by the
// health monitor so producers outside this process can stop submitting
// non-critical work when the engine degrades.
type SystemStatus struct {
	QueueCount  int       `json:"queue_count"`
	HealthScore int       `json:"health_score"`
	APIReady    bool      `json:"api_ready"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatusStore persists the single system status record.
type StatusStore interface {
	PutStatus(ctx context.Context, status SystemStatus) error
	GetStatus(ctx context.Context) (*SystemStatus, error)
}
