package postgres

import (
	"context"
	"fmt"

	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/store"
)

// PostgresSubscriptionStore implements store.SubscriptionStore.
type PostgresSubscriptionStore struct {
	db store.DBTX
}

// NewPostgresSubscriptionStore creates a new PostgresSubscriptionStore.
func NewPostgresSubscriptionStore(db store.DBTX) *PostgresSubscriptionStore {
	return &PostgresSubscriptionStore{db: db}
}

// Get returns the subscription for the (user, tool) pair.
func (s *PostgresSubscriptionStore) Get(ctx context.Context, userID, toolID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, tool_id, status, started_at, expires_at, auto_renew, last_payment_date, price_credits
		FROM subscriptions
		WHERE user_id = $1 AND tool_id = $2
	`, userID, toolID).Scan(
		&sub.ID, &sub.UserID, &sub.ToolID, &sub.Status,
		&sub.StartedAt, &sub.ExpiresAt, &sub.AutoRenew,
		&sub.LastPaymentDate, &sub.PriceCredits,
	)
	if err != nil {
		return nil, mapNotFound(err, "subscription")
	}
	return &sub, nil
}

// Put creates or replaces the subscription for its (user, tool) pair.
// The unique index on (user_id, tool_id) enforces the at-most-one
// invariant; subscribing again replaces rather than appends.
func (s *PostgresSubscriptionStore) Put(ctx context.Context, sub *domain.Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, tool_id, status, started_at, expires_at, auto_renew, last_payment_date, price_credits)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, tool_id)
		DO UPDATE SET id = $1, status = $4, started_at = $5, expires_at = $6,
			auto_renew = $7, last_payment_date = $8, price_credits = $9
	`, sub.ID, sub.UserID, sub.ToolID, sub.Status, sub.StartedAt,
		sub.ExpiresAt, sub.AutoRenew, sub.LastPaymentDate, sub.PriceCredits)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}
