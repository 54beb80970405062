// Package subscription manages recurring access grants per (user, tool)
// pair. It is consulted by the billing gate for monthly tools and exposed
// directly for purchase and status checks.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/store"
)

// CostResolver is the slice of the billing resolver the manager needs to
// price subscriptions.
type CostResolver interface {
	ResolveCost(toolID string) (int64, string)
}

// Manager owns the subscription lifecycle: purchase, expiry, auto-renewal.
type Manager struct {
	subs     store.SubscriptionStore
	credits  store.CreditStore
	resolver CostResolver
	renewal  time.Duration
	logger   *slog.Logger

	now func() time.Time
}

// NewManager creates a subscription manager with the given renewal window.
func NewManager(subs store.SubscriptionStore, credits store.CreditStore, resolver CostResolver, renewalDays int, logger *slog.Logger) *Manager {
	return &Manager{
		subs:     subs,
		credits:  credits,
		resolver: resolver,
		renewal:  time.Duration(renewalDays) * 24 * time.Hour,
		logger:   logger.With("component", "subscription_manager"),
		now:      time.Now,
	}
}

// EnsureActive reports whether (user, tool) holds a usable subscription,
// renewing a lapsed auto-renew subscription on the way. A lapsed window
// without auto-renew, or with a failed renewal debit, is marked expired.
// Cancelled subscriptions are never touched.
func (m *Manager) EnsureActive(ctx context.Context, userID, toolID string) (bool, error) {
	sub, err := m.subs.Get(ctx, userID, toolID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load subscription: %w", err)
	}

	if sub.Status != domain.SubscriptionActive {
		return false, nil
	}

	now := m.now()
	if !sub.Expired(now) {
		return true, nil
	}

	if !sub.AutoRenew {
		return false, m.markExpired(ctx, sub)
	}
	return m.renew(ctx, sub, now)
}

func (m *Manager) renew(ctx context.Context, sub *domain.Subscription, now time.Time) (bool, error) {
	cost, label := m.resolver.ResolveCost(sub.ToolID)
	if cost > 0 {
		desc := fmt.Sprintf("subscription renewal: %s", label)
		if _, err := m.credits.Debit(ctx, sub.UserID, sub.ToolID, cost, desc); err != nil {
			if errors.Is(err, domain.ErrInsufficientCredits) || errors.Is(err, domain.ErrUserNotFound) {
				m.logger.Warn("subscription renewal debit failed",
					"user_id", sub.UserID,
					"tool_id", sub.ToolID,
					"cost", cost,
					"error", err)
				return false, m.markExpired(ctx, sub)
			}
			return false, fmt.Errorf("renewal debit: %w", err)
		}
	}

	sub.ExpiresAt = now.Add(m.renewal)
	sub.LastPaymentDate = now
	sub.PriceCredits = cost
	if err := m.subs.Put(ctx, sub); err != nil {
		return false, fmt.Errorf("failed to persist renewed subscription: %w", err)
	}

	m.logger.Info("subscription renewed",
		"user_id", sub.UserID,
		"tool_id", sub.ToolID,
		"expires_at", sub.ExpiresAt,
		"cost", cost)
	return true, nil
}

func (m *Manager) markExpired(ctx context.Context, sub *domain.Subscription) error {
	sub.Status = domain.SubscriptionExpired
	if err := m.subs.Put(ctx, sub); err != nil {
		return fmt.Errorf("failed to mark subscription expired: %w", err)
	}
	return nil
}

// Subscribe purchases a subscription for (user, tool). An existing active,
// unexpired subscription is returned as-is without rebilling. Otherwise the
// user is billed once at the current resolved cost and the record is
// replaced with a fresh window.
func (m *Manager) Subscribe(ctx context.Context, userID, toolID string) (*domain.Subscription, error) {
	now := m.now()

	existing, err := m.subs.Get(ctx, userID, toolID)
	if err == nil && existing.Status == domain.SubscriptionActive && !existing.Expired(now) {
		return existing, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	cost, label := m.resolver.ResolveCost(toolID)
	if cost > 0 {
		desc := fmt.Sprintf("subscription: %s", label)
		if _, err := m.credits.Debit(ctx, userID, toolID, cost, desc); err != nil {
			return nil, fmt.Errorf("subscription debit: %w", err)
		}
	}

	sub := &domain.Subscription{
		ID:              uuid.New(),
		UserID:          userID,
		ToolID:          toolID,
		Status:          domain.SubscriptionActive,
		StartedAt:       now,
		ExpiresAt:       now.Add(m.renewal),
		AutoRenew:       true,
		LastPaymentDate: now,
		PriceCredits:    cost,
	}
	if err := m.subs.Put(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to persist subscription: %w", err)
	}

	m.logger.Info("subscription created",
		"user_id", userID,
		"tool_id", toolID,
		"expires_at", sub.ExpiresAt,
		"cost", cost)
	return sub, nil
}
