package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/store"
	"github.com/nexusplatform/orchestrator/internal/telemetry"
)

// SubscriptionChecker is the slice of the subscription manager the gate
// needs. It avoids a package cycle between billing and subscription.
type SubscriptionChecker interface {
	EnsureActive(ctx context.Context, userID, toolID string) (bool, error)
}

// Gate authorizes billable work. The executor calls it immediately before a
// task's side effects when the payload carries a user identity.
type Gate struct {
	resolver *Resolver
	credits  store.CreditStore
	subs     SubscriptionChecker
	logger   *slog.Logger
}

// NewGate creates a billing gate.
func NewGate(resolver *Resolver, credits store.CreditStore, subs SubscriptionChecker, logger *slog.Logger) *Gate {
	return &Gate{
		resolver: resolver,
		credits:  credits,
		subs:     subs,
		logger:   logger.With("component", "billing_gate"),
	}
}

// Authorize clears one unit of billable work for (user, tool).
//
// Monthly tools delegate to the subscription manager; no active subscription
// means domain.ErrSubscriptionRequired. Usage tools resolve a cost and debit
// it; an uncovered balance means domain.ErrInsufficientCredits. Both are
// terminal billing failures. Zero-cost tools pass through untouched.
func (g *Gate) Authorize(ctx context.Context, userID, toolID, description string) error {
	cfg, ok := g.resolver.Config(toolID)
	if ok && cfg.BillingType == domain.BillingMonthly {
		active, err := g.subs.EnsureActive(ctx, userID, toolID)
		if err != nil {
			return fmt.Errorf("subscription check for tool %s: %w", toolID, err)
		}
		if !active {
			telemetry.BillingDebits.WithLabelValues(toolID, "subscription_required").Inc()
			return fmt.Errorf("tool %s: %w", toolID, domain.ErrSubscriptionRequired)
		}
		return nil
	}

	cost, label := g.resolver.ResolveCost(toolID)
	if cost == 0 {
		return nil
	}

	entry, err := g.credits.Debit(ctx, userID, toolID, cost, description)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			telemetry.BillingDebits.WithLabelValues(toolID, "insufficient_credits").Inc()
			g.logger.Warn("debit rejected",
				"user_id", userID,
				"tool_id", toolID,
				"cost", cost)
			return fmt.Errorf("tool %s: %w", toolID, domain.ErrInsufficientCredits)
		}
		telemetry.BillingDebits.WithLabelValues(toolID, "error").Inc()
		return fmt.Errorf("debit for tool %s: %w", toolID, err)
	}

	telemetry.BillingDebits.WithLabelValues(toolID, "ok").Inc()
	g.logger.Info("debit applied",
		"user_id", userID,
		"tool_id", toolID,
		"tool_name", label,
		"cost", cost,
		"balance", entry.BalanceSnapshot)
	return nil
}
