// Package margin implements the automatic price balancer. A slow periodic
// sweep recomputes each auto-adjust tool's real profit margin and reprices
// it back to target when it drifts out of the hysteresis band.
package margin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nexusplatform/orchestrator/internal/config"
	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/notify"
	"github.com/nexusplatform/orchestrator/internal/service/billing"
	"github.com/nexusplatform/orchestrator/internal/store"
	"github.com/nexusplatform/orchestrator/internal/telemetry"
)

// Balancer sweeps tool cost configs and reprices drifted margins. It is the
// only writer of ToolCostConfig during normal operation; after each sweep it
// republishes the resolver's snapshot so billing sees the new prices.
type Balancer struct {
	costs    store.ToolCostStore
	resolver *billing.Resolver
	billing  config.BillingConfig
	notifier notify.Notifier
	interval time.Duration
	logger   *slog.Logger

	now func() time.Time
}

// NewBalancer creates a margin balancer.
func NewBalancer(costs store.ToolCostStore, resolver *billing.Resolver, billingCfg config.BillingConfig, marginCfg config.MarginConfig, notifier notify.Notifier, logger *slog.Logger) *Balancer {
	return &Balancer{
		costs:    costs,
		resolver: resolver,
		billing:  billingCfg,
		notifier: notifier,
		interval: time.Duration(marginCfg.IntervalMinutes) * time.Minute,
		logger:   logger.With("component", "margin_balancer"),
		now:      time.Now,
	}
}

// Run drives periodic sweeps until ctx is cancelled.
func (b *Balancer) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("margin balancer started", "interval", b.interval)
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("margin balancer stopped")
			return
		case <-ticker.C:
			if err := b.Sweep(ctx); err != nil {
				b.logger.Error("margin sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one pass over all auto-adjust configs.
func (b *Balancer) Sweep(ctx context.Context) error {
	configs, err := b.costs.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tool costs: %w", err)
	}

	changed := false
	for _, cfg := range configs {
		if !cfg.AutoAdjust {
			continue
		}
		if b.rebalance(ctx, cfg) {
			changed = true
		}
	}

	if changed {
		fresh, err := b.costs.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to reload tool costs: %w", err)
		}
		b.resolver.Publish(fresh)
	}
	return nil
}

// rebalance checks one config and reprices it if it left the hysteresis
// band. Returns true when the config was mutated.
func (b *Balancer) rebalance(ctx context.Context, cfg domain.ToolCostConfig) bool {
	cost := cfg.RealCostEstimateUSD * b.billing.FXRate
	if cost <= 0 {
		return false
	}

	revenue := float64(cfg.PricePerTaskCredits) * b.billing.CreditValue
	margin := (revenue - cost) / cost * 100

	var reason domain.AdjustmentReason
	switch {
	case margin < cfg.TargetMarginPct-cfg.TriggerThresholdPct:
		reason = domain.AdjustmentMarginDrop
	case margin > cfg.TargetMarginPct+cfg.TriggerThresholdPct:
		// Only unwind prior emergency increases; never ratchet a price
		// below its original baseline speculatively.
		if cfg.LastAdjustment == nil || cfg.LastAdjustment.Reason != domain.AdjustmentMarginDrop {
			return false
		}
		reason = domain.AdjustmentMarginRecovery
	default:
		return false
	}

	oldPrice := cfg.PricePerTaskCredits
	newPrice := billing.CeilCredits(cost * (1 + cfg.TargetMarginPct/100) / b.billing.CreditValue)
	if newPrice == oldPrice {
		return false
	}

	cfg.PricePerTaskCredits = newPrice
	cfg.LastAdjustment = &domain.PriceAdjustment{
		Reason:   reason,
		OldPrice: oldPrice,
		NewPrice: newPrice,
		Date:     b.now(),
	}

	if err := b.costs.Put(ctx, cfg); err != nil {
		b.logger.Error("failed to persist repriced tool",
			"tool_id", cfg.ToolID,
			"error", err)
		return false
	}

	telemetry.MarginAdjustments.WithLabelValues(string(reason)).Inc()
	b.logger.Warn("tool repriced",
		"tool_id", cfg.ToolID,
		"reason", reason,
		"old_price", oldPrice,
		"new_price", newPrice,
		"margin_pct", margin,
		"target_pct", cfg.TargetMarginPct)

	if b.notifier != nil {
		err := b.notifier.Alert(ctx, notify.SeverityWarning,
			"Price adjusted",
			fmt.Sprintf("Margin balancer repriced %s (%s)", cfg.ToolName, reason),
			map[string]string{
				"tool_id":   cfg.ToolID,
				"old_price": fmt.Sprintf("%d", oldPrice),
				"new_price": fmt.Sprintf("%d", newPrice),
				"margin":    fmt.Sprintf("%.1f%%", margin),
			})
		if err != nil {
			b.logger.Error("failed to send reprice alert", "error", err)
		}
	}
	return true
}
