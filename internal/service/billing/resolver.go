package billing

import (
	"math"
	"sync/atomic"

	"github.com/nexusplatform/orchestrator/internal/config"
	"github.com/nexusplatform/orchestrator/internal/domain"
)

// Resolver computes per-task credit costs from tool configuration. The
// config table is held as an atomically swapped immutable snapshot, so reads
// never observe a half-written record while the margin balancer reprices.
type Resolver struct {
	fxRate           float64
	marginMultiplier float64
	minTaskCost      int64

	snapshot atomic.Pointer[map[string]domain.ToolCostConfig]
}

// NewResolver creates a Resolver with the given pricing constants and
// initial config table.
func NewResolver(cfg config.BillingConfig, costs []domain.ToolCostConfig) *Resolver {
	r := &Resolver{
		fxRate:           cfg.FXRate,
		marginMultiplier: cfg.MarginMultiplier,
		minTaskCost:      cfg.MinTaskCost,
	}
	r.Publish(costs)
	return r
}

// Publish replaces the config snapshot. Callers must not mutate costs after
// publishing; the balancer builds a fresh slice on each sweep.
func (r *Resolver) Publish(costs []domain.ToolCostConfig) {
	table := make(map[string]domain.ToolCostConfig, len(costs))
	for _, c := range costs {
		table[c.ToolID] = c
	}
	r.snapshot.Store(&table)
}

// Config returns the current config for a tool, if present.
func (r *Resolver) Config(toolID string) (domain.ToolCostConfig, bool) {
	table := *r.snapshot.Load()
	cfg, ok := table[toolID]
	return cfg, ok
}

// ResolveCost returns the per-task cost in credits and a display label for
// the tool. Tools without configuration are free. The cost is the real USD
// estimate converted at the FX rate, marked up by the margin multiplier,
// rounded up, and floored at the configured minimum.
func (r *Resolver) ResolveCost(toolID string) (int64, string) {
	cfg, ok := r.Config(toolID)
	if !ok {
		return 0, ""
	}
	if cfg.RealCostEstimateUSD <= 0 {
		return 0, cfg.ToolName
	}

	credits := CeilCredits(cfg.RealCostEstimateUSD * r.fxRate * r.marginMultiplier)
	if credits < r.minTaskCost {
		credits = r.minTaskCost
	}
	return credits, cfg.ToolName
}

// CeilCredits rounds a credit amount up to a whole credit. Products that are
// exact in decimal can land a hair above their value in binary floating
// point (0.80 * 6.0 * 2.5 evaluates to 12.000000000000002), so the epsilon
// keeps exact products from rounding up a full extra credit.
func CeilCredits(amount float64) int64 {
	return int64(math.Ceil(amount - 1e-9))
}
