package domain

import "time"

// BillingType selects how a tool is charged: per task, or via a monthly
// subscription checked before each run.
type BillingType string

const (
	BillingUsage   BillingType = "usage"
	BillingMonthly BillingType = "monthly"
)

// AdjustmentReason records why the auto-balancer last touched a price.
type AdjustmentReason string

const (
	AdjustmentMarginDrop     AdjustmentReason = "margin_drop"
	AdjustmentMarginRecovery AdjustmentReason = "margin_recovery"
)

// PriceAdjustment is the audit stamp left by the margin auto-balancer.
type PriceAdjustment struct {
	Reason   AdjustmentReason `json:"reason"`
	OldPrice int64            `json:"old_price"`
	NewPrice int64            `json:"new_price"`
	Date     time.Time        `json:"date"`
}

// ToolCostConfig holds per-tool pricing. It is read by the cost resolver on
// every billing decision and mutated only by the auto-balancer or external
// configuration updates. PricePerTaskCredits never goes below the floor
// enforced by the resolver.
type ToolCostConfig struct {
	ToolID              string           `json:"tool_id"`
	ToolName            string           `json:"tool_name"`
	PricePerTaskCredits int64            `json:"price_per_task_credits"`
	RealCostEstimateUSD float64          `json:"real_cost_estimate_usd"`
	BillingType         BillingType      `json:"billing_type"`
	TargetMarginPct     float64          `json:"target_margin_pct"`
	TriggerThresholdPct float64          `json:"trigger_threshold_pct"`
	AutoAdjust          bool             `json:"auto_adjust"`
	LastAdjustment      *PriceAdjustment `json:"last_adjustment,omitempty"`
}

// DefaultToolCosts seeds the cost table for a fresh deployment. Prices are
// in credits; real cost estimates in USD per task.
func DefaultToolCosts() []ToolCostConfig {
	return []ToolCostConfig{
		{ToolID: "campaign_builder", ToolName: "Campaign Builder", PricePerTaskCredits: 25, RealCostEstimateUSD: 0.80, BillingType: BillingUsage, TargetMarginPct: 50, TriggerThresholdPct: 10, AutoAdjust: true},
		{ToolID: "copy_generator", ToolName: "Copy Generator", PricePerTaskCredits: 15, RealCostEstimateUSD: 0.40, BillingType: BillingUsage, TargetMarginPct: 50, TriggerThresholdPct: 10, AutoAdjust: true},
		{ToolID: "sales_bot", ToolName: "Sales Recovery Bot", PricePerTaskCredits: 60, RealCostEstimateUSD: 1.50, BillingType: BillingMonthly, TargetMarginPct: 60, TriggerThresholdPct: 10, AutoAdjust: false},
		{ToolID: "pixel_sync", ToolName: "Pixel Data Sync", PricePerTaskCredits: 0, RealCostEstimateUSD: 0, BillingType: BillingUsage},
		{ToolID: "business_assistant", ToolName: "Business Assistant", PricePerTaskCredits: 10, RealCostEstimateUSD: 0.25, BillingType: BillingUsage, TargetMarginPct: 40, TriggerThresholdPct: 10, AutoAdjust: true},
	}
}
