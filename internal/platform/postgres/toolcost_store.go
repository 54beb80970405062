package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/store"
)

// PostgresToolCostStore implements store.ToolCostStore. The last-adjustment
// stamp is stored as JSONB since it is written and read as a unit.
type PostgresToolCostStore struct {
	db store.DBTX
}

// NewPostgresToolCostStore creates a new PostgresToolCostStore.
func NewPostgresToolCostStore(db store.DBTX) *PostgresToolCostStore {
	return &PostgresToolCostStore{db: db}
}

const toolCostColumns = `tool_id, tool_name, price_per_task_credits, real_cost_estimate_usd,
	billing_type, target_margin_pct, trigger_threshold_pct, auto_adjust, last_adjustment`

// List returns every tool cost config.
func (s *PostgresToolCostStore) List(ctx context.Context) ([]domain.ToolCostConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+toolCostColumns+` FROM tool_costs ORDER BY tool_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool costs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var configs []domain.ToolCostConfig
	for rows.Next() {
		cfg, err := scanToolCost(rows.Scan)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tool cost rows: %w", err)
	}
	return configs, nil
}

// Get returns the config for one tool.
func (s *PostgresToolCostStore) Get(ctx context.Context, toolID string) (*domain.ToolCostConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+toolCostColumns+` FROM tool_costs WHERE tool_id = $1`, toolID)
	cfg, err := scanToolCost(row.Scan)
	if err != nil {
		return nil, mapNotFound(err, "tool cost")
	}
	return cfg, nil
}

// Put creates or replaces the config for its tool ID.
func (s *PostgresToolCostStore) Put(ctx context.Context, cfg domain.ToolCostConfig) error {
	var adjustment any
	if cfg.LastAdjustment != nil {
		raw, err := json.Marshal(cfg.LastAdjustment)
		if err != nil {
			return fmt.Errorf("failed to marshal price adjustment: %w", err)
		}
		adjustment = raw
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_costs (tool_id, tool_name, price_per_task_credits, real_cost_estimate_usd,
			billing_type, target_margin_pct, trigger_threshold_pct, auto_adjust, last_adjustment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tool_id)
		DO UPDATE SET tool_name = $2, price_per_task_credits = $3, real_cost_estimate_usd = $4,
			billing_type = $5, target_margin_pct = $6, trigger_threshold_pct = $7,
			auto_adjust = $8, last_adjustment = $9
	`, cfg.ToolID, cfg.ToolName, cfg.PricePerTaskCredits, cfg.RealCostEstimateUSD,
		cfg.BillingType, cfg.TargetMarginPct, cfg.TriggerThresholdPct, cfg.AutoAdjust, adjustment)
	if err != nil {
		return fmt.Errorf("failed to upsert tool cost: %w", err)
	}
	return nil
}

func scanToolCost(scan func(dest ...any) error) (*domain.ToolCostConfig, error) {
	var cfg domain.ToolCostConfig
	var adjustment []byte
	if err := scan(
		&cfg.ToolID, &cfg.ToolName, &cfg.PricePerTaskCredits, &cfg.RealCostEstimateUSD,
		&cfg.BillingType, &cfg.TargetMarginPct, &cfg.TriggerThresholdPct, &cfg.AutoAdjust,
		&adjustment,
	); err != nil {
		return nil, err
	}
	if len(adjustment) > 0 {
		var stamp domain.PriceAdjustment
		if err := json.Unmarshal(adjustment, &stamp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal price adjustment: %w", err)
		}
		cfg.LastAdjustment = &stamp
	}
	return &cfg, nil
}
