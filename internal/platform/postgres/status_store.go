package postgres

import (
	"context"
	"fmt"

	"github.com/nexusplatform/orchestrator/internal/store"
)

// PostgresStatusStore implements store.StatusStore as a single-row upsert.
type PostgresStatusStore struct {
	db store.DBTX
}

// NewPostgresStatusStore creates a new PostgresStatusStore.
func NewPostgresStatusStore(db store.DBTX) *PostgresStatusStore {
	return &PostgresStatusStore{db: db}
}

// PutStatus replaces the system status record.
func (s *PostgresStatusStore) PutStatus(ctx context.Context, status store.SystemStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_status (singleton, queue_count, health_score, api_ready, updated_at)
		VALUES (TRUE, $1, $2, $3, $4)
		ON CONFLICT (singleton)
		DO UPDATE SET queue_count = $1, health_score = $2, api_ready = $3, updated_at = $4
	`, status.QueueCount, status.HealthScore, status.APIReady, status.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert system status: %w", err)
	}
	return nil
}

// GetStatus returns the system status record.
func (s *PostgresStatusStore) GetStatus(ctx context.Context) (*store.SystemStatus, error) {
	var status store.SystemStatus
	err := s.db.QueryRowContext(ctx, `
		SELECT queue_count, health_score, api_ready, updated_at
		FROM system_status
		WHERE singleton
	`).Scan(&status.QueueCount, &status.HealthScore, &status.APIReady, &status.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err, "system status")
	}
	return &status, nil
}
