package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/store"
)

// PostgresInstanceStore implements store.InstanceStore. Capabilities are a
// comma-joined text column; the set is tiny and only matched exactly.
type PostgresInstanceStore struct {
	db store.DBTX
}

// NewPostgresInstanceStore creates a new PostgresInstanceStore.
func NewPostgresInstanceStore(db store.DBTX) *PostgresInstanceStore {
	return &PostgresInstanceStore{db: db}
}

const instanceColumns = `id, name, role, status, owner_id, is_backup, backup_for_id, phone_number, health_score, capabilities`

// List returns all messaging instances in stable creation order.
func (s *PostgresInstanceStore) List(ctx context.Context) ([]domain.MessagingInstance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+instanceColumns+` FROM messaging_instances ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messaging instances: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var instances []domain.MessagingInstance
	for rows.Next() {
		inst, err := scanInstance(rows.Scan)
		if err != nil {
			return nil, err
		}
		instances = append(instances, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instance rows: %w", err)
	}
	return instances, nil
}

// Get returns one messaging instance by ID.
func (s *PostgresInstanceStore) Get(ctx context.Context, id string) (*domain.MessagingInstance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM messaging_instances WHERE id = $1`, id)
	inst, err := scanInstance(row.Scan)
	if err != nil {
		return nil, mapNotFound(err, "messaging instance")
	}
	return inst, nil
}

// Put creates or replaces the instance record.
func (s *PostgresInstanceStore) Put(ctx context.Context, inst domain.MessagingInstance) error {
	caps := make([]string, len(inst.Capabilities))
	for i, c := range inst.Capabilities {
		caps[i] = string(c)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messaging_instances (id, name, role, status, owner_id, is_backup, backup_for_id, phone_number, health_score, capabilities, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (id)
		DO UPDATE SET name = $2, role = $3, status = $4, owner_id = $5, is_backup = $6,
			backup_for_id = $7, phone_number = $8, health_score = $9, capabilities = $10
	`, inst.ID, inst.Name, inst.Role, inst.Status, inst.OwnerID, inst.IsBackup,
		inst.BackupForID, inst.PhoneNumber, inst.HealthScore, strings.Join(caps, ","))
	if err != nil {
		return fmt.Errorf("failed to upsert messaging instance: %w", err)
	}
	return nil
}

func scanInstance(scan func(dest ...any) error) (*domain.MessagingInstance, error) {
	var inst domain.MessagingInstance
	var caps string
	if err := scan(
		&inst.ID, &inst.Name, &inst.Role, &inst.Status, &inst.OwnerID,
		&inst.IsBackup, &inst.BackupForID, &inst.PhoneNumber, &inst.HealthScore, &caps,
	); err != nil {
		return nil, err
	}
	if caps != "" {
		for _, c := range strings.Split(caps, ",") {
			inst.Capabilities = append(inst.Capabilities, domain.InstanceRole(c))
		}
	}
	return &inst, nil
}
