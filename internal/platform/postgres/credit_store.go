package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/platform/logger"
)

// PostgresCreditStore implements store.CreditStore. It owns a *sql.DB
// rather than a DBTX because the debit path opens its own transaction:
// the balance guard and the ledger append must commit together.
type PostgresCreditStore struct {
	db *sql.DB
}

// NewPostgresCreditStore creates a new PostgresCreditStore.
func NewPostgresCreditStore(db *sql.DB) *PostgresCreditStore {
	return &PostgresCreditStore{db: db}
}

// Debit atomically decrements the balance and appends a ledger entry.
// The UPDATE carries the balance guard so two concurrent debits can never
// both pass a stale read; losing transactions see zero rows affected.
func (s *PostgresCreditStore) Debit(ctx context.Context, userID, toolID string, amount int64, description string) (*domain.LedgerEntry, error) {
	log := logger.FromContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin debit transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var newBalance int64
	err = tx.QueryRowContext(ctx, `
		UPDATE user_accounts
		SET credit_balance = credit_balance - $1, updated_at = $2
		WHERE user_id = $3 AND credit_balance >= $1
		RETURNING credit_balance
	`, amount, time.Now().UTC(), userID).Scan(&newBalance)

	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing account from an underfunded one.
		var exists bool
		if probeErr := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM user_accounts WHERE user_id = $1)`,
			userID).Scan(&exists); probeErr != nil {
			return nil, fmt.Errorf("failed to probe user account: %w", probeErr)
		}
		if !exists {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.ErrInsufficientCredits
	}
	if err != nil {
		log.Error("failed to debit credits",
			"user_id", userID,
			"tool_id", toolID,
			"amount", amount,
			"error", err)
		return nil, fmt.Errorf("failed to debit credits: %w", err)
	}

	entry := domain.LedgerEntry{
		ID:              uuid.New(),
		UserID:          userID,
		ToolID:          toolID,
		Amount:          -amount,
		Description:     description,
		BalanceSnapshot: newBalance,
		CreatedAt:       time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, tool_id, amount, description, balance_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.UserID, entry.ToolID, entry.Amount, entry.Description, entry.BalanceSnapshot, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit debit: %w", err)
	}

	return &entry, nil
}

// Credit adds to the balance, creating the account when absent.
func (s *PostgresCreditStore) Credit(ctx context.Context, userID string, amount int64, description string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin credit transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	var newBalance int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO user_accounts (user_id, credit_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET credit_balance = user_accounts.credit_balance + $2, updated_at = $3
		RETURNING credit_balance
	`, userID, amount, now).Scan(&newBalance)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, tool_id, amount, description, balance_snapshot, created_at)
		VALUES ($1, $2, '', $3, $4, $5, $6)
	`, uuid.New(), userID, amount, description, newBalance, now)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return tx.Commit()
}

// Balance returns the user's current credit balance.
func (s *PostgresCreditStore) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT credit_balance FROM user_accounts WHERE user_id = $1`,
		userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query balance: %w", err)
	}
	return balance, nil
}

// Transactions returns the most recent ledger entries, newest first.
func (s *PostgresCreditStore) Transactions(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	log := logger.FromContext(ctx)

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, tool_id, amount, description, balance_snapshot, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		log.Error("failed to query ledger entries", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ToolID, &e.Amount, &e.Description, &e.BalanceSnapshot, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return entries, nil
}
