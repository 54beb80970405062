package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry is an immutable record of a credit movement. Debits carry a
// negative amount. Every entry snapshots the balance after the movement so
// histories can be audited without replaying them.
type LedgerEntry struct {
	ID              uuid.UUID `json:"id"`
	UserID          string    `json:"user_id"`
	ToolID          string    `json:"tool_id"`
	Amount          int64     `json:"amount"`
	Description     string    `json:"description"`
	BalanceSnapshot int64     `json:"balance_snapshot"`
	CreatedAt       time.Time `json:"created_at"`
}
