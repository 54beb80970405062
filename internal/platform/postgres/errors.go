package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/nexusplatform/orchestrator/internal/store"
)

// mapNotFound converts sql.ErrNoRows into the store sentinel so callers can
// branch without importing database/sql.
func mapNotFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return err
}
