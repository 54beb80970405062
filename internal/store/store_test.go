package store

import (
	"testing"

	"github.com/google/uuid"
)

// Interface conformance for the in-memory implementations.
var (
	_ CreditStore       = (*MemoryCreditStore)(nil)
	_ SubscriptionStore = (*MemorySubscriptionStore)(nil)
	_ ToolCostStore     = (*MemoryToolCostStore)(nil)
	_ InstanceStore     = (*MemoryInstanceStore)(nil)
	_ TaskStore         = (*MemoryTaskStore)(nil)
	_ StatusStore       = (*MemoryStatusStore)(nil)
)

func newTestUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}
