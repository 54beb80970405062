package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCreditStoreDebit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCreditStore()
	require.NoError(t, s.Credit(ctx, "user-1", 100, "initial top-up"))

	entry, err := s.Debit(ctx, "user-1", "copy_generator", 30, "content generation")
	require.NoError(t, err)
	assert.Equal(t, int64(-30), entry.Amount)
	assert.Equal(t, int64(70), entry.BalanceSnapshot)

	balance, err := s.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)
}

func TestMemoryCreditStoreDebitInsufficient(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCreditStore()
	require.NoError(t, s.Credit(ctx, "user-1", 10, "initial top-up"))

	_, err := s.Debit(ctx, "user-1", "copy_generator", 50, "content generation")
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)

	// A failed debit leaves the ledger untouched beyond the top-up.
	entries, err := s.Transactions(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	balance, err := s.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)
}

func TestMemoryCreditStoreDebitUnknownUser(t *testing.T) {
	s := NewMemoryCreditStore()
	_, err := s.Debit(context.Background(), "ghost", "copy_generator", 1, "x")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestMemoryCreditStoreConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCreditStore()
	require.NoError(t, s.Credit(ctx, "user-1", 50, "initial top-up"))

	// 100 concurrent debits of 1 credit against a balance of 50: exactly
	// 50 must succeed and the balance must land on zero, never negative.
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Debit(ctx, "user-1", "tool", 1, "race"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, succeeded)
	balance, err := s.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestMemorySubscriptionStoreReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySubscriptionStore()

	first := &domain.Subscription{UserID: "u", ToolID: "sales_bot", Status: domain.SubscriptionActive, ExpiresAt: time.Now()}
	require.NoError(t, s.Put(ctx, first))

	second := *first
	second.ExpiresAt = first.ExpiresAt.Add(30 * 24 * time.Hour)
	require.NoError(t, s.Put(ctx, &second))

	got, err := s.Get(ctx, "u", "sales_bot")
	require.NoError(t, err)
	assert.Equal(t, second.ExpiresAt, got.ExpiresAt)
}

func TestMemorySubscriptionStoreNotFound(t *testing.T) {
	s := NewMemorySubscriptionStore()
	_, err := s.Get(context.Background(), "u", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryInstanceStorePreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryInstanceStore(
		domain.MessagingInstance{ID: "a"},
		domain.MessagingInstance{ID: "b"},
		domain.MessagingInstance{ID: "c"},
	)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "c", list[2].ID)

	// Updating an existing instance keeps its position.
	require.NoError(t, s.Put(ctx, domain.MessagingInstance{ID: "a", HealthScore: 10}))
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, 10, list[0].HealthScore)
}

func TestMemoryTaskStoreStatusUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()

	task := &domain.Task{Type: domain.TaskTypeDataSync, Status: domain.TaskStatusPending}
	task.ID = newTestUUID(t)
	require.NoError(t, s.Save(ctx, task))

	require.NoError(t, s.UpdateStatus(ctx, task.ID, domain.TaskStatusFailed, "provider unreachable"))

	got, err := s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, "provider unreachable", got.LastError)
}
