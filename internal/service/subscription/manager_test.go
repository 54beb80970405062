package subscription

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/store"
)

type fixedResolver struct {
	cost int64
}

func (r fixedResolver) ResolveCost(string) (int64, string) { return r.cost, "Sales Recovery Bot" }

type fixture struct {
	manager *Manager
	subs    *store.MemorySubscriptionStore
	credits *store.MemoryCreditStore
	now     time.Time
}

func newFixture(t *testing.T, cost int64) *fixture {
	t.Helper()
	f := &fixture{
		subs:    store.NewMemorySubscriptionStore(),
		credits: store.NewMemoryCreditStore(),
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.manager = NewManager(f.subs, f.credits, fixedResolver{cost: cost}, 30, slog.Default())
	f.manager.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) putSub(t *testing.T, status domain.SubscriptionStatus, expiresAt time.Time, autoRenew bool) {
	t.Helper()
	require.NoError(t, f.subs.Put(context.Background(), &domain.Subscription{
		ID:        uuid.New(),
		UserID:    "u1",
		ToolID:    "sales_bot",
		Status:    status,
		StartedAt: f.now.Add(-40 * 24 * time.Hour),
		ExpiresAt: expiresAt,
		AutoRenew: autoRenew,
	}))
}

func TestEnsureActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no record", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 60)
		active, err := f.manager.EnsureActive(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("active and unexpired", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 60)
		f.putSub(t, domain.SubscriptionActive, f.now.Add(24*time.Hour), true)

		active, err := f.manager.EnsureActive(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("expired with auto-renew and funds renews", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 60)
		f.putSub(t, domain.SubscriptionActive, f.now.Add(-time.Hour), true)
		require.NoError(t, f.credits.Credit(ctx, "u1", 100, "top up"))

		active, err := f.manager.EnsureActive(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.True(t, active)

		sub, err := f.subs.Get(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionActive, sub.Status)
		assert.Equal(t, f.now.Add(30*24*time.Hour), sub.ExpiresAt)
		assert.Equal(t, f.now, sub.LastPaymentDate)

		balance, err := f.credits.Balance(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(40), balance)
	})

	t.Run("expired with auto-renew but no funds marks expired", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 60)
		f.putSub(t, domain.SubscriptionActive, f.now.Add(-time.Hour), true)
		require.NoError(t, f.credits.Credit(ctx, "u1", 10, "top up"))

		active, err := f.manager.EnsureActive(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.False(t, active)

		sub, err := f.subs.Get(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionExpired, sub.Status)

		// No partial debit.
		balance, err := f.credits.Balance(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(10), balance)
	})

	t.Run("expired without auto-renew marks expired", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 60)
		f.putSub(t, domain.SubscriptionActive, f.now.Add(-time.Hour), false)

		active, err := f.manager.EnsureActive(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.False(t, active)

		sub, err := f.subs.Get(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionExpired, sub.Status)
	})

	t.Run("cancelled is never touched", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 60)
		f.putSub(t, domain.SubscriptionCancelled, f.now.Add(24*time.Hour), true)

		active, err := f.manager.EnsureActive(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.False(t, active)

		sub, err := f.subs.Get(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionCancelled, sub.Status)
	})
}

func TestSubscribe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("bills once and opens a fresh window", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 60)
		require.NoError(t, f.credits.Credit(ctx, "u1", 100, "top up"))

		sub, err := f.manager.Subscribe(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionActive, sub.Status)
		assert.Equal(t, f.now.Add(30*24*time.Hour), sub.ExpiresAt)
		assert.True(t, sub.AutoRenew)
		assert.Equal(t, int64(60), sub.PriceCredits)

		balance, err := f.credits.Balance(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(40), balance)
	})

	t.Run("idempotent on active window", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 60)
		require.NoError(t, f.credits.Credit(ctx, "u1", 200, "top up"))

		first, err := f.manager.Subscribe(ctx, "u1", "sales_bot")
		require.NoError(t, err)

		second, err := f.manager.Subscribe(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		// Only one debit.
		balance, err := f.credits.Balance(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(140), balance)
	})

	t.Run("replaces a lapsed record", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 60)
		f.putSub(t, domain.SubscriptionExpired, f.now.Add(-time.Hour), false)
		require.NoError(t, f.credits.Credit(ctx, "u1", 100, "top up"))

		sub, err := f.manager.Subscribe(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionActive, sub.Status)

		// The pair still holds exactly one record, the fresh one.
		got, err := f.subs.Get(ctx, "u1", "sales_bot")
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
	})

	t.Run("insufficient credits fail the purchase", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 60)
		require.NoError(t, f.credits.Credit(ctx, "u1", 10, "top up"))

		_, err := f.manager.Subscribe(ctx, "u1", "sales_bot")
		assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
	})
}
