package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusplatform/orchestrator/internal/config"
	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/generation"
	"github.com/nexusplatform/orchestrator/internal/service/billing"
	"github.com/nexusplatform/orchestrator/internal/store"
)

type noSubs struct{}

func (noSubs) EnsureActive(context.Context, string, string) (bool, error) { return false, nil }

// Stage costs under the test billing constants: script 10, render 12,
// distribute 10 credits.
func newPipeline(t *testing.T) (*contentPipeline, *store.MemoryCreditStore, *stubSender) {
	t.Helper()
	billingCfg := config.BillingConfig{
		FXRate:           6.0,
		MarginMultiplier: 2.5,
		CreditValue:      1.0,
		MinTaskCost:      10,
		RenewalDays:      30,
	}
	credits := store.NewMemoryCreditStore()
	resolver := billing.NewResolver(billingCfg, domain.DefaultToolCosts())
	gate := billing.NewGate(resolver, credits, noSubs{}, slog.Default())
	sender := &stubSender{}
	h := &contentPipeline{
		gate:      gate,
		generator: generation.NewStaticGenerator(),
		router:    &stubRouter{instance: &domain.MessagingInstance{ID: "notify-1", Status: domain.InstanceConnected}},
		sender:    sender,
		logger:    slog.Default(),
	}
	return h, credits, sender
}

func pipelineTask() *domain.Task {
	return &domain.Task{
		ID:      uuid.New(),
		Type:    domain.TaskTypeContentPipeline,
		Payload: json.RawMessage(`{"user_id":"u1","brief":"spring sale","recipient":"+55119"}`),
	}
}

func TestContentPipeline_FullRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h, credits, sender := newPipeline(t)
	require.NoError(t, credits.Credit(ctx, "u1", 100, "top up"))

	task := pipelineTask()
	require.NoError(t, h.Handle(ctx, task))

	balance, err := credits.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(68), balance) // 100 - (10 + 12 + 10)

	entries, err := credits.Transactions(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 4) // top up + three stage debits
	for _, entry := range entries[:3] {
		assert.Contains(t, entry.Description, task.ID.String())
	}

	assert.Equal(t, []string{"+55119"}, sender.sent)
}

func TestContentPipeline_MidStageBillingFailureAborts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h, credits, sender := newPipeline(t)
	// Enough for the script stage only.
	require.NoError(t, credits.Credit(ctx, "u1", 15, "top up"))

	task := pipelineTask()
	err := h.Handle(ctx, task)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
	assert.ErrorIs(t, err, domain.ErrSagaStageFailed)
	assert.True(t, strings.Contains(err.Error(), "render"))

	// Stage one's charge stays; no compensation, no later charges.
	balance, berr := credits.Balance(ctx, "u1")
	require.NoError(t, berr)
	assert.Equal(t, int64(5), balance)

	entries, terr := credits.Transactions(ctx, "u1", 10)
	require.NoError(t, terr)
	require.Len(t, entries, 2) // top up + script debit only
	assert.Equal(t, int64(-10), entries[0].Amount)

	// Nothing was distributed.
	assert.Empty(t, sender.sent)
}

func TestContentPipeline_FirstStageBillingFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h, credits, _ := newPipeline(t)
	require.NoError(t, credits.Credit(ctx, "u1", 3, "top up"))

	err := h.Handle(ctx, pipelineTask())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)

	balance, berr := credits.Balance(ctx, "u1")
	require.NoError(t, berr)
	assert.Equal(t, int64(3), balance)
}

func TestContentPipeline_SendFailureIsTerminal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// A distribute send error aborts the pipeline for good: no retry, and
	// each completed stage billed exactly once.
	billingCfg := config.BillingConfig{
		FXRate: 6.0, MarginMultiplier: 2.5, CreditValue: 1.0, MinTaskCost: 10, RenewalDays: 30,
	}
	credits := store.NewMemoryCreditStore()
	resolver := billing.NewResolver(billingCfg, domain.DefaultToolCosts())
	gate := billing.NewGate(resolver, credits, noSubs{}, slog.Default())
	health := &stubHealth{score: 100}
	e := New(testEngineConfig(), Deps{
		Gate:      gate,
		Health:    health,
		Generator: generation.NewStaticGenerator(),
		Router:    &stubRouter{instance: &domain.MessagingInstance{ID: "notify-1", Status: domain.InstanceConnected}},
		Sender:    &stubSender{err: errors.New("gateway timeout")},
		TaskStore: store.NewMemoryTaskStore(),
		Logger:    slog.Default(),
	})
	require.NoError(t, credits.Credit(ctx, "u1", 100, "top up"))

	id, err := e.Enqueue(ctx, domain.TaskTypeContentPipeline,
		json.RawMessage(`{"user_id":"u1","brief":"spring sale","recipient":"+55119"}`), "")
	require.NoError(t, err)

	e.tick(ctx)

	task, err := e.Task(id)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, task.Status)
	assert.Equal(t, 0, task.RetryCount)
	assert.Equal(t, 0, e.QueueLen())

	// All three stages billed once; the failed send refunds nothing.
	balance, berr := credits.Balance(ctx, "u1")
	require.NoError(t, berr)
	assert.Equal(t, int64(68), balance)

	entries, terr := credits.Transactions(ctx, "u1", 10)
	require.NoError(t, terr)
	assert.Len(t, entries, 4) // top up + three stage debits
}

func TestContentPipeline_TerminalThroughEngine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Wire the saga into the executor: a mid-stage billing failure must be
	// terminal, not retried.
	billingCfg := config.BillingConfig{
		FXRate: 6.0, MarginMultiplier: 2.5, CreditValue: 1.0, MinTaskCost: 10, RenewalDays: 30,
	}
	credits := store.NewMemoryCreditStore()
	resolver := billing.NewResolver(billingCfg, domain.DefaultToolCosts())
	gate := billing.NewGate(resolver, credits, noSubs{}, slog.Default())
	health := &stubHealth{score: 100}
	e := New(testEngineConfig(), Deps{
		Gate:      gate,
		Health:    health,
		Generator: generation.NewStaticGenerator(),
		Router:    &stubRouter{instance: &domain.MessagingInstance{ID: "notify-1", Status: domain.InstanceConnected}},
		Sender:    &stubSender{},
		TaskStore: store.NewMemoryTaskStore(),
		Logger:    slog.Default(),
	})
	require.NoError(t, credits.Credit(ctx, "u1", 15, "top up"))

	id, err := e.Enqueue(ctx, domain.TaskTypeContentPipeline,
		json.RawMessage(`{"user_id":"u1","brief":"spring sale","recipient":"+55119"}`), "")
	require.NoError(t, err)

	e.tick(ctx)

	task, err := e.Task(id)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, task.Status)
	assert.Equal(t, 0, task.RetryCount)
	assert.Equal(t, 0, e.QueueLen())
	assert.Equal(t, 1, health.failures)
}
