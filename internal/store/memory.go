package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nexusplatform/orchestrator/internal/domain"
)

// MemoryCreditStore is a mutex-guarded in-memory CreditStore used by tests
// and database-less local development.
type MemoryCreditStore struct {
	mu       sync.Mutex
	balances map[string]int64
	ledger   map[string][]domain.LedgerEntry
}

// NewMemoryCreditStore returns an empty in-memory credit store.
func NewMemoryCreditStore() *MemoryCreditStore {
	return &MemoryCreditStore{
		balances: make(map[string]int64),
		ledger:   make(map[string][]domain.LedgerEntry),
	}
}

// Debit implements CreditStore. The whole read-check-write runs under one
// lock so concurrent debits against the same balance serialize.
func (s *MemoryCreditStore) Debit(ctx context.Context, userID, toolID string, amount int64, description string) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if balance < amount {
		return nil, domain.ErrInsufficientCredits
	}

	s.balances[userID] = balance - amount
	entry := domain.LedgerEntry{
		ID:              uuid.New(),
		UserID:          userID,
		ToolID:          toolID,
		Amount:          -amount,
		Description:     description,
		BalanceSnapshot: balance - amount,
		CreatedAt:       time.Now().UTC(),
	}
	s.ledger[userID] = append([]domain.LedgerEntry{entry}, s.ledger[userID]...)
	return &entry, nil
}

// Credit implements CreditStore.
func (s *MemoryCreditStore) Credit(ctx context.Context, userID string, amount int64, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[userID] += amount
	entry := domain.LedgerEntry{
		ID:              uuid.New(),
		UserID:          userID,
		ToolID:          "",
		Amount:          amount,
		Description:     description,
		BalanceSnapshot: s.balances[userID],
		CreatedAt:       time.Now().UTC(),
	}
	s.ledger[userID] = append([]domain.LedgerEntry{entry}, s.ledger[userID]...)
	return nil
}

// Balance implements CreditStore.
func (s *MemoryCreditStore) Balance(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	return balance, nil
}

// Transactions implements CreditStore.
func (s *MemoryCreditStore) Transactions(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.ledger[userID]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]domain.LedgerEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// MemorySubscriptionStore is an in-memory SubscriptionStore.
type MemorySubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]domain.Subscription
}

// NewMemorySubscriptionStore returns an empty in-memory subscription store.
func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{subs: make(map[string]domain.Subscription)}
}

func subKey(userID, toolID string) string {
	return userID + "\x00" + toolID
}

// Get implements SubscriptionStore.
func (s *MemorySubscriptionStore) Get(ctx context.Context, userID, toolID string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[subKey(userID, toolID)]
	if !ok {
		return nil, ErrNotFound
	}
	found := sub
	return &found, nil
}

// Put implements SubscriptionStore. Replaces any existing record for the
// (user, tool) pair.
func (s *MemorySubscriptionStore) Put(ctx context.Context, sub *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[subKey(sub.UserID, sub.ToolID)] = *sub
	return nil
}

// MemoryToolCostStore is an in-memory ToolCostStore.
type MemoryToolCostStore struct {
	mu    sync.Mutex
	tools map[string]domain.ToolCostConfig
}

// NewMemoryToolCostStore returns a store seeded with the given configs.
func NewMemoryToolCostStore(seed ...domain.ToolCostConfig) *MemoryToolCostStore {
	s := &MemoryToolCostStore{tools: make(map[string]domain.ToolCostConfig)}
	for _, cfg := range seed {
		s.tools[cfg.ToolID] = cfg
	}
	return s
}

// List implements ToolCostStore.
func (s *MemoryToolCostStore) List(ctx context.Context) ([]domain.ToolCostConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ToolCostConfig, 0, len(s.tools))
	for _, cfg := range s.tools {
		out = append(out, cfg)
	}
	return out, nil
}

// Get implements ToolCostStore.
func (s *MemoryToolCostStore) Get(ctx context.Context, toolID string) (*domain.ToolCostConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.tools[toolID]
	if !ok {
		return nil, ErrNotFound
	}
	found := cfg
	return &found, nil
}

// Put implements ToolCostStore.
func (s *MemoryToolCostStore) Put(ctx context.Context, cfg domain.ToolCostConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools[cfg.ToolID] = cfg
	return nil
}

// MemoryInstanceStore is an in-memory InstanceStore. List preserves the
// insertion order so router failover decisions are deterministic.
type MemoryInstanceStore struct {
	mu        sync.Mutex
	order     []string
	instances map[string]domain.MessagingInstance
}

// NewMemoryInstanceStore returns a store seeded with the given instances.
func NewMemoryInstanceStore(seed ...domain.MessagingInstance) *MemoryInstanceStore {
	s := &MemoryInstanceStore{instances: make(map[string]domain.MessagingInstance)}
	for _, inst := range seed {
		s.order = append(s.order, inst.ID)
		s.instances[inst.ID] = inst
	}
	return s
}

// List implements InstanceStore.
func (s *MemoryInstanceStore) List(ctx context.Context) ([]domain.MessagingInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.MessagingInstance, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.instances[id])
	}
	return out, nil
}

// Get implements InstanceStore.
func (s *MemoryInstanceStore) Get(ctx context.Context, id string) (*domain.MessagingInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, ErrNotFound
	}
	found := inst
	return &found, nil
}

// Put implements InstanceStore.
func (s *MemoryInstanceStore) Put(ctx context.Context, inst domain.MessagingInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[inst.ID]; !ok {
		s.order = append(s.order, inst.ID)
	}
	s.instances[inst.ID] = inst
	return nil
}

// MemoryTaskStore is an in-memory TaskStore.
type MemoryTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]domain.Task
}

// NewMemoryTaskStore returns an empty in-memory task store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[uuid.UUID]domain.Task)}
}

// Save implements TaskStore.
func (s *MemoryTaskStore) Save(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = *task
	return nil
}

// UpdateStatus implements TaskStore.
func (s *MemoryTaskStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	task.Status = status
	task.LastError = lastError
	s.tasks[id] = task
	return nil
}

// Get implements TaskStore.
func (s *MemoryTaskStore) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	found := task
	return &found, nil
}

// MemoryStatusStore is an in-memory StatusStore.
type MemoryStatusStore struct {
	mu     sync.Mutex
	status *SystemStatus
}

// NewMemoryStatusStore returns an empty in-memory status store.
func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{}
}

// PutStatus implements StatusStore.
func (s *MemoryStatusStore) PutStatus(ctx context.Context, status SystemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = &status
	return nil
}

// GetStatus implements StatusStore.
func (s *MemoryStatusStore) GetStatus(ctx context.Context) (*SystemStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == nil {
		return nil, ErrNotFound
	}
	found := *s.status
	return &found, nil
}
