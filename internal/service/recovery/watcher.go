// Package recovery watches open checkout sessions and requests a sales
// recovery task for any that sit unfinished past the timeout. It is the
// in-process producer side of the task request event channel; the engine
// consumes on the other end.
package recovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nexusplatform/orchestrator/internal/config"
	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/events"
)

type checkout struct {
	userID    string
	owner     string
	recipient string
	startedAt time.Time
}

// Watcher tracks open checkouts in memory. Sessions are keyed by user; a new
// checkout for the same user restarts the clock.
type Watcher struct {
	emitter  events.EventEmitter
	logger   *slog.Logger
	timeout  time.Duration
	interval time.Duration

	mu   sync.Mutex
	open map[string]checkout

	now func() time.Time
}

// NewWatcher creates a checkout watcher that emits through the given emitter.
func NewWatcher(cfg config.RecoveryConfig, emitter events.EventEmitter, logger *slog.Logger) *Watcher {
	return &Watcher{
		emitter:  emitter,
		logger:   logger.With("component", "recovery_watcher"),
		timeout:  time.Duration(cfg.CheckoutTimeoutMs) * time.Millisecond,
		interval: time.Duration(cfg.SweepIntervalMs) * time.Millisecond,
		open:     make(map[string]checkout),
		now:      time.Now,
	}
}

// Track registers an open checkout for the user, restarting the abandonment
// clock if one is already tracked.
func (w *Watcher) Track(userID, owner, recipient string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open[userID] = checkout{
		userID:    userID,
		owner:     owner,
		recipient: recipient,
		startedAt: w.now(),
	}
}

// Complete drops the tracked checkout for the user; a finished purchase
// needs no recovery.
func (w *Watcher) Complete(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.open, userID)
}

// Open returns the number of tracked checkouts.
func (w *Watcher) Open() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.open)
}

// Run sweeps on the configured interval until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("recovery watcher started",
		"timeout", w.timeout,
		"interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("recovery watcher stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep emits one sales recovery request per expired checkout. An emitted
// session is dropped either way; a second nudge for the same abandonment
// would read as spam.
func (w *Watcher) sweep(ctx context.Context) {
	cutoff := w.now().Add(-w.timeout)

	w.mu.Lock()
	var expired []checkout
	for userID, c := range w.open {
		if c.startedAt.Before(cutoff) || c.startedAt.Equal(cutoff) {
			expired = append(expired, c)
			delete(w.open, userID)
		}
	}
	w.mu.Unlock()

	for _, c := range expired {
		event, err := events.NewTaskRequestEvent(string(domain.TaskTypeSalesRecovery), "",
			map[string]string{
				"user_id":   c.userID,
				"owner":     c.owner,
				"recipient": c.recipient,
			})
		if err != nil {
			w.logger.Error("failed to build recovery event",
				"user_id", c.userID,
				"error", err)
			continue
		}
		if err := w.emitter.EmitEvent(ctx, event); err != nil {
			w.logger.Error("failed to emit recovery event",
				"user_id", c.userID,
				"event_id", event.ID,
				"error", err)
			continue
		}
		w.logger.Info("abandoned checkout escalated",
			"user_id", c.userID,
			"event_id", event.ID,
			"open_since", c.startedAt)
	}
}
