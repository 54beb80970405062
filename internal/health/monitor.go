// Package health maintains the process-wide health state: a 0-100 score, a
// consecutive-failure breaker, and the derived scheduling mode. The
// scheduler reads it every tick; the executor and instance router feed it.
package health

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/nexusplatform/orchestrator/internal/config"
	"github.com/nexusplatform/orchestrator/internal/store"
	"github.com/nexusplatform/orchestrator/internal/telemetry"
)

// Mode is the scheduling mode derived from the health score.
type Mode string

const (
	ModeTurbo    Mode = "turbo"
	ModeSafe     Mode = "safe"
	ModeCritical Mode = "critical"
)

// Score deltas. The probe penalty and recovery step are fixed; thresholds
// come from configuration.
const (
	probePenalty   = 10
	failurePenalty = 5
	recoveryStep   = 5
	readyThreshold = 20
)

// ProbeFunc measures one latency sample against a downstream dependency.
type ProbeFunc func(ctx context.Context) (time.Duration, error)

// SyntheticProbe returns a random latency sample without touching the
// network. It keeps the monitor exercising its full range in deployments
// with no gateway configured.
func SyntheticProbe(_ context.Context) (time.Duration, error) {
	return time.Duration(100+rand.Intn(1900)) * time.Millisecond, nil
}

// State is a point-in-time copy of the monitor's health state.
type State struct {
	Score               int  `json:"score"`
	ConsecutiveFailures int  `json:"consecutive_failures"`
	Ready               bool `json:"ready"`
	Mode                Mode `json:"mode"`
}

// Monitor is the process-wide health singleton. It is explicitly
// constructed and injected; there is no package-level instance.
type Monitor struct {
	cfg    config.HealthConfig
	probe  ProbeFunc
	status store.StatusStore
	logger *slog.Logger

	mu       sync.Mutex
	score    int
	failures int
	ready    bool

	queueLen func() int
}

// NewMonitor creates a Monitor starting at full health. probe may be nil to
// use the synthetic probe.
func NewMonitor(cfg config.HealthConfig, probe ProbeFunc, status store.StatusStore, logger *slog.Logger) *Monitor {
	if probe == nil {
		probe = SyntheticProbe
	}
	return &Monitor{
		cfg:      cfg,
		probe:    probe,
		status:   status,
		logger:   logger.With("component", "health_monitor"),
		score:    100,
		ready:    true,
		queueLen: func() int { return 0 },
	}
}

// SetQueueLen installs the queue depth provider published with each status
// record. The engine registers itself here after construction.
func (m *Monitor) SetQueueLen(fn func() int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fn != nil {
		m.queueLen = fn
	}
}

// Score returns the current health score.
func (m *Monitor) Score() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.score
}

// Ready reports whether upstream producers should keep submitting
// non-critical work.
func (m *Monitor) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// Snapshot returns a consistent copy of the full health state.
func (m *Monitor) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Score:               m.score,
		ConsecutiveFailures: m.failures,
		Ready:               m.ready,
		Mode:                modeFor(m.score),
	}
}

// RecordFailure notes one task or delivery failure. Exceeding the breaker
// threshold forces the score down to the degraded floor and clears the
// ready flag; recovery happens only through probe recovery.
func (m *Monitor) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures++
	m.score = clamp(m.score - failurePenalty)
	if m.failures > m.cfg.BreakerThreshold {
		if m.score > m.cfg.DegradedFloor {
			m.score = m.cfg.DegradedFloor
		}
		if m.ready {
			m.logger.Warn("circuit breaker tripped",
				"consecutive_failures", m.failures,
				"score", m.score)
		}
		m.ready = false
	}
	telemetry.HealthScore.Set(float64(m.score))
}

// RecordSuccess notes one successful task, unwinding the failure counter.
func (m *Monitor) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
	}
}

// Run drives the probe loop until ctx is cancelled, publishing a system
// status record after each sample.
func (m *Monitor) Run(ctx context.Context) {
	interval := time.Duration(m.cfg.ProbeIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("health monitor started", "probe_interval", interval)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("health monitor stopped")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick runs one probe sample and recomputes the derived state.
func (m *Monitor) tick(ctx context.Context) {
	latency, err := m.probe(ctx)
	threshold := time.Duration(m.cfg.LatencyThresholdMs) * time.Millisecond
	slow := err != nil || latency > threshold

	m.mu.Lock()
	switch {
	case slow:
		m.score = clamp(m.score - probePenalty)
	case m.failures == 0:
		m.score = clamp(m.score + recoveryStep)
	}

	if m.failures > m.cfg.BreakerThreshold {
		if m.score > m.cfg.DegradedFloor {
			m.score = m.cfg.DegradedFloor
		}
		m.ready = false
	} else {
		m.ready = m.score > readyThreshold
	}

	state := State{
		Score:               m.score,
		ConsecutiveFailures: m.failures,
		Ready:               m.ready,
		Mode:                modeFor(m.score),
	}
	queueLen := m.queueLen
	m.mu.Unlock()

	telemetry.HealthScore.Set(float64(state.Score))
	m.logger.Debug("health probe",
		"latency", latency,
		"probe_error", err,
		"score", state.Score,
		"mode", state.Mode,
		"ready", state.Ready)

	if m.status != nil {
		record := store.SystemStatus{
			QueueCount:  queueLen(),
			HealthScore: state.Score,
			APIReady:    state.Ready,
			UpdatedAt:   time.Now().UTC(),
		}
		if err := m.status.PutStatus(ctx, record); err != nil {
			m.logger.Error("failed to publish system status", "error", err)
		}
	}
}

func modeFor(score int) Mode {
	switch {
	case score > 80:
		return ModeTurbo
	case score > 40:
		return ModeSafe
	default:
		return ModeCritical
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
