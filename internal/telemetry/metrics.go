// Package telemetry declares the Prometheus metrics the orchestration core
// exposes. Metrics register at package init; the chi router mounts the
// promhttp handler at /metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "engine",
		Name:      "tasks_enqueued_total",
		Help:      "Total tasks accepted into the priority queue.",
	}, []string{"type", "priority"})

	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "engine",
		Name:      "tasks_processed_total",
		Help:      "Total tasks reaching a terminal status, labelled by type and status.",
	}, []string{"type", "status"})

	TaskRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "engine",
		Name:      "task_retries_total",
		Help:      "Total retry attempts scheduled.",
	}, []string{"type"})

	TaskDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orchestrator",
		Subsystem: "engine",
		Name:      "task_duration_seconds",
		Help:      "Task handler execution time in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"type"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "orchestrator",
		Subsystem: "engine",
		Name:      "queue_depth",
		Help:      "Tasks currently waiting in the priority queue.",
	})

	TicksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "engine",
		Name:      "ticks_skipped_total",
		Help:      "Scheduler ticks skipped because degraded health gated the head task.",
	})

	HealthScore = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "orchestrator",
		Subsystem: "health",
		Name:      "score",
		Help:      "Current system health score in [0,100].",
	})

	BillingDebits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "billing",
		Name:      "debits_total",
		Help:      "Total debit attempts, labelled by tool and outcome.",
	}, []string{"tool_id", "outcome"})

	MarginAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "margin",
		Name:      "adjustments_total",
		Help:      "Total automatic price adjustments, labelled by reason.",
	}, []string{"reason"})

	InstanceFailovers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "routing",
		Name:      "failovers_total",
		Help:      "Total instances pulled into maintenance by failure reports.",
	})

	RateLimitedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "api",
		Name:      "rate_limited_total",
		Help:      "Total enqueue requests rejected by the rate limiter.",
	})
)
