// Package routing selects outbound messaging instances and handles failover.
// Selection never mutates state; the failure-reporting path is the only
// writer of instance status.
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/notify"
	"github.com/nexusplatform/orchestrator/internal/store"
	"github.com/nexusplatform/orchestrator/internal/telemetry"
)

const (
	failurePenalty       = 20
	maintenanceThreshold = 40
)

// FailureRecorder receives delivery failures into the process health state.
type FailureRecorder interface {
	RecordFailure()
}

// Router picks a healthy messaging instance for a role and owner, failing
// over deterministically when the primary channel is degraded.
type Router struct {
	instances store.InstanceStore
	notifier  notify.Notifier
	recorder  FailureRecorder
	logger    *slog.Logger
}

// NewRouter creates an instance router.
func NewRouter(instances store.InstanceStore, notifier notify.Notifier, recorder FailureRecorder, logger *slog.Logger) *Router {
	return &Router{
		instances: instances,
		notifier:  notifier,
		recorder:  recorder,
		logger:    logger.With("component", "instance_router"),
	}
}

// Select returns the instance to use for (role, owner), or nil when no
// channel can serve the role. Lookup order: the owner's primary for the
// role, then any instance of a non-platform owner, then the primary's
// linked backup, then any connected instance with the capability.
func (r *Router) Select(ctx context.Context, role domain.InstanceRole, owner string) (*domain.MessagingInstance, error) {
	if owner == "" {
		owner = domain.PlatformOwner
	}

	all, err := r.instances.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	primary := findPrimary(all, role, owner)
	if primary != nil {
		if primary.Status == domain.InstanceConnected {
			return primary, nil
		}
		// Degraded primary: try its explicitly linked backup.
		for i := range all {
			inst := &all[i]
			if inst.IsBackup && inst.BackupForID == primary.ID && inst.Status == domain.InstanceConnected {
				r.logger.Warn("failing over to linked backup",
					"primary_id", primary.ID,
					"backup_id", inst.ID,
					"role", role)
				return inst, nil
			}
		}
	}

	// Emergency shared routing: any connected instance with the capability.
	for i := range all {
		inst := &all[i]
		if inst.Status == domain.InstanceConnected && inst.HasCapability(role) {
			r.logger.Warn("emergency shared routing",
				"instance_id", inst.ID,
				"role", role,
				"owner", owner)
			return inst, nil
		}
	}

	r.logger.Error("no instance available", "role", role, "owner", owner)
	return nil, nil
}

func findPrimary(all []domain.MessagingInstance, role domain.InstanceRole, owner string) *domain.MessagingInstance {
	for i := range all {
		inst := &all[i]
		if inst.Role == role && inst.OwnerID == owner && !inst.IsBackup {
			return inst
		}
	}
	if owner == domain.PlatformOwner {
		return nil
	}
	// Dedicated owners fall back to any channel they own.
	for i := range all {
		inst := &all[i]
		if inst.OwnerID == owner && !inst.IsBackup {
			return inst
		}
	}
	return nil
}

// ReportFailure records one delivery failure against an instance. The
// health score drops by a fixed penalty; crossing the maintenance threshold
// flips the instance into maintenance and alerts the operator. This is the
// only path that changes instance status.
func (r *Router) ReportFailure(ctx context.Context, instanceID string) error {
	inst, err := r.instances.Get(ctx, instanceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("instance %s: %w", instanceID, domain.ErrInstanceNotFound)
		}
		return fmt.Errorf("failed to load instance: %w", err)
	}

	inst.HealthScore -= failurePenalty
	if inst.HealthScore < 0 {
		inst.HealthScore = 0
	}

	degraded := inst.HealthScore < maintenanceThreshold && inst.Status != domain.InstanceMaintenance
	if degraded {
		inst.Status = domain.InstanceMaintenance
		telemetry.InstanceFailovers.Inc()
	}

	if err := r.instances.Put(ctx, *inst); err != nil {
		return fmt.Errorf("failed to persist instance: %w", err)
	}

	if r.recorder != nil {
		r.recorder.RecordFailure()
	}

	r.logger.Warn("instance failure reported",
		"instance_id", inst.ID,
		"health_score", inst.HealthScore,
		"status", inst.Status)

	if degraded && r.notifier != nil {
		alertErr := r.notifier.Alert(ctx, notify.SeverityCritical,
			"Instance degraded",
			"Messaging instance pulled into maintenance after repeated delivery failures",
			map[string]string{
				"instance_id":  inst.ID,
				"name":         inst.Name,
				"role":         string(inst.Role),
				"health_score": fmt.Sprintf("%d", inst.HealthScore),
			})
		if alertErr != nil {
			r.logger.Error("failed to send degradation alert", "error", alertErr)
		}
	}
	return nil
}
