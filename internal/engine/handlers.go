package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/generation"
)

// Handler executes one attempt of a task's side effects. Billing has
// already been cleared by the time a handler runs, except for the content
// pipeline which bills per stage.
type Handler interface {
	Handle(ctx context.Context, task *domain.Task) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, task *domain.Task) error

func (f HandlerFunc) Handle(ctx context.Context, task *domain.Task) error {
	return f(ctx, task)
}

// InstanceSelector is the slice of the instance router handlers need.
type InstanceSelector interface {
	Select(ctx context.Context, role domain.InstanceRole, owner string) (*domain.MessagingInstance, error)
	ReportFailure(ctx context.Context, instanceID string) error
}

// MessageSender delivers one outbound message through a gateway instance.
type MessageSender interface {
	Send(ctx context.Context, instanceID, recipient, message string) error
}

type campaignPayload struct {
	UserID string `json:"user_id"`
	Brief  string `json:"brief"`
}

// campaignHandler generates campaign copy for a brief.
type campaignHandler struct {
	generator generation.Generator
	logger    *slog.Logger
}

func (h *campaignHandler) Handle(ctx context.Context, task *domain.Task) error {
	var p campaignPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return fmt.Errorf("invalid campaign payload: %w", err)
	}

	script, err := h.generator.GenerateScript(ctx, p.Brief, p.UserID)
	if err != nil {
		return fmt.Errorf("campaign generation: %w", err)
	}

	h.logger.Info("campaign generated",
		"task_id", task.ID,
		"user_id", p.UserID,
		"script_length", len(script))
	return nil
}

// contentHandler generates standalone content pieces. Same provider as the
// campaign handler, billed against a cheaper tool.
type contentHandler struct {
	generator generation.Generator
	logger    *slog.Logger
}

func (h *contentHandler) Handle(ctx context.Context, task *domain.Task) error {
	var p campaignPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return fmt.Errorf("invalid content payload: %w", err)
	}

	content, err := h.generator.GenerateScript(ctx, p.Brief, p.UserID)
	if err != nil {
		return fmt.Errorf("content creation: %w", err)
	}

	h.logger.Info("content created",
		"task_id", task.ID,
		"user_id", p.UserID,
		"content_length", len(content))
	return nil
}

type salesRecoveryPayload struct {
	UserID    string `json:"user_id"`
	Owner     string `json:"owner"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// salesRecovery sends an abandoned-cart recovery message through the sales
// channel for the owner, failing over per the router's rules. A failed send
// reports the instance before surfacing the error for retry.
type salesRecovery struct {
	router InstanceSelector
	sender MessageSender
	logger *slog.Logger
}

func (h *salesRecovery) Handle(ctx context.Context, task *domain.Task) error {
	var p salesRecoveryPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return fmt.Errorf("invalid sales recovery payload: %w", err)
	}
	if p.Message == "" {
		p.Message = "You left something behind! Complete your purchase and we'll hold your cart."
	}

	inst, err := h.router.Select(ctx, domain.RoleSales, p.Owner)
	if err != nil {
		return fmt.Errorf("instance selection: %w", err)
	}
	if inst == nil {
		return fmt.Errorf("no sales instance available for owner %q", p.Owner)
	}

	if err := h.sender.Send(ctx, inst.ID, p.Recipient, p.Message); err != nil {
		if repErr := h.router.ReportFailure(ctx, inst.ID); repErr != nil {
			h.logger.Error("failed to report instance failure",
				"instance_id", inst.ID,
				"error", repErr)
		}
		return fmt.Errorf("recovery send via %s: %w", inst.ID, err)
	}

	h.logger.Info("recovery message sent",
		"task_id", task.ID,
		"user_id", p.UserID,
		"instance_id", inst.ID)
	return nil
}

type dataSyncPayload struct {
	UserID string `json:"user_id"`
	Source string `json:"source"`
	Events int    `json:"events"`
}

// dataSyncHandler replays tracked pixel events into the sync target. The
// actual transfer is owned by the pixel service; this handler validates and
// acknowledges the batch.
type dataSync struct {
	logger *slog.Logger
}

func (h *dataSync) Handle(ctx context.Context, task *domain.Task) error {
	var p dataSyncPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return fmt.Errorf("invalid data sync payload: %w", err)
	}
	if p.Source == "" {
		return fmt.Errorf("data sync payload missing source")
	}

	h.logger.Info("pixel batch synced",
		"task_id", task.ID,
		"user_id", p.UserID,
		"source", p.Source,
		"events", p.Events)
	return nil
}
