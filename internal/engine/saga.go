package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/generation"
)

// Authorizer clears one unit of billable work. See the billing gate.
type Authorizer interface {
	Authorize(ctx context.Context, userID, toolID, description string) error
}

// Stage tool attribution: each pipeline stage is billed against the tool
// whose capability it exercises.
const (
	stageScript     = "script"
	stageRender     = "render"
	stageDistribute = "distribute"
)

var stageTools = map[string]string{
	stageScript:     "copy_generator",
	stageRender:     "campaign_builder",
	stageDistribute: "business_assistant",
}

type pipelinePayload struct {
	UserID    string `json:"user_id"`
	Brief     string `json:"brief"`
	Owner     string `json:"owner"`
	Recipient string `json:"recipient"`
}

// contentPipeline runs the script -> render -> distribute saga. Stages run
// strictly in order and each bills independently before its side effect.
// The saga is deliberately non-transactional: a failing stage aborts the
// task without refunding credits spent on earlier stages, and the abort is
// terminal since a re-run would bill the completed stages again. All stage
// charges carry the task id in their ledger description.
type contentPipeline struct {
	gate      Authorizer
	generator generation.Generator
	router    InstanceSelector
	sender    MessageSender
	logger    *slog.Logger
}

func (h *contentPipeline) Handle(ctx context.Context, task *domain.Task) error {
	var p pipelinePayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return domain.SagaStageFailure(fmt.Errorf("invalid pipeline payload: %w", err))
	}

	script, err := h.runScript(ctx, task, &p)
	if err != nil {
		return domain.SagaStageFailure(err)
	}

	rendered, err := h.runRender(ctx, task, &p, script)
	if err != nil {
		return domain.SagaStageFailure(err)
	}

	if err := h.runDistribute(ctx, task, &p, rendered); err != nil {
		return domain.SagaStageFailure(err)
	}

	h.logger.Info("pipeline completed",
		"task_id", task.ID,
		"user_id", p.UserID)
	return nil
}

func (h *contentPipeline) billStage(ctx context.Context, task *domain.Task, userID, stage string) error {
	desc := fmt.Sprintf("pipeline %s stage %s", task.ID, stage)
	if err := h.gate.Authorize(ctx, userID, stageTools[stage], desc); err != nil {
		h.logger.Warn("pipeline stage billing failed",
			"task_id", task.ID,
			"stage", stage,
			"error", err)
		return fmt.Errorf("stage %s: %w", stage, err)
	}
	return nil
}

func (h *contentPipeline) runScript(ctx context.Context, task *domain.Task, p *pipelinePayload) (string, error) {
	if err := h.billStage(ctx, task, p.UserID, stageScript); err != nil {
		return "", err
	}
	script, err := h.generator.GenerateScript(ctx, p.Brief, p.UserID)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", stageScript, err)
	}
	return script, nil
}

func (h *contentPipeline) runRender(ctx context.Context, task *domain.Task, p *pipelinePayload, script string) (string, error) {
	if err := h.billStage(ctx, task, p.UserID, stageRender); err != nil {
		return "", err
	}
	// Rendering wraps the script into the deliverable format. The heavy
	// lifting lives with the provider; this composes the final message.
	rendered := fmt.Sprintf("%s\n\n— sent for you by your business assistant", script)
	return rendered, nil
}

func (h *contentPipeline) runDistribute(ctx context.Context, task *domain.Task, p *pipelinePayload, rendered string) error {
	if err := h.billStage(ctx, task, p.UserID, stageDistribute); err != nil {
		return err
	}

	inst, err := h.router.Select(ctx, domain.RoleNotifications, p.Owner)
	if err != nil {
		return fmt.Errorf("stage %s: instance selection: %w", stageDistribute, err)
	}
	if inst == nil {
		return fmt.Errorf("stage %s: no notification instance available", stageDistribute)
	}

	if err := h.sender.Send(ctx, inst.ID, p.Recipient, rendered); err != nil {
		if repErr := h.router.ReportFailure(ctx, inst.ID); repErr != nil {
			h.logger.Error("failed to report instance failure",
				"instance_id", inst.ID,
				"error", repErr)
		}
		return fmt.Errorf("stage %s: send via %s: %w", stageDistribute, inst.ID, err)
	}
	return nil
}
