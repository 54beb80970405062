package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

// Possible task status values. Transitions are monotonic except for the
// pending -> processing -> pending loop during retry.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskType identifies one of the closed set of orchestrated job kinds.
type TaskType string

const (
	TaskTypeCampaignGeneration TaskType = "campaign_generation"
	TaskTypeContentCreation    TaskType = "content_creation"
	TaskTypeSalesRecovery      TaskType = "sales_recovery"
	TaskTypeDataSync           TaskType = "data_sync"
	TaskTypeContentPipeline    TaskType = "content_pipeline"
)

// ValidTaskType reports whether t is a member of the closed task type set.
func ValidTaskType(t TaskType) bool {
	switch t {
	case TaskTypeCampaignGeneration, TaskTypeContentCreation,
		TaskTypeSalesRecovery, TaskTypeDataSync, TaskTypeContentPipeline:
		return true
	}
	return false
}

// TaskPriority orders tasks in the queue. Lower rank runs first.
type TaskPriority string

const (
	PriorityCritical TaskPriority = "critical"
	PriorityHigh     TaskPriority = "high"
	PriorityNormal   TaskPriority = "normal"
	PriorityLow      TaskPriority = "low"
)

// ValidPriority reports whether p is a recognized priority.
func ValidPriority(p TaskPriority) bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// Rank returns the numeric scheduling rank for p (critical=0 ... low=3).
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// defaultPriorities maps task types to the priority assigned when the
// producer does not pass an explicit override.
var defaultPriorities = map[TaskType]TaskPriority{
	TaskTypeSalesRecovery:      PriorityCritical,
	TaskTypeDataSync:           PriorityCritical,
	TaskTypeCampaignGeneration: PriorityHigh,
	TaskTypeContentCreation:    PriorityLow,
	TaskTypeContentPipeline:    PriorityNormal,
}

// DefaultPriority returns the per-type default priority, or normal for
// types without an entry.
func DefaultPriority(t TaskType) TaskPriority {
	if p, ok := defaultPriorities[t]; ok {
		return p
	}
	return PriorityNormal
}

// BillingToolID maps a task type to the chargeable tool it exercises.
// Types without a dedicated tool bill against the general assistant.
func BillingToolID(t TaskType) string {
	switch t {
	case TaskTypeCampaignGeneration:
		return "campaign_builder"
	case TaskTypeContentCreation:
		return "copy_generator"
	case TaskTypeSalesRecovery:
		return "sales_bot"
	case TaskTypeDataSync:
		return "pixel_sync"
	default:
		return "business_assistant"
	}
}

// Task is a unit of orchestrated work. It is owned exclusively by the queue
// until dequeued, then by the executor for the duration of one attempt.
type Task struct {
	ID         uuid.UUID       `json:"id"`
	Type       TaskType        `json:"type"`
	Priority   TaskPriority    `json:"priority"`
	Payload    json.RawMessage `json:"payload"`
	Status     TaskStatus      `json:"status"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	RetryCount int             `json:"retry_count"`
	LastError  string          `json:"last_error,omitempty"`
}

// UserID extracts the user identity from the task payload, if present.
// Tasks without a user identity skip billing entirely.
func (t *Task) UserID() string {
	var p struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return ""
	}
	return p.UserID
}
