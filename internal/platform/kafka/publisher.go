// Package kafka publishes task lifecycle records to a Kafka topic for
// off-process audit consumers. Publishing is best effort: a broker outage
// never fails the task that triggered the record.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nexusplatform/orchestrator/internal/domain"
)

// AuditPublisher records terminal task transitions.
type AuditPublisher interface {
	PublishTaskEvent(ctx context.Context, task *domain.Task) error
	Close() error
}

type publisher struct {
	writer *kafka.Writer
	topic  string
}

// NewAuditPublisher creates a Kafka publisher connected to the given brokers.
func NewAuditPublisher(brokers []string, topic string) AuditPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{}, // route by task ID for a stable partition per task
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &publisher{writer: w, topic: topic}
}

type taskEvent struct {
	TaskID     string `json:"task_id"`
	Type       string `json:"type"`
	Priority   string `json:"priority"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
	LastError  string `json:"last_error,omitempty"`
	At         string `json:"at"`
}

func (p *publisher) PublishTaskEvent(ctx context.Context, task *domain.Task) error {
	value, err := json.Marshal(taskEvent{
		TaskID:     task.ID.String(),
		Type:       string(task.Type),
		Priority:   string(task.Priority),
		Status:     string(task.Status),
		RetryCount: task.RetryCount,
		LastError:  task.LastError,
		At:         time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal task event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(task.ID.String()),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *publisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops events. It stands in when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishTaskEvent(ctx context.Context, task *domain.Task) error { return nil }
func (NoopPublisher) Close() error                                                  { return nil }

var _ AuditPublisher = NoopPublisher{}
