// Package notify delivers operator alerts to a Discord-compatible webhook.
// The margin balancer and instance router use it for conditions that need a
// human: repricing events and instances pulled into maintenance. An empty
// webhook URL disables delivery, so all call sites alert unconditionally.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Severity selects the embed color for an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Color constants for webhook embeds
const (
	colorInfo     = 0x3498db // Blue
	colorWarning  = 0xf39c12 // Orange
	colorCritical = 0xe74c3c // Red
)

// Notifier sends operator alerts.
type Notifier interface {
	// Alert delivers one alert. Fields are rendered as labeled columns.
	Alert(ctx context.Context, severity Severity, title, description string, fields map[string]string) error
}

// WebhookNotifier implements Notifier against a Discord-compatible webhook.
type WebhookNotifier struct {
	webhookURL string
	httpClient *http.Client
	enabled    bool
}

var _ Notifier = (*WebhookNotifier)(nil)

// webhookEmbed represents a Discord embed object
type webhookEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []webhookEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type webhookEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []webhookEmbed `json:"embeds,omitempty"`
}

// NewWebhookNotifier creates a webhook notifier. An empty URL returns a
// disabled notifier whose Alert is a no-op.
func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	if webhookURL == "" {
		return &WebhookNotifier{enabled: false}
	}
	return &WebhookNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		enabled:    true,
	}
}

// IsEnabled returns whether alerts are delivered.
func (n *WebhookNotifier) IsEnabled() bool {
	return n.enabled
}

// Alert sends one alert to the webhook.
func (n *WebhookNotifier) Alert(ctx context.Context, severity Severity, title, description string, fields map[string]string) error {
	if !n.enabled {
		return nil
	}

	embed := webhookEmbed{
		Title:       title,
		Description: description,
		Color:       severityColor(severity),
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	for name, value := range fields {
		embed.Fields = append(embed.Fields, webhookEmbedField{Name: name, Value: value, Inline: true})
	}

	payload := webhookPayload{
		Username: "orchestrator",
		Embeds:   []webhookEmbed{embed},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func severityColor(severity Severity) int {
	switch severity {
	case SeverityCritical:
		return colorCritical
	case SeverityWarning:
		return colorWarning
	default:
		return colorInfo
	}
}
