// Package whatsapp is the HTTP client for the outbound messaging gateway.
// Distribution handlers send through it and the health monitor pings it.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nexusplatform/orchestrator/internal/config"
)

// Sender delivers a message through a named gateway instance.
type Sender interface {
	Send(ctx context.Context, instanceID, recipient, message string) error
}

// Pinger checks gateway reachability and reports round-trip latency.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// Client talks to the messaging gateway's REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var (
	_ Sender = (*Client)(nil)
	_ Pinger = (*Client)(nil)
)

// NewClient creates a gateway client from configuration.
func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type sendRequest struct {
	InstanceID string `json:"instance_id"`
	Recipient  string `json:"recipient"`
	Message    string `json:"message"`
}

// Send posts one outbound message through the given instance.
func (c *Client) Send(ctx context.Context, instanceID, recipient, message string) error {
	if c.baseURL == "" {
		return fmt.Errorf("messaging gateway is not configured")
	}

	body, err := json.Marshal(sendRequest{
		InstanceID: instanceID,
		Recipient:  recipient,
		Message:    message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// Ping hits the gateway health endpoint and returns the round-trip time.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	if c.baseURL == "" {
		return 0, fmt.Errorf("messaging gateway is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create ping request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gateway ping failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("gateway health returned status %d", resp.StatusCode)
	}
	return time.Since(start), nil
}
