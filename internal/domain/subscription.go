package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus tracks the lifecycle of a recurring access grant.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription is a recurring access grant for one (user, tool) pair.
// At most one subscription is retained per pair; subscribing again
// replaces the record rather than appending.
type Subscription struct {
	ID              uuid.UUID          `json:"id"`
	UserID          string             `json:"user_id"`
	ToolID          string             `json:"tool_id"`
	Status          SubscriptionStatus `json:"status"`
	StartedAt       time.Time          `json:"started_at"`
	ExpiresAt       time.Time          `json:"expires_at"`
	AutoRenew       bool               `json:"auto_renew"`
	LastPaymentDate time.Time          `json:"last_payment_date"`
	PriceCredits    int64              `json:"price_credits"`
}

// Expired reports whether the subscription window has lapsed at now.
func (s *Subscription) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
