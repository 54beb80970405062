package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nexusplatform/orchestrator/internal/api/shared"
	"github.com/nexusplatform/orchestrator/internal/domain"
)

// SubscriptionService is the slice of the subscription manager the handler
// needs.
type SubscriptionService interface {
	Subscribe(ctx context.Context, userID, toolID string) (*domain.Subscription, error)
	EnsureActive(ctx context.Context, userID, toolID string) (bool, error)
}

// SubscriptionHandler serves subscription purchase and status checks.
type SubscriptionHandler struct {
	subs   SubscriptionService
	logger *slog.Logger
}

// NewSubscriptionHandler creates a subscription handler.
func NewSubscriptionHandler(subs SubscriptionService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subs:   subs,
		logger: logger.With("component", "subscription_handler"),
	}
}

// SubscribeRequest is the body of POST /api/subscriptions.
type SubscribeRequest struct {
	UserID string `json:"user_id"`
	ToolID string `json:"tool_id"`
}

// Subscribe handles POST /api/subscriptions.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.ToolID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "user_id and tool_id are required")
		return
	}

	sub, err := h.subs.Subscribe(r.Context(), req.UserID, req.ToolID)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			shared.RespondWithError(w, r, http.StatusPaymentRequired, "insufficient credits")
			return
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("subscription purchase failed",
			"user_id", req.UserID,
			"tool_id", req.ToolID,
			"error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "failed to subscribe")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, sub)
}

// ActiveResponse is the body of GET /api/subscriptions/active.
type ActiveResponse struct {
	Active bool `json:"active"`
}

// Active handles GET /api/subscriptions/active?user_id=&tool_id=.
func (h *SubscriptionHandler) Active(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	toolID := r.URL.Query().Get("tool_id")
	if userID == "" || toolID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "user_id and tool_id are required")
		return
	}

	active, err := h.subs.EnsureActive(r.Context(), userID, toolID)
	if err != nil {
		h.logger.Error("subscription check failed",
			"user_id", userID,
			"tool_id", toolID,
			"error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "failed to check subscription")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ActiveResponse{Active: active})
}
