package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexusplatform/orchestrator/internal/api/shared"
)

// CheckoutTracker is the slice of the recovery watcher the handler needs.
type CheckoutTracker interface {
	Track(userID, owner, recipient string)
	Complete(userID string)
}

// CheckoutHandler lets storefronts report checkout sessions so abandoned
// ones get a recovery nudge.
type CheckoutHandler struct {
	tracker CheckoutTracker
	logger  *slog.Logger
}

// NewCheckoutHandler creates a checkout handler.
func NewCheckoutHandler(tracker CheckoutTracker, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		tracker: tracker,
		logger:  logger.With("component", "checkout_handler"),
	}
}

// TrackRequest is the body of POST /api/checkouts.
type TrackRequest struct {
	UserID    string `json:"user_id"`
	Owner     string `json:"owner"`
	Recipient string `json:"recipient"`
}

// Track handles POST /api/checkouts: a checkout session opened.
func (h *CheckoutHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Recipient == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "user_id and recipient are required")
		return
	}

	h.tracker.Track(req.UserID, req.Owner, req.Recipient)
	w.WriteHeader(http.StatusAccepted)
}

// Complete handles DELETE /api/checkouts/{user_id}: the purchase went
// through, no recovery needed.
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	h.tracker.Complete(userID)
	w.WriteHeader(http.StatusNoContent)
}
