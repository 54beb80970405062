package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexusplatform/orchestrator/internal/api/shared"
	"github.com/nexusplatform/orchestrator/internal/domain"
)

// RoutingService is the slice of the instance router the handler needs.
type RoutingService interface {
	Select(ctx context.Context, role domain.InstanceRole, owner string) (*domain.MessagingInstance, error)
	ReportFailure(ctx context.Context, instanceID string) error
}

// InstanceHandler serves instance selection and failure reporting.
type InstanceHandler struct {
	router RoutingService
	logger *slog.Logger
}

// NewInstanceHandler creates an instance handler.
func NewInstanceHandler(router RoutingService, logger *slog.Logger) *InstanceHandler {
	return &InstanceHandler{
		router: router,
		logger: logger.With("component", "instance_handler"),
	}
}

// Select handles GET /api/instances/select?role=&owner=.
func (h *InstanceHandler) Select(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "role is required")
		return
	}
	owner := r.URL.Query().Get("owner")

	inst, err := h.router.Select(r.Context(), domain.InstanceRole(role), owner)
	if err != nil {
		h.logger.Error("instance selection failed", "role", role, "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "failed to select instance")
		return
	}
	if inst == nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "no instance available for role")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, inst)
}

// ReportFailure handles POST /api/instances/{id}/failures.
func (h *InstanceHandler) ReportFailure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.router.ReportFailure(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrInstanceNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "instance not found")
			return
		}
		h.logger.Error("failure report failed", "instance_id", id, "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "failed to record failure")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
