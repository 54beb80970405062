package api

import (
	"net/http"

	"github.com/nexusplatform/orchestrator/internal/api/shared"
	"github.com/nexusplatform/orchestrator/internal/health"
)

// EngineStatus is the slice of the engine the status handler needs.
type EngineStatus interface {
	QueueLen() int
	Processing() bool
}

// HealthStatus is the slice of the health monitor the status handler needs.
type HealthStatus interface {
	Snapshot() health.State
}

// StatusHandler serves the system status summary.
type StatusHandler struct {
	engine  EngineStatus
	monitor HealthStatus
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(engine EngineStatus, monitor HealthStatus) *StatusHandler {
	return &StatusHandler{engine: engine, monitor: monitor}
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Health     int    `json:"health"`
	QueueSize  int    `json:"queue_size"`
	Mode       string `json:"mode"`
	Ready      bool   `json:"ready"`
	Processing bool   `json:"processing"`
}

// Get handles GET /api/status.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	state := h.monitor.Snapshot()
	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{
		Health:     state.Score,
		QueueSize:  h.engine.QueueLen(),
		Mode:       string(state.Mode),
		Ready:      state.Ready,
		Processing: h.engine.Processing(),
	})
}
