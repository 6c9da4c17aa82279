package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/trainerhub/trainerhub/internal/gateway/evolution"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

// SystemConfig wires the health endpoints.
type SystemConfig struct {
	Gateway *evolution.Client
	Pinger  interface{ Ping(ctx context.Context) error }
	Logger  *logging.Logger
}

// SystemHandler serves liveness and gateway status checks.
type SystemHandler struct {
	gateway *evolution.Client
	pinger  interface{ Ping(ctx context.Context) error }
	logger  *logging.Logger
}

func NewSystemHandler(cfg SystemConfig) *SystemHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &SystemHandler{gateway: cfg.Gateway, pinger: cfg.Pinger, logger: cfg.Logger}
}

// Health reports process liveness and database reachability.
// Route: GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}
	writeJSON(w, http.StatusOK, status)
}

// GatewayStatus reports the WhatsApp instance's connection state.
// Route: GET /api/gateway/status
func (h *SystemHandler) GatewayStatus(w http.ResponseWriter, r *http.Request) {
	if h.gateway == nil {
		writeJSON(w, http.StatusOK, map[string]string{"state": "unconfigured"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	state, err := h.gateway.ConnectionState(ctx, "")
	if err != nil {
		h.logger.Warn("gateway status check failed", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"state": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": state})
}
