package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/services/audit"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// DatabaseChecker verifies the database answers queries
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) error
}

// AuditQueue exposes the state of the async audit writer
type AuditQueue interface {
	GetStats() audit.Stats
}

// HealthHandler handles liveness and readiness probes
type HealthHandler struct {
	db     DatabaseChecker
	audit  AuditQueue
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. Either dependency may be nil.
func NewHealthHandler(db DatabaseChecker, auditQueue AuditQueue, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		audit:  auditQueue,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz. It answers 200 while the process runs.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"database": "healthy"}
	healthy := true

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			h.logger.Warn("database health check failed",
				zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
				zap.Error(err))
			checks["database"] = "unhealthy"
			healthy = false
		}
	}

	// a stopped audit writer drops events but does not block requests
	if h.audit != nil {
		stats := h.audit.GetStats()
		switch {
		case !stats.Started:
			checks["audit"] = "stopped"
		case stats.PendingEvents >= stats.BufferSize:
			checks["audit"] = "saturated"
		default:
			checks["audit"] = "healthy"
		}
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	if err := utils.WriteJSON(w, code, utils.SuccessResponse{Data: HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
