package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/services/cost"
	"github.com/upb/license-inventory/services/dashboard"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// DashboardService defines the overview operation used by the HTTP layer
type DashboardService interface {
	Summary(ctx context.Context, refresh bool) (*dashboard.Summary, error)
}

// DashboardHandler serves the overview and the cost calculator
type DashboardHandler struct {
	service DashboardService
	logger  *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, logger: logger}
}

// HandleSummary handles GET /api/v1/dashboard?refresh=true
func (h *DashboardHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	summary, err := h.service.Summary(ctx, refresh)
	if err != nil {
		h.logger.Error("failed to build dashboard",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, summary)
}

// HandleCostPreview handles POST /api/v1/cost/preview
func (h *DashboardHandler) HandleCostPreview(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	var in cost.Input
	if !decodeRequest(w, r, &in, h.logger, requestID) {
		return
	}
	if err := cost.Validate(in); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, cost.Compute(in))
}
