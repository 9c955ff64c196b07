package handlers

import (
	"context"
	"net/http"

	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services/renewal"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// RenewalService defines the renewal operations used by the HTTP layer
type RenewalService interface {
	SyncAll(ctx context.Context) (*renewal.SyncSummary, error)
	SyncRenewalDate(ctx context.Context, id int64) (*models.License, bool, error)
}

// RenewalSyncResponse reports the renewal date of one license after a sync
type RenewalSyncResponse struct {
	License *models.License `json:"license"`
	Changed bool            `json:"changed"`
}

// RenewalHandler triggers renewal date maintenance
type RenewalHandler struct {
	service RenewalService
	logger  *zap.Logger
}

// NewRenewalHandler creates a new RenewalHandler
func NewRenewalHandler(service RenewalService, logger *zap.Logger) *RenewalHandler {
	return &RenewalHandler{service: service, logger: logger}
}

// HandleSync handles POST /api/v1/renewals/sync
func (h *RenewalHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	summary, err := h.service.SyncAll(ctx)
	if err != nil {
		h.logger.Error("renewal sync failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("renewal sync triggered",
		zap.String("request_id", requestID),
		zap.String("actor", middleware.Actor(ctx)),
		zap.Int("updated", summary.Updated))

	_ = utils.WriteOK(w, summary)
}

// HandleSyncLicense handles POST /api/v1/licenses/{id}/renewal/sync
func (h *RenewalHandler) HandleSyncLicense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	license, changed, err := h.service.SyncRenewalDate(ctx, id)
	if err != nil {
		h.logger.Error("license renewal sync failed",
			zap.String("request_id", requestID),
			zap.Int64("license_id", id),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("license renewal synced",
		zap.String("request_id", requestID),
		zap.String("actor", middleware.Actor(ctx)),
		zap.Int64("license_id", id),
		zap.Bool("changed", changed))

	_ = utils.WriteOK(w, RenewalSyncResponse{License: license, Changed: changed})
}
