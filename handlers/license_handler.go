package handlers

import (
	"context"
	"net/http"

	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services/licenses"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// LicenseService defines the license operations used by the HTTP layer
type LicenseService interface {
	List(ctx context.Context) ([]*models.LicenseSummary, error)
	Get(ctx context.Context, id int64) (*models.LicenseDetail, error)
	Create(ctx context.Context, in licenses.Input, actor string) (*models.License, error)
	Update(ctx context.Context, id int64, in licenses.Input, actor string) (*models.License, error)
	Delete(ctx context.Context, id int64, actor string) error
}

// LicenseHandler handles license HTTP requests
type LicenseHandler struct {
	service LicenseService
	seats   SeatService
	logger  *zap.Logger
}

// NewLicenseHandler creates a new LicenseHandler
func NewLicenseHandler(service LicenseService, seats SeatService, logger *zap.Logger) *LicenseHandler {
	return &LicenseHandler{
		service: service,
		seats:   seats,
		logger:  logger,
	}
}

// HandleList handles GET /api/v1/licenses
func (h *LicenseHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.service.List(ctx)
	if err != nil {
		h.logger.Error("failed to list licenses",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, list)
}

// HandleGet handles GET /api/v1/licenses/{id}
func (h *LicenseHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.service.Get(ctx, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, detail)
}

// HandleCreate handles POST /api/v1/licenses
func (h *LicenseHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var in licenses.Input
	if !decodeRequest(w, r, &in, h.logger, requestID) {
		return
	}

	license, err := h.service.Create(ctx, in, middleware.Actor(ctx))
	if err != nil {
		h.logger.Warn("failed to create license",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("license created",
		zap.String("request_id", requestID),
		zap.Int64("license_id", license.ID))

	_ = utils.WriteCreated(w, license)
}

// HandleUpdate handles PUT /api/v1/licenses/{id}
func (h *LicenseHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in licenses.Input
	if !decodeRequest(w, r, &in, h.logger, requestID) {
		return
	}

	license, err := h.service.Update(ctx, id, in, middleware.Actor(ctx))
	if err != nil {
		h.logger.Warn("failed to update license",
			zap.String("request_id", requestID),
			zap.Int64("license_id", id),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, license)
}

// HandleDelete handles DELETE /api/v1/licenses/{id}
func (h *LicenseHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id, middleware.Actor(ctx)); err != nil {
		h.logger.Warn("failed to delete license",
			zap.String("request_id", requestID),
			zap.Int64("license_id", id),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("license deleted",
		zap.String("request_id", requestID),
		zap.Int64("license_id", id))

	utils.WriteNoContent(w)
}

// HandleListSeats handles GET /api/v1/licenses/{id}/seats
func (h *LicenseHandler) HandleListSeats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	seats, err := h.seats.ListByLicense(ctx, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, seats)
}
