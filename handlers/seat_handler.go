package handlers

import (
	"context"
	"net/http"

	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services/seats"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// UpdateSeatKeyRequest sets or clears a seat key
type UpdateSeatKeyRequest struct {
	Key string `json:"key" validate:"max=500"`
}

// SeatService defines the seat operations used by the HTTP layer
type SeatService interface {
	ListByLicense(ctx context.Context, licenseID int64) ([]*models.SeatUsage, error)
	CheckKey(ctx context.Context, key string, excludeSeatID *int64) (*seats.KeyCheck, error)
	UpdateKey(ctx context.Context, seatID int64, key, actor string) (*models.LicenseSeat, error)
}

// SeatHandler handles seat key requests
type SeatHandler struct {
	service SeatService
	logger  *zap.Logger
}

// NewSeatHandler creates a new SeatHandler
func NewSeatHandler(service SeatService, logger *zap.Logger) *SeatHandler {
	return &SeatHandler{service: service, logger: logger}
}

// HandleUpdateKey handles PUT /api/v1/seats/{id}/key
func (h *SeatHandler) HandleUpdateKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateSeatKeyRequest
	if !decodeRequest(w, r, &req, h.logger, requestID) {
		return
	}

	seat, err := h.service.UpdateKey(ctx, id, req.Key, middleware.Actor(ctx))
	if err != nil {
		h.logger.Warn("failed to update seat key",
			zap.String("request_id", requestID),
			zap.Int64("seat_id", id),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, seat)
}

// HandleCheckKey handles GET /api/v1/seats/check-key?key=...&excludeSeatId=...
func (h *SeatHandler) HandleCheckKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var exclude *int64
	id, ok, err := utils.QueryInt64(r, "excludeSeatId")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if ok {
		exclude = &id
	}

	check, err := h.service.CheckKey(ctx, r.URL.Query().Get("key"), exclude)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, check)
}
