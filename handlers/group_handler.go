package handlers

import (
	"context"
	"net/http"

	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services/groups"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// GroupMembersRequest lists licenses to add to or remove from a group
type GroupMembersRequest struct {
	LicenseIDs []int64 `json:"license_ids" validate:"dive,gt=0"`
}

// GroupService defines the license group operations used by the HTTP layer
type GroupService interface {
	List(ctx context.Context) ([]*models.GroupSummary, error)
	Get(ctx context.Context, id int64) (*models.GroupDetail, error)
	Create(ctx context.Context, in groups.CreateInput, actor string) (*models.GroupDetail, error)
	Update(ctx context.Context, id int64, in groups.UpdateInput, actor string) (*models.GroupDetail, error)
	Delete(ctx context.Context, id int64, actor string) error
	AddMembers(ctx context.Context, id int64, licenseIDs []int64, actor string) (*models.GroupDetail, error)
	RemoveMembers(ctx context.Context, id int64, licenseIDs []int64, actor string) (*models.GroupDetail, error)
}

// GroupHandler handles license group HTTP requests
type GroupHandler struct {
	service GroupService
	logger  *zap.Logger
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(service GroupService, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{service: service, logger: logger}
}

// HandleList handles GET /api/v1/groups
func (h *GroupHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, list)
}

// HandleGet handles GET /api/v1/groups/{id}
func (h *GroupHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	group, err := h.service.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, group)
}

// HandleCreate handles POST /api/v1/groups
func (h *GroupHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var in groups.CreateInput
	if !decodeRequest(w, r, &in, h.logger, requestID) {
		return
	}

	group, err := h.service.Create(ctx, in, middleware.Actor(ctx))
	if err != nil {
		h.logger.Warn("failed to create group",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, group)
}

// HandleUpdate handles PATCH /api/v1/groups/{id}
func (h *GroupHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in groups.UpdateInput
	if !decodeRequest(w, r, &in, h.logger, requestID) {
		return
	}

	group, err := h.service.Update(ctx, id, in, middleware.Actor(ctx))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, group)
}

// HandleDelete handles DELETE /api/v1/groups/{id}
func (h *GroupHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id, middleware.Actor(ctx)); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleAddMembers handles POST /api/v1/groups/{id}/members
func (h *GroupHandler) HandleAddMembers(w http.ResponseWriter, r *http.Request) {
	h.changeMembers(w, r, h.service.AddMembers)
}

// HandleRemoveMembers handles DELETE /api/v1/groups/{id}/members
func (h *GroupHandler) HandleRemoveMembers(w http.ResponseWriter, r *http.Request) {
	h.changeMembers(w, r, h.service.RemoveMembers)
}

func (h *GroupHandler) changeMembers(w http.ResponseWriter, r *http.Request,
	change func(ctx context.Context, id int64, licenseIDs []int64, actor string) (*models.GroupDetail, error)) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req GroupMembersRequest
	if !decodeRequest(w, r, &req, h.logger, requestID) {
		return
	}

	group, err := change(ctx, id, req.LicenseIDs, middleware.Actor(ctx))
	if err != nil {
		h.logger.Warn("failed to change group members",
			zap.String("request_id", requestID),
			zap.Int64("group_id", id),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, group)
}
