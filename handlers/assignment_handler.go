package handlers

import (
	"context"
	"net/http"

	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services/assignments"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// AssignRequest lists the licenses to give an employee
type AssignRequest struct {
	LicenseIDs []int64 `json:"license_ids" validate:"dive,gt=0"`
}

// UnassignRequest lists the assignments an employee returns
type UnassignRequest struct {
	AssignmentIDs []int64 `json:"assignment_ids" validate:"dive,gt=0"`
}

// AssignmentService defines the assignment operations used by the HTTP layer
type AssignmentService interface {
	List(ctx context.Context) ([]*models.AssignmentDetail, error)
	Assign(ctx context.Context, employeeID int64, licenseIDs []int64, actor string) (*assignments.AssignResult, error)
	Unassign(ctx context.Context, employeeID int64, assignmentIDs []int64, actor string) (*assignments.UnassignResult, error)
	Return(ctx context.Context, id int64, actor string) (*models.Assignment, error)
	Delete(ctx context.Context, id int64, actor string) error
}

// AssignmentHandler handles assignment HTTP requests
type AssignmentHandler struct {
	service AssignmentService
	logger  *zap.Logger
}

// NewAssignmentHandler creates a new AssignmentHandler
func NewAssignmentHandler(service AssignmentService, logger *zap.Logger) *AssignmentHandler {
	return &AssignmentHandler{service: service, logger: logger}
}

// HandleList handles GET /api/v1/assignments
func (h *AssignmentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, list)
}

// HandleAssign handles POST /api/v1/employees/{id}/assignments
func (h *AssignmentHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	employeeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req AssignRequest
	if !decodeRequest(w, r, &req, h.logger, requestID) {
		return
	}

	result, err := h.service.Assign(ctx, employeeID, req.LicenseIDs, middleware.Actor(ctx))
	if err != nil {
		h.logger.Warn("failed to assign licenses",
			zap.String("request_id", requestID),
			zap.Int64("employee_id", employeeID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("licenses assigned",
		zap.String("request_id", requestID),
		zap.Int64("employee_id", employeeID),
		zap.Int("assigned", result.Assigned),
		zap.Int("skipped", len(result.Skipped)))

	_ = utils.WriteOK(w, result)
}

// HandleUnassign handles POST /api/v1/employees/{id}/unassign
func (h *AssignmentHandler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	employeeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UnassignRequest
	if !decodeRequest(w, r, &req, h.logger, requestID) {
		return
	}

	result, err := h.service.Unassign(ctx, employeeID, req.AssignmentIDs, middleware.Actor(ctx))
	if err != nil {
		h.logger.Warn("failed to return assignments",
			zap.String("request_id", requestID),
			zap.Int64("employee_id", employeeID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, result)
}

// HandleReturn handles POST /api/v1/assignments/{id}/return
func (h *AssignmentHandler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	assignment, err := h.service.Return(ctx, id, middleware.Actor(ctx))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, assignment)
}

// HandleDelete handles DELETE /api/v1/assignments/{id}
func (h *AssignmentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id, middleware.Actor(ctx)); err != nil {
		h.logger.Warn("failed to delete assignment",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Int64("assignment_id", id),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}
