package handlers

import (
	"context"
	"net/http"

	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services/employees"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// EmployeeService defines the employee operations used by the HTTP layer
type EmployeeService interface {
	List(ctx context.Context) ([]*models.EmployeeSummary, error)
	Get(ctx context.Context, id int64) (*models.EmployeeDetail, error)
	Create(ctx context.Context, in employees.CreateInput, actor string) (*employees.CreateResult, error)
	Update(ctx context.Context, id int64, in employees.UpdateInput, actor string) (*models.Employee, error)
	Delete(ctx context.Context, id int64, actor string) error
}

// EmployeeHandler handles employee HTTP requests
type EmployeeHandler struct {
	service EmployeeService
	logger  *zap.Logger
}

// NewEmployeeHandler creates a new EmployeeHandler
func NewEmployeeHandler(service EmployeeService, logger *zap.Logger) *EmployeeHandler {
	return &EmployeeHandler{service: service, logger: logger}
}

// HandleList handles GET /api/v1/employees
func (h *EmployeeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, list)
}

// HandleGet handles GET /api/v1/employees/{id}
func (h *EmployeeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, detail)
}

// HandleCreate handles POST /api/v1/employees
func (h *EmployeeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var in employees.CreateInput
	if !decodeRequest(w, r, &in, h.logger, requestID) {
		return
	}

	result, err := h.service.Create(ctx, in, middleware.Actor(ctx))
	if err != nil {
		h.logger.Warn("failed to create employee",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("employee created",
		zap.String("request_id", requestID),
		zap.Int64("employee_id", result.Employee.ID),
		zap.Int("auto_assigned", len(result.AutoAssigned)))

	_ = utils.WriteCreated(w, result)
}

// HandleUpdate handles PATCH /api/v1/employees/{id}
func (h *EmployeeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in employees.UpdateInput
	if !decodeRequest(w, r, &in, h.logger, requestID) {
		return
	}

	employee, err := h.service.Update(ctx, id, in, middleware.Actor(ctx))
	if err != nil {
		h.logger.Warn("failed to update employee",
			zap.String("request_id", requestID),
			zap.Int64("employee_id", id),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, employee)
}

// HandleDelete handles DELETE /api/v1/employees/{id}
func (h *EmployeeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id, middleware.Actor(ctx)); err != nil {
		h.logger.Warn("failed to delete employee",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Int64("employee_id", id),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}
