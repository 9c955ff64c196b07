package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services/org"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// CreateCompanyRequest represents a new company
type CreateCompanyRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// CreateUnitRequest represents a new org unit
type CreateUnitRequest struct {
	Name      string `json:"name" validate:"required,max=255"`
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
	ParentID  *int64 `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
}

// OrgService defines the organization operations used by the HTTP layer
type OrgService interface {
	ListCompanies(ctx context.Context) ([]*models.OrgCompany, error)
	CreateCompany(ctx context.Context, name string) (*models.OrgCompany, error)
	ListUnits(ctx context.Context, filter models.UnitFilter) ([]*models.OrgUnit, error)
	CreateUnit(ctx context.Context, input org.UnitInput) (*models.OrgUnit, error)
}

// OrgHandler handles companies and org units
type OrgHandler struct {
	service OrgService
	logger  *zap.Logger
}

// NewOrgHandler creates a new OrgHandler
func NewOrgHandler(service OrgService, logger *zap.Logger) *OrgHandler {
	return &OrgHandler{service: service, logger: logger}
}

// HandleListCompanies handles GET /api/v1/org/companies
func (h *OrgHandler) HandleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.ListCompanies(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, companies)
}

// HandleCreateCompany handles POST /api/v1/org/companies
func (h *OrgHandler) HandleCreateCompany(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req CreateCompanyRequest
	if !decodeRequest(w, r, &req, h.logger, requestID) {
		return
	}

	company, err := h.service.CreateCompany(ctx, req.Name)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("company created",
		zap.String("request_id", requestID),
		zap.Int64("company_id", company.ID))
	_ = utils.WriteCreated(w, company)
}

// HandleListUnits handles GET /api/v1/org/units?companyId=&parentId=.
// parentId=null restricts the listing to top-level units.
func (h *OrgHandler) HandleListUnits(w http.ResponseWriter, r *http.Request) {
	var filter models.UnitFilter

	companyID, ok, err := utils.QueryInt64(r, "companyId")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if ok {
		filter.CompanyID = &companyID
	}

	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("parentId")), "null") {
		filter.RootsOnly = true
	} else {
		parentID, ok, err := utils.QueryInt64(r, "parentId")
		if err != nil {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
			return
		}
		if ok {
			filter.ParentID = &parentID
		}
	}

	units, err := h.service.ListUnits(r.Context(), filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, units)
}

// HandleCreateUnit handles POST /api/v1/org/units
func (h *OrgHandler) HandleCreateUnit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req CreateUnitRequest
	if !decodeRequest(w, r, &req, h.logger, requestID) {
		return
	}

	unit, err := h.service.CreateUnit(ctx, org.UnitInput{
		Name:      req.Name,
		CompanyID: req.CompanyID,
		ParentID:  req.ParentID,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, unit)
}
