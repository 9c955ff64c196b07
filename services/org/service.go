package org

import (
	"context"
	"strings"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/services"
	"go.uber.org/zap"
)

// UnitInput holds the fields of a new org unit
type UnitInput struct {
	Name      string
	CompanyID int64
	ParentID  *int64
}

// Service manages companies and their unit trees
type Service struct {
	org    repositories.OrgRepository
	logger *zap.Logger
}

// NewService creates a new org Service
func NewService(org repositories.OrgRepository, logger *zap.Logger) *Service {
	return &Service{org: org, logger: logger}
}

// ListCompanies returns companies ordered by name, each with its unit tree
func (s *Service) ListCompanies(ctx context.Context) ([]*models.OrgCompany, error) {
	companies, err := s.org.ListCompanies(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list companies", err)
	}

	units, err := s.org.ListUnits(ctx, models.UnitFilter{})
	if err != nil {
		return nil, services.WrapInternal("failed to list org units", err)
	}

	roots := make(map[int64][]*models.OrgUnit)
	for _, u := range buildTree(units) {
		roots[u.CompanyID] = append(roots[u.CompanyID], u)
	}
	for _, c := range companies {
		c.Units = roots[c.ID]
		if c.Units == nil {
			c.Units = []*models.OrgUnit{}
		}
	}
	return companies, nil
}

// CreateCompany adds a company with a unique name
func (s *Service) CreateCompany(ctx context.Context, name string) (*models.OrgCompany, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Validation("company name is required")
	}

	company := models.NewOrgCompany(name)
	if err := s.org.CreateCompany(ctx, company); err != nil {
		return nil, services.MapRepoError(err, nil, services.Conflict("company %q already exists", name), "failed to create company")
	}
	company.Units = []*models.OrgUnit{}

	s.logger.Info("company created", zap.Int64("company_id", company.ID), zap.String("name", name))
	return company, nil
}

// ListUnits returns the units matching filter ordered by name, each with its subtree
func (s *Service) ListUnits(ctx context.Context, filter models.UnitFilter) ([]*models.OrgUnit, error) {
	matched, err := s.org.ListUnits(ctx, filter)
	if err != nil {
		return nil, services.WrapInternal("failed to list org units", err)
	}
	if len(matched) == 0 {
		return []*models.OrgUnit{}, nil
	}

	// Subtrees may span the whole company, so load it unfiltered.
	all, err := s.org.ListUnits(ctx, models.UnitFilter{CompanyID: filter.CompanyID})
	if err != nil {
		return nil, services.WrapInternal("failed to list org units", err)
	}
	buildTree(all)

	byID := make(map[int64]*models.OrgUnit, len(all))
	for _, u := range all {
		byID[u.ID] = u
	}

	result := make([]*models.OrgUnit, 0, len(matched))
	for _, u := range matched {
		if node, ok := byID[u.ID]; ok {
			result = append(result, node)
		} else {
			result = append(result, u)
		}
	}
	return result, nil
}

// CreateUnit adds a unit under a company, optionally below a parent unit of the same company
func (s *Service) CreateUnit(ctx context.Context, input UnitInput) (*models.OrgUnit, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, services.Validation("unit name is required")
	}
	if input.CompanyID == 0 {
		return nil, services.Validation("companyId is required")
	}

	if _, err := s.org.GetCompany(ctx, input.CompanyID); err != nil {
		return nil, services.MapRepoError(err, services.ErrCompanyNotFound, nil, "failed to load company")
	}

	if input.ParentID != nil {
		parents, err := s.org.ListUnits(ctx, models.UnitFilter{CompanyID: &input.CompanyID})
		if err != nil {
			return nil, services.WrapInternal("failed to list org units", err)
		}
		found := false
		for _, p := range parents {
			if p.ID == *input.ParentID {
				found = true
				break
			}
		}
		if !found {
			return nil, services.NotFound("parent unit %d not found in company %d", *input.ParentID, input.CompanyID)
		}
	}

	unit := models.NewOrgUnit(name, input.CompanyID, input.ParentID)
	if err := s.org.CreateUnit(ctx, unit); err != nil {
		return nil, services.MapRepoError(err, nil, services.Conflict("unit %q already exists here", name), "failed to create org unit")
	}

	s.logger.Info("org unit created",
		zap.Int64("unit_id", unit.ID),
		zap.Int64("company_id", unit.CompanyID),
		zap.String("name", name))
	return unit, nil
}

// buildTree links units to their parents and returns the roots.
// Input order is preserved among siblings.
func buildTree(units []*models.OrgUnit) []*models.OrgUnit {
	byID := make(map[int64]*models.OrgUnit, len(units))
	for _, u := range units {
		u.Children = nil
		byID[u.ID] = u
	}

	var roots []*models.OrgUnit
	for _, u := range units {
		if u.ParentID != nil {
			if parent, ok := byID[*u.ParentID]; ok {
				parent.Children = append(parent.Children, u)
				continue
			}
		}
		roots = append(roots, u)
	}
	return roots
}
