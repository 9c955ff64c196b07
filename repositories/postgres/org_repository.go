package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"go.uber.org/zap"
)

// OrgRepository implements the repositories.OrgRepository interface
type OrgRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewOrgRepository creates a new organization structure repository
func NewOrgRepository(db *DB, logger *zap.Logger) repositories.OrgRepository {
	return &OrgRepository{
		db:     db,
		logger: logger,
	}
}

// ListCompanies retrieves all companies ordered by name
func (r *OrgRepository) ListCompanies(ctx context.Context) ([]*models.OrgCompany, error) {
	query := `SELECT id, name, created_at, updated_at FROM org_companies ORDER BY name`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []*models.OrgCompany
	for rows.Next() {
		c := &models.OrgCompany{}
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating company rows: %w", err)
	}

	return companies, nil
}

// CreateCompany creates a new company
func (r *OrgRepository) CreateCompany(ctx context.Context, c *models.OrgCompany) error {
	query := `
		INSERT INTO org_companies (name, created_at, updated_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, c.Name, c.CreatedAt, c.UpdatedAt).Scan(&c.ID); err != nil {
		return wrapWriteError("create company", err)
	}

	r.logger.Debug("company created", zap.Int64("id", c.ID), zap.String("name", c.Name))
	return nil
}

// GetCompany retrieves a company by ID
func (r *OrgRepository) GetCompany(ctx context.Context, id int64) (*models.OrgCompany, error) {
	query := `SELECT id, name, created_at, updated_at FROM org_companies WHERE id = $1`

	c := &models.OrgCompany{}
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, wrapReadError("company", id, err)
	}
	return c, nil
}

// ListUnits retrieves org units matching filter ordered by name
func (r *OrgRepository) ListUnits(ctx context.Context, filter models.UnitFilter) ([]*models.OrgUnit, error) {
	var conds []string
	var args []interface{}

	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		conds = append(conds, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if filter.ParentID != nil {
		args = append(args, *filter.ParentID)
		conds = append(conds, fmt.Sprintf("parent_id = $%d", len(args)))
	} else if filter.RootsOnly {
		conds = append(conds, "parent_id IS NULL")
	}

	query := `SELECT id, name, company_id, parent_id, created_at, updated_at FROM org_units`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name, id"

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query org units: %w", err)
	}
	defer rows.Close()

	var units []*models.OrgUnit
	for rows.Next() {
		u := &models.OrgUnit{}
		if err := rows.Scan(&u.ID, &u.Name, &u.CompanyID, &u.ParentID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan org unit: %w", err)
		}
		units = append(units, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating org unit rows: %w", err)
	}

	return units, nil
}

// CreateUnit creates a new org unit
func (r *OrgRepository) CreateUnit(ctx context.Context, u *models.OrgUnit) error {
	query := `
		INSERT INTO org_units (name, company_id, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		u.Name, u.CompanyID, u.ParentID, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		return wrapWriteError("create org unit", err)
	}

	r.logger.Debug("org unit created", zap.Int64("id", u.ID), zap.String("name", u.Name))
	return nil
}
