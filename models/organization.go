package models

import "time"

// OrgCompany is a top-level company employees belong to
type OrgCompany struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	Units     []*OrgUnit `json:"units,omitempty"`
}

// TableName returns the table name for the OrgCompany model
func (OrgCompany) TableName() string {
	return "org_companies"
}

// NewOrgCompany creates a new OrgCompany instance
func NewOrgCompany(name string) *OrgCompany {
	now := time.Now()
	return &OrgCompany{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OrgUnit is a department node within a company
type OrgUnit struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	CompanyID int64      `json:"company_id" db:"company_id"`
	ParentID  *int64     `json:"parent_id,omitempty" db:"parent_id"` // nil for root units
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	Children  []*OrgUnit `json:"children,omitempty"`
}

// TableName returns the table name for the OrgUnit model
func (OrgUnit) TableName() string {
	return "org_units"
}

// NewOrgUnit creates a new OrgUnit instance
func NewOrgUnit(name string, companyID int64, parentID *int64) *OrgUnit {
	now := time.Now()
	return &OrgUnit{
		Name:      name,
		CompanyID: companyID,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UnitFilter narrows an org unit listing
type UnitFilter struct {
	CompanyID *int64
	ParentID  *int64
	RootsOnly bool // parent_id IS NULL
}
