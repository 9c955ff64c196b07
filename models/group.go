package models

import "time"

// LicenseGroup is a named bundle of licenses
type LicenseGroup struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	IsDefault   bool      `json:"is_default" db:"is_default"` // members auto-assigned to new employees
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the LicenseGroup model
func (LicenseGroup) TableName() string {
	return "license_groups"
}

// NewLicenseGroup creates a new LicenseGroup instance
func NewLicenseGroup(name string, description *string, isDefault bool) *LicenseGroup {
	now := time.Now()
	return &LicenseGroup{
		Name:        name,
		Description: description,
		IsDefault:   isDefault,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// GroupSummary is a group with its member count
type GroupSummary struct {
	LicenseGroup
	LicenseCount int `json:"license_count" db:"license_count"`
}

// GroupDetail is a group with its member licenses
type GroupDetail struct {
	LicenseGroup
	Licenses []*License `json:"licenses"`
}
