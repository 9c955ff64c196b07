package models

import "time"

// LicenseSeat is one countable unit of a seat-tracked license
type LicenseSeat struct {
	ID        int64     `json:"id" db:"id"`
	LicenseID int64     `json:"license_id" db:"license_id"`
	Key       *string   `json:"key,omitempty" db:"key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the LicenseSeat model
func (LicenseSeat) TableName() string {
	return "license_seats"
}

// HasKey returns true if a key is stored on the seat
func (s *LicenseSeat) HasKey() bool {
	return s.Key != nil && *s.Key != ""
}

// SeatUsage is a seat with the number of active assignments holding it
type SeatUsage struct {
	LicenseSeat
	ActiveAssignments int `json:"active_assignments" db:"active_assignments"`
}

// IsAssigned returns true if any active assignment holds the seat
func (s *SeatUsage) IsAssigned() bool {
	return s.ActiveAssignments > 0
}

// SeatKeyOwner identifies the seat and license holding a key
type SeatKeyOwner struct {
	SeatID      int64  `json:"seat_id"`
	LicenseID   int64  `json:"license_id"`
	LicenseName string `json:"license_name"`
}
