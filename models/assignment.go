package models

import "time"

// HistoryAction is the kind of change recorded in assignment history
type HistoryAction string

const (
	HistoryAssigned HistoryAction = "ASSIGNED"
	HistoryReturned HistoryAction = "RETURNED"
	HistoryRevoked  HistoryAction = "REVOKED"
)

// Assignment links a license (and optionally a seat) to an employee
type Assignment struct {
	ID           int64      `json:"id" db:"id"`
	LicenseID    int64      `json:"license_id" db:"license_id"`
	EmployeeID   int64      `json:"employee_id" db:"employee_id"`
	SeatID       *int64     `json:"seat_id,omitempty" db:"seat_id"`
	AssignedDate time.Time  `json:"assigned_date" db:"assigned_date"`
	ReturnedDate *time.Time `json:"returned_date,omitempty" db:"returned_date"`
	Reason       *string    `json:"reason,omitempty" db:"reason"`
}

// TableName returns the table name for the Assignment model
func (Assignment) TableName() string {
	return "assignments"
}

// NewAssignment creates an active assignment dated now
func NewAssignment(licenseID, employeeID int64, seatID *int64, reason string) *Assignment {
	a := &Assignment{
		LicenseID:    licenseID,
		EmployeeID:   employeeID,
		SeatID:       seatID,
		AssignedDate: time.Now(),
	}
	if reason != "" {
		a.Reason = &reason
	}
	return a
}

// IsActive returns true until the license is returned
func (a *Assignment) IsActive() bool {
	return a.ReturnedDate == nil
}

// AssignmentDetail is an assignment joined with its license, employee and seat
type AssignmentDetail struct {
	Assignment
	LicenseName        string      `json:"license_name" db:"license_name"`
	LicenseType        LicenseType `json:"license_type" db:"license_type"`
	EmployeeName       string      `json:"employee_name" db:"employee_name"`
	EmployeeEmail      *string     `json:"employee_email,omitempty" db:"employee_email"`
	EmployeeDepartment string      `json:"employee_department" db:"employee_department"`
	SeatKey            *string     `json:"seat_key,omitempty" db:"seat_key"`
}

// AssignmentHistory is an append-only record of assignment changes
type AssignmentHistory struct {
	ID           int64         `json:"id" db:"id"`
	AssignmentID *int64        `json:"assignment_id,omitempty" db:"assignment_id"`
	LicenseID    int64         `json:"license_id" db:"license_id"`
	EmployeeID   int64         `json:"employee_id" db:"employee_id"`
	Action       HistoryAction `json:"action" db:"action"`
	Reason       *string       `json:"reason,omitempty" db:"reason"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the AssignmentHistory model
func (AssignmentHistory) TableName() string {
	return "assignment_history"
}

// NewAssignmentHistory builds a history row for an assignment
func NewAssignmentHistory(a *Assignment, action HistoryAction, reason string) *AssignmentHistory {
	h := &AssignmentHistory{
		LicenseID:  a.LicenseID,
		EmployeeID: a.EmployeeID,
		Action:     action,
		CreatedAt:  time.Now(),
	}
	if a.ID != 0 {
		id := a.ID
		h.AssignmentID = &id
	}
	if reason != "" {
		h.Reason = &reason
	}
	return h
}
