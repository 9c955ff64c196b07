package models

import "time"

// Employee represents a person licenses can be assigned to
type Employee struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Department string    `json:"department" db:"department"`
	Email      *string   `json:"email,omitempty" db:"email"`
	Title      *string   `json:"title,omitempty" db:"title"`
	CompanyID  *int64    `json:"company_id,omitempty" db:"company_id"`
	OrgUnitID  *int64    `json:"org_unit_id,omitempty" db:"org_unit_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Employee model
func (Employee) TableName() string {
	return "employees"
}

// NewEmployee creates a new Employee instance
func NewEmployee(name, department string, email *string) *Employee {
	now := time.Now()
	return &Employee{
		Name:       name,
		Department: department,
		Email:      email,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// EmployeeSummary is an employee with the count of licenses currently held
type EmployeeSummary struct {
	Employee
	ActiveAssignments int `json:"active_assignments" db:"active_assignments"`
}

// EmployeeDetail is an employee with the full assignment history
type EmployeeDetail struct {
	Employee
	Assignments []*AssignmentDetail `json:"assignments"`
}
