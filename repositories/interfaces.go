package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/license-inventory/models"
)

var (
	// ErrNotFound is wrapped by repositories when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is wrapped by repositories on unique constraint violations
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidReference is wrapped by repositories on foreign key violations
	ErrInvalidReference = errors.New("referenced record does not exist")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// The context passed to fn carries the transaction; repositories called
	// with it run inside the transaction.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	Context() context.Context
}

// LicenseRepository handles license data operations
type LicenseRepository interface {
	// Create inserts a license and sets its ID
	Create(ctx context.Context, license *models.License) error

	GetByID(ctx context.Context, id int64) (*models.License, error)

	// GetByIDForUpdate locks the license row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.License, error)

	GetByName(ctx context.Context, name string) (*models.License, error)

	// FindByKeys returns volume licenses holding any of the given keys, keyed by key
	FindByKeys(ctx context.Context, keys []string) (map[string]*models.License, error)

	// List returns licenses newest first with assignment counters
	List(ctx context.Context) ([]*models.LicenseSummary, error)

	// ListAll returns every license without counters
	ListAll(ctx context.Context) ([]*models.License, error)

	Update(ctx context.Context, license *models.License) error

	// UpdateRenewalDate stores a recomputed renewal date
	UpdateRenewalDate(ctx context.Context, id int64, renewalDate *time.Time) error

	Delete(ctx context.Context, id int64) error
}

// SeatRepository handles license seat data operations
type SeatRepository interface {
	// ListUsage returns the license's seats ordered by id with active assignment counts
	ListUsage(ctx context.Context, licenseID int64) ([]*models.SeatUsage, error)

	// CreateBatch inserts count keyless seats
	CreateBatch(ctx context.Context, licenseID int64, count int) error

	// DeleteByIDs deletes the given seats
	DeleteByIDs(ctx context.Context, ids []int64) error

	// DeleteByLicense deletes every seat of a license
	DeleteByLicense(ctx context.Context, licenseID int64) (int64, error)

	GetByID(ctx context.Context, id int64) (*models.LicenseSeat, error)

	// FindKeyOwner returns the seat holding key, ignoring excludeSeatID when set
	FindKeyOwner(ctx context.Context, key string, excludeSeatID *int64) (*models.SeatKeyOwner, error)

	// FindKeyOwners returns the owners of any of the given keys, keyed by key
	FindKeyOwners(ctx context.Context, keys []string) (map[string]*models.SeatKeyOwner, error)

	UpdateKey(ctx context.Context, id int64, key *string) error

	// FindFreeSeat locks and returns an unassigned seat, keyed seats first
	FindFreeSeat(ctx context.Context, licenseID int64) (*models.LicenseSeat, error)

	// ListEmpty returns keyless seats ordered by id
	ListEmpty(ctx context.Context, licenseID int64) ([]*models.LicenseSeat, error)

	// CountAssigned counts seats held by an active assignment
	CountAssigned(ctx context.Context, licenseID int64) (int, error)

	// CountByLicense counts all seats of a license
	CountByLicense(ctx context.Context, licenseID int64) (int, error)
}

// EmployeeRepository handles employee data operations
type EmployeeRepository interface {
	Create(ctx context.Context, employee *models.Employee) error
	GetByID(ctx context.Context, id int64) (*models.Employee, error)
	GetByEmail(ctx context.Context, email string) (*models.Employee, error)

	// List returns employees ordered by name with active assignment counts
	List(ctx context.Context) ([]*models.EmployeeSummary, error)

	Update(ctx context.Context, employee *models.Employee) error
	Delete(ctx context.Context, id int64) error
}

// AssignmentRepository handles assignment and assignment history data operations
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id int64) (*models.Assignment, error)

	// List returns every assignment with license and employee, newest first
	List(ctx context.Context) ([]*models.AssignmentDetail, error)

	ListByEmployee(ctx context.Context, employeeID int64) ([]*models.AssignmentDetail, error)
	ListByLicense(ctx context.Context, licenseID int64) ([]*models.AssignmentDetail, error)

	// FindActive returns the employee's active assignment of a license
	FindActive(ctx context.Context, licenseID, employeeID int64) (*models.Assignment, error)

	// CountActive counts active assignments of a license
	CountActive(ctx context.Context, licenseID int64) (int, error)

	// MarkReturned sets the returned date of an active assignment
	MarkReturned(ctx context.Context, id int64, returnedAt time.Time) error

	Delete(ctx context.Context, id int64) error

	// CreateHistory appends an assignment history row
	CreateHistory(ctx context.Context, history *models.AssignmentHistory) error
}

// GroupRepository handles license group data operations
type GroupRepository interface {
	Create(ctx context.Context, group *models.LicenseGroup) error
	GetByID(ctx context.Context, id int64) (*models.LicenseGroup, error)
	GetByName(ctx context.Context, name string) (*models.LicenseGroup, error)

	// List returns groups ordered by name with member counts
	List(ctx context.Context) ([]*models.GroupSummary, error)

	// ListDefault returns groups whose licenses are auto-assigned
	ListDefault(ctx context.Context) ([]*models.LicenseGroup, error)

	Update(ctx context.Context, group *models.LicenseGroup) error
	Delete(ctx context.Context, id int64) error

	// ListMembers returns the group's licenses ordered by name
	ListMembers(ctx context.Context, groupID int64) ([]*models.License, error)

	// AddMembers adds licenses, skipping existing memberships
	AddMembers(ctx context.Context, groupID int64, licenseIDs []int64) (int64, error)

	RemoveMembers(ctx context.Context, groupID int64, licenseIDs []int64) (int64, error)

	// ReplaceMembers sets the member list to exactly licenseIDs
	ReplaceMembers(ctx context.Context, groupID int64, licenseIDs []int64) error
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// Search returns a page of entries matching filter and the total match count
	Search(ctx context.Context, filter models.HistoryFilter) ([]*models.AuditLog, int, error)
}

// UserRepository handles console user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// List returns users ordered by creation time
	List(ctx context.Context) ([]*models.User, error)

	// Update updates name, email and role
	Update(ctx context.Context, user *models.User) error

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error

	// UpsertAdmin creates or resets the named admin account
	UpsertAdmin(ctx context.Context, user *models.User) error
}

// SessionRepository handles login session data operations
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// OrgRepository handles company and org unit data operations
type OrgRepository interface {
	// ListCompanies returns companies ordered by name
	ListCompanies(ctx context.Context) ([]*models.OrgCompany, error)

	CreateCompany(ctx context.Context, company *models.OrgCompany) error
	GetCompany(ctx context.Context, id int64) (*models.OrgCompany, error)

	// ListUnits returns units matching filter ordered by name
	ListUnits(ctx context.Context, filter models.UnitFilter) ([]*models.OrgUnit, error)

	CreateUnit(ctx context.Context, unit *models.OrgUnit) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Licenses    LicenseRepository
	Seats       SeatRepository
	Employees   EmployeeRepository
	Assignments AssignmentRepository
	Groups      GroupRepository
	AuditLogs   AuditRepository
	Users       UserRepository
	Sessions    SessionRepository
	Org         OrgRepository
}
