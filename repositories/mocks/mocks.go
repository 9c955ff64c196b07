// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
)

// TxManager runs fn directly with a no-op Tx
type TxManager struct{}

func (m *TxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return &Tx{ctx: ctx}, nil
}

func (m *TxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return fn(ctx, &Tx{ctx: ctx})
}

// Tx is a no-op transaction
type Tx struct {
	ctx context.Context
}

func (t *Tx) Commit() error            { return nil }
func (t *Tx) Rollback() error          { return nil }
func (t *Tx) Context() context.Context { return t.ctx }

// LicenseRepository mocks repositories.LicenseRepository
type LicenseRepository struct {
	mock.Mock
}

func (m *LicenseRepository) Create(ctx context.Context, license *models.License) error {
	args := m.Called(ctx, license)
	return args.Error(0)
}

func (m *LicenseRepository) GetByID(ctx context.Context, id int64) (*models.License, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.License), args.Error(1)
}

func (m *LicenseRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.License, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.License), args.Error(1)
}

func (m *LicenseRepository) GetByName(ctx context.Context, name string) (*models.License, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.License), args.Error(1)
}

func (m *LicenseRepository) FindByKeys(ctx context.Context, keys []string) (map[string]*models.License, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.License), args.Error(1)
}

func (m *LicenseRepository) List(ctx context.Context) ([]*models.LicenseSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LicenseSummary), args.Error(1)
}

func (m *LicenseRepository) ListAll(ctx context.Context) ([]*models.License, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.License), args.Error(1)
}

func (m *LicenseRepository) Update(ctx context.Context, license *models.License) error {
	args := m.Called(ctx, license)
	return args.Error(0)
}

func (m *LicenseRepository) UpdateRenewalDate(ctx context.Context, id int64, renewalDate *time.Time) error {
	args := m.Called(ctx, id, renewalDate)
	return args.Error(0)
}

func (m *LicenseRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// SeatRepository mocks repositories.SeatRepository
type SeatRepository struct {
	mock.Mock
}

func (m *SeatRepository) ListUsage(ctx context.Context, licenseID int64) ([]*models.SeatUsage, error) {
	args := m.Called(ctx, licenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SeatUsage), args.Error(1)
}

func (m *SeatRepository) CreateBatch(ctx context.Context, licenseID int64, count int) error {
	args := m.Called(ctx, licenseID, count)
	return args.Error(0)
}

func (m *SeatRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *SeatRepository) DeleteByLicense(ctx context.Context, licenseID int64) (int64, error) {
	args := m.Called(ctx, licenseID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SeatRepository) GetByID(ctx context.Context, id int64) (*models.LicenseSeat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LicenseSeat), args.Error(1)
}

func (m *SeatRepository) FindKeyOwner(ctx context.Context, key string, excludeSeatID *int64) (*models.SeatKeyOwner, error) {
	args := m.Called(ctx, key, excludeSeatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SeatKeyOwner), args.Error(1)
}

func (m *SeatRepository) FindKeyOwners(ctx context.Context, keys []string) (map[string]*models.SeatKeyOwner, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.SeatKeyOwner), args.Error(1)
}

func (m *SeatRepository) UpdateKey(ctx context.Context, id int64, key *string) error {
	args := m.Called(ctx, id, key)
	return args.Error(0)
}

func (m *SeatRepository) FindFreeSeat(ctx context.Context, licenseID int64) (*models.LicenseSeat, error) {
	args := m.Called(ctx, licenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LicenseSeat), args.Error(1)
}

func (m *SeatRepository) ListEmpty(ctx context.Context, licenseID int64) ([]*models.LicenseSeat, error) {
	args := m.Called(ctx, licenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LicenseSeat), args.Error(1)
}

func (m *SeatRepository) CountAssigned(ctx context.Context, licenseID int64) (int, error) {
	args := m.Called(ctx, licenseID)
	return args.Int(0), args.Error(1)
}

func (m *SeatRepository) CountByLicense(ctx context.Context, licenseID int64) (int, error) {
	args := m.Called(ctx, licenseID)
	return args.Int(0), args.Error(1)
}

// EmployeeRepository mocks repositories.EmployeeRepository
type EmployeeRepository struct {
	mock.Mock
}

func (m *EmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	args := m.Called(ctx, employee)
	return args.Error(0)
}

func (m *EmployeeRepository) GetByID(ctx context.Context, id int64) (*models.Employee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Employee), args.Error(1)
}

func (m *EmployeeRepository) GetByEmail(ctx context.Context, email string) (*models.Employee, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Employee), args.Error(1)
}

func (m *EmployeeRepository) List(ctx context.Context) ([]*models.EmployeeSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EmployeeSummary), args.Error(1)
}

func (m *EmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	args := m.Called(ctx, employee)
	return args.Error(0)
}

func (m *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// AssignmentRepository mocks repositories.AssignmentRepository
type AssignmentRepository struct {
	mock.Mock
}

func (m *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *AssignmentRepository) GetByID(ctx context.Context, id int64) (*models.Assignment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assignment), args.Error(1)
}

func (m *AssignmentRepository) List(ctx context.Context) ([]*models.AssignmentDetail, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AssignmentDetail), args.Error(1)
}

func (m *AssignmentRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]*models.AssignmentDetail, error) {
	args := m.Called(ctx, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AssignmentDetail), args.Error(1)
}

func (m *AssignmentRepository) ListByLicense(ctx context.Context, licenseID int64) ([]*models.AssignmentDetail, error) {
	args := m.Called(ctx, licenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AssignmentDetail), args.Error(1)
}

func (m *AssignmentRepository) FindActive(ctx context.Context, licenseID, employeeID int64) (*models.Assignment, error) {
	args := m.Called(ctx, licenseID, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assignment), args.Error(1)
}

func (m *AssignmentRepository) CountActive(ctx context.Context, licenseID int64) (int, error) {
	args := m.Called(ctx, licenseID)
	return args.Int(0), args.Error(1)
}

func (m *AssignmentRepository) MarkReturned(ctx context.Context, id int64, returnedAt time.Time) error {
	args := m.Called(ctx, id, returnedAt)
	return args.Error(0)
}

func (m *AssignmentRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *AssignmentRepository) CreateHistory(ctx context.Context, history *models.AssignmentHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

// GroupRepository mocks repositories.GroupRepository
type GroupRepository struct {
	mock.Mock
}

func (m *GroupRepository) Create(ctx context.Context, group *models.LicenseGroup) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *GroupRepository) GetByID(ctx context.Context, id int64) (*models.LicenseGroup, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LicenseGroup), args.Error(1)
}

func (m *GroupRepository) GetByName(ctx context.Context, name string) (*models.LicenseGroup, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LicenseGroup), args.Error(1)
}

func (m *GroupRepository) List(ctx context.Context) ([]*models.GroupSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GroupSummary), args.Error(1)
}

func (m *GroupRepository) ListDefault(ctx context.Context) ([]*models.LicenseGroup, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LicenseGroup), args.Error(1)
}

func (m *GroupRepository) Update(ctx context.Context, group *models.LicenseGroup) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *GroupRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *GroupRepository) ListMembers(ctx context.Context, groupID int64) ([]*models.License, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.License), args.Error(1)
}

func (m *GroupRepository) AddMembers(ctx context.Context, groupID int64, licenseIDs []int64) (int64, error) {
	args := m.Called(ctx, groupID, licenseIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *GroupRepository) RemoveMembers(ctx context.Context, groupID int64, licenseIDs []int64) (int64, error) {
	args := m.Called(ctx, groupID, licenseIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *GroupRepository) ReplaceMembers(ctx context.Context, groupID int64, licenseIDs []int64) error {
	args := m.Called(ctx, groupID, licenseIDs)
	return args.Error(0)
}

// AuditRepository mocks repositories.AuditRepository
type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepository) Search(ctx context.Context, filter models.HistoryFilter) ([]*models.AuditLog, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.AuditLog), args.Int(1), args.Error(2)
}

// UserRepository mocks repositories.UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *UserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *UserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *UserRepository) UpsertAdmin(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// SessionRepository mocks repositories.SessionRepository
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *SessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// OrgRepository mocks repositories.OrgRepository
type OrgRepository struct {
	mock.Mock
}

func (m *OrgRepository) ListCompanies(ctx context.Context) ([]*models.OrgCompany, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OrgCompany), args.Error(1)
}

func (m *OrgRepository) CreateCompany(ctx context.Context, company *models.OrgCompany) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}

func (m *OrgRepository) GetCompany(ctx context.Context, id int64) (*models.OrgCompany, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrgCompany), args.Error(1)
}

func (m *OrgRepository) ListUnits(ctx context.Context, filter models.UnitFilter) ([]*models.OrgUnit, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OrgUnit), args.Error(1)
}

func (m *OrgRepository) CreateUnit(ctx context.Context, unit *models.OrgUnit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

var (
	_ repositories.TransactionManager   = (*TxManager)(nil)
	_ repositories.LicenseRepository    = (*LicenseRepository)(nil)
	_ repositories.SeatRepository       = (*SeatRepository)(nil)
	_ repositories.EmployeeRepository   = (*EmployeeRepository)(nil)
	_ repositories.AssignmentRepository = (*AssignmentRepository)(nil)
	_ repositories.GroupRepository      = (*GroupRepository)(nil)
	_ repositories.AuditRepository      = (*AuditRepository)(nil)
	_ repositories.UserRepository       = (*UserRepository)(nil)
	_ repositories.SessionRepository    = (*SessionRepository)(nil)
	_ repositories.OrgRepository        = (*OrgRepository)(nil)
)
