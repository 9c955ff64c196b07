package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services/assignments"
	"github.com/upb/license-inventory/services/audit"
	"github.com/upb/license-inventory/services/auth"
	"github.com/upb/license-inventory/services/employees"
	"github.com/upb/license-inventory/services/groups"
	"github.com/upb/license-inventory/services/importer"
	"github.com/upb/license-inventory/services/licenses"
	"github.com/upb/license-inventory/services/org"
	"github.com/upb/license-inventory/services/renewal"
	"github.com/upb/license-inventory/services/seats"
	"github.com/upb/license-inventory/services/users"
)

// withURLParams attaches chi route parameters given as key/value pairs
func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func withClaims(r *http.Request, claims *auth.Claims) *http.Request {
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

func adminClaims() *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), Username: "admin", Role: models.RoleAdmin, SessionID: uuid.New()}
}

type MockAuthService struct{ mock.Mock }

func (m *MockAuthService) Login(ctx context.Context, username, password, ip string) (*auth.LoginResult, error) {
	args := m.Called(ctx, username, password, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.LoginResult), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockAuthService) Me(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	args := m.Called(ctx, claims)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockLicenseService struct{ mock.Mock }

func (m *MockLicenseService) List(ctx context.Context) ([]*models.LicenseSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LicenseSummary), args.Error(1)
}

func (m *MockLicenseService) Get(ctx context.Context, id int64) (*models.LicenseDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LicenseDetail), args.Error(1)
}

func (m *MockLicenseService) Create(ctx context.Context, in licenses.Input, actor string) (*models.License, error) {
	args := m.Called(ctx, in, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.License), args.Error(1)
}

func (m *MockLicenseService) Update(ctx context.Context, id int64, in licenses.Input, actor string) (*models.License, error) {
	args := m.Called(ctx, id, in, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.License), args.Error(1)
}

func (m *MockLicenseService) Delete(ctx context.Context, id int64, actor string) error {
	return m.Called(ctx, id, actor).Error(0)
}

type MockAssignmentService struct{ mock.Mock }

func (m *MockAssignmentService) List(ctx context.Context) ([]*models.AssignmentDetail, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AssignmentDetail), args.Error(1)
}

func (m *MockAssignmentService) Assign(ctx context.Context, employeeID int64, licenseIDs []int64, actor string) (*assignments.AssignResult, error) {
	args := m.Called(ctx, employeeID, licenseIDs, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assignments.AssignResult), args.Error(1)
}

func (m *MockAssignmentService) Unassign(ctx context.Context, employeeID int64, assignmentIDs []int64, actor string) (*assignments.UnassignResult, error) {
	args := m.Called(ctx, employeeID, assignmentIDs, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assignments.UnassignResult), args.Error(1)
}

func (m *MockAssignmentService) Return(ctx context.Context, id int64, actor string) (*models.Assignment, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assignment), args.Error(1)
}

func (m *MockAssignmentService) Delete(ctx context.Context, id int64, actor string) error {
	return m.Called(ctx, id, actor).Error(0)
}

type MockImporter struct{ mock.Mock }

func (m *MockImporter) Import(ctx context.Context, kind, filename string, size int64, r io.Reader, actor string) (*importer.Result, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(ctx, kind, filename, size, string(body), actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importer.Result), args.Error(1)
}

type MockOrgService struct{ mock.Mock }

func (m *MockOrgService) ListCompanies(ctx context.Context) ([]*models.OrgCompany, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OrgCompany), args.Error(1)
}

func (m *MockOrgService) CreateCompany(ctx context.Context, name string) (*models.OrgCompany, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrgCompany), args.Error(1)
}

func (m *MockOrgService) ListUnits(ctx context.Context, filter models.UnitFilter) ([]*models.OrgUnit, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OrgUnit), args.Error(1)
}

func (m *MockOrgService) CreateUnit(ctx context.Context, input org.UnitInput) (*models.OrgUnit, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrgUnit), args.Error(1)
}

type MockUserService struct{ mock.Mock }

func (m *MockUserService) List(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, input users.CreateInput) (*models.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, actorID, id uuid.UUID, input users.UpdateInput) (*models.User, error) {
	args := m.Called(ctx, actorID, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, id uuid.UUID, password string) error {
	return m.Called(ctx, id, password).Error(0)
}

func (m *MockUserService) ToggleActive(ctx context.Context, actorID, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, actorID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	return m.Called(ctx, actorID, id).Error(0)
}

type MockHistorySearcher struct{ mock.Mock }

func (m *MockHistorySearcher) Search(ctx context.Context, q audit.HistoryQuery) (*models.HistoryPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HistoryPage), args.Error(1)
}

type MockRenewalService struct{ mock.Mock }

func (m *MockRenewalService) SyncAll(ctx context.Context) (*renewal.SyncSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*renewal.SyncSummary), args.Error(1)
}

func (m *MockRenewalService) SyncRenewalDate(ctx context.Context, id int64) (*models.License, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.License), args.Bool(1), args.Error(2)
}

type MockSeatService struct{ mock.Mock }

func (m *MockSeatService) ListByLicense(ctx context.Context, licenseID int64) ([]*models.SeatUsage, error) {
	args := m.Called(ctx, licenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SeatUsage), args.Error(1)
}

func (m *MockSeatService) CheckKey(ctx context.Context, key string, excludeSeatID *int64) (*seats.KeyCheck, error) {
	args := m.Called(ctx, key, excludeSeatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seats.KeyCheck), args.Error(1)
}

func (m *MockSeatService) UpdateKey(ctx context.Context, seatID int64, key, actor string) (*models.LicenseSeat, error) {
	args := m.Called(ctx, seatID, key, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LicenseSeat), args.Error(1)
}

type MockEmployeeService struct{ mock.Mock }

func (m *MockEmployeeService) List(ctx context.Context) ([]*models.EmployeeSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EmployeeSummary), args.Error(1)
}

func (m *MockEmployeeService) Get(ctx context.Context, id int64) (*models.EmployeeDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmployeeDetail), args.Error(1)
}

func (m *MockEmployeeService) Create(ctx context.Context, in employees.CreateInput, actor string) (*employees.CreateResult, error) {
	args := m.Called(ctx, in, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*employees.CreateResult), args.Error(1)
}

func (m *MockEmployeeService) Update(ctx context.Context, id int64, in employees.UpdateInput, actor string) (*models.Employee, error) {
	args := m.Called(ctx, id, in, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Employee), args.Error(1)
}

func (m *MockEmployeeService) Delete(ctx context.Context, id int64, actor string) error {
	return m.Called(ctx, id, actor).Error(0)
}

type MockGroupService struct{ mock.Mock }

func (m *MockGroupService) List(ctx context.Context) ([]*models.GroupSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GroupSummary), args.Error(1)
}

func (m *MockGroupService) Get(ctx context.Context, id int64) (*models.GroupDetail, error) {
	return m.detail(m.Called(ctx, id))
}

func (m *MockGroupService) Create(ctx context.Context, in groups.CreateInput, actor string) (*models.GroupDetail, error) {
	return m.detail(m.Called(ctx, in, actor))
}

func (m *MockGroupService) Update(ctx context.Context, id int64, in groups.UpdateInput, actor string) (*models.GroupDetail, error) {
	return m.detail(m.Called(ctx, id, in, actor))
}

func (m *MockGroupService) Delete(ctx context.Context, id int64, actor string) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *MockGroupService) AddMembers(ctx context.Context, id int64, licenseIDs []int64, actor string) (*models.GroupDetail, error) {
	return m.detail(m.Called(ctx, id, licenseIDs, actor))
}

func (m *MockGroupService) RemoveMembers(ctx context.Context, id int64, licenseIDs []int64, actor string) (*models.GroupDetail, error) {
	return m.detail(m.Called(ctx, id, licenseIDs, actor))
}

func (m *MockGroupService) detail(args mock.Arguments) (*models.GroupDetail, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroupDetail), args.Error(1)
}
