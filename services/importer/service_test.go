package importer

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/repositories/mocks"
	"github.com/upb/license-inventory/services/assignments"
	"github.com/upb/license-inventory/services/audit"
	"github.com/upb/license-inventory/services/employees"
	"github.com/upb/license-inventory/services/seats"
	"go.uber.org/zap"
)

type recordedImport struct {
	kind             string
	created, updated int
}

type fakeEvents struct {
	mu      sync.Mutex
	imports []recordedImport
}

func (f *fakeEvents) LogImport(kind string, created, updated int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports = append(f.imports, recordedImport{kind: kind, created: created, updated: updated})
	return nil
}

type fixture struct {
	licenses    *mocks.LicenseRepository
	seats       *mocks.SeatRepository
	employees   *mocks.EmployeeRepository
	groups      *mocks.GroupRepository
	assignments *mocks.AssignmentRepository
	org         *mocks.OrgRepository
	audit       *mocks.AuditRepository
	events      *fakeEvents
	service     *Service
}

func newFixture() *fixture {
	f := &fixture{
		licenses:    new(mocks.LicenseRepository),
		seats:       new(mocks.SeatRepository),
		employees:   new(mocks.EmployeeRepository),
		groups:      new(mocks.GroupRepository),
		assignments: new(mocks.AssignmentRepository),
		org:         new(mocks.OrgRepository),
		audit:       new(mocks.AuditRepository),
		events:      &fakeEvents{},
	}
	repos := &repositories.Repositories{
		Licenses:    f.licenses,
		Seats:       f.seats,
		Employees:   f.employees,
		Groups:      f.groups,
		Assignments: f.assignments,
		Org:         f.org,
		AuditLogs:   f.audit,
	}
	txMgr := &mocks.TxManager{}
	recorder := audit.NewRecorder(f.audit, zap.NewNop())
	seatService := seats.NewService(repos, txMgr, recorder, zap.NewNop())
	allocator := assignments.NewService(repos, txMgr, seatService, recorder, zap.NewNop())
	staff := employees.NewService(repos, txMgr, allocator, recorder, zap.NewNop())
	f.service = NewService(repos, txMgr, seatService, allocator, staff, f.events, Config{}, zap.NewNop())
	return f
}

func (f *fixture) importCSV(t *testing.T, kind, body string) *Result {
	t.Helper()
	result, err := f.service.Import(context.Background(), kind, "upload.csv", int64(len(body)), strings.NewReader(body), "admin")
	require.NoError(t, err)
	return result
}

func TestImport_UploadChecks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	body := "name,department\nKim,Design\n"

	tests := []struct {
		name     string
		kind     string
		filename string
		size     int64
		body     string
		message  string
	}{
		{"unknown kind", "documents", "a.csv", 10, body, "select an import type"},
		{"empty file", "employees", "a.csv", 0, "", "select a CSV file"},
		{"too large", "employees", "a.csv", DefaultMaxUploadBytes + 1, body, "larger than 5 MB"},
		{"not csv", "employees", "a.xlsx", 10, body, "only .csv files"},
		{"no data rows", "employees", "a.csv", 16, "name,department\n", "no data rows"},
		{"missing headers", "employees", "a.csv", 10, "name,email\nKim,k@example.com\n", "missing required headers: department"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.service.Import(ctx, tt.kind, tt.filename, tt.size, strings.NewReader(tt.body), "admin")

			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Contains(t, result.Message, tt.message)
		})
	}
	assert.Empty(t, f.events.imports)
}

func TestImport_Licenses(t *testing.T) {
	ctx := context.Background()

	t.Run("row errors stop the import before any write", func(t *testing.T) {
		f := newFixture()
		body := "name,totalQuantity,purchaseDate,licenseType\n,0,2024-13-01,SITE\n"
		f.service.OnChange(func() { t.Error("rejected import must not notify") })

		result := f.importCSV(t, "licenses", body)

		assert.False(t, result.Success)
		columns := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			assert.Equal(t, 2, e.Row)
			columns = append(columns, e.Column)
		}
		assert.ElementsMatch(t, []string{"name", "purchaseDate", "totalQuantity", "licenseType"}, columns)
		f.licenses.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate keys and keys owned by other licenses", func(t *testing.T) {
		f := newFixture()
		body := "name,totalQuantity,purchaseDate,key,licenseType\n" +
			"Office,10,2024-01-01,AAA,VOLUME\n" +
			"Visio,5,2024-01-01,AAA,VOLUME\n" +
			"Project,5,2024-01-01,BBB,VOLUME\n"
		f.licenses.On("FindByKeys", ctx, []string{"AAA", "BBB"}).
			Return(map[string]*models.License{"BBB": {ID: 9, Name: "Legacy"}}, nil)
		f.licenses.On("GetByName", ctx, mock.Anything).Return(nil, repositories.ErrNotFound)

		result := f.importCSV(t, "licenses", body)

		assert.False(t, result.Success)
		assert.Equal(t, []RowError{
			{Row: 3, Column: "key", Message: `duplicate key "AAA" in CSV (row 3 duplicates row 2)`},
			{Row: 4, Column: "key", Message: `key "BBB" is already registered to license "Legacy"`},
		}, result.Errors)
	})

	t.Run("quantity below assigned seats", func(t *testing.T) {
		f := newFixture()
		body := "name,totalQuantity,purchaseDate\nIDE,1,2024-01-01\n"
		existing := &models.License{ID: 3, Name: "IDE", LicenseType: models.LicenseTypeKeyBased, TotalQuantity: 5}
		f.licenses.On("GetByName", ctx, "IDE").Return(existing, nil)
		f.assignments.On("CountActive", ctx, int64(3)).Return(3, nil)
		f.seats.On("CountAssigned", ctx, int64(3)).Return(3, nil)

		result := f.importCSV(t, "licenses", body)

		require.Len(t, result.Errors, 1)
		assert.Equal(t, "totalQuantity", result.Errors[0].Column)
		assert.Contains(t, result.Errors[0].Message, "3 seats are assigned")
	})

	t.Run("creates new licenses and syncs their seats", func(t *testing.T) {
		f := newFixture()
		body := "name,totalQuantity,purchaseDate,key,licenseType,price\n" +
			"Office,10,2024-01-01,VOL-1,VOLUME,1000\n" +
			"IDE,2,2024-01-01,IGNORED,KEY_BASED,\n"
		f.licenses.On("FindByKeys", ctx, []string{"VOL-1", "IGNORED"}).Return(map[string]*models.License{}, nil)
		f.licenses.On("GetByName", ctx, mock.Anything).Return(nil, repositories.ErrNotFound)

		var created []*models.License
		f.licenses.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
			l := args.Get(1).(*models.License)
			l.ID = int64(len(created) + 1)
			created = append(created, l)
		}).Return(nil)
		f.licenses.On("GetByID", ctx, int64(2)).
			Return(&models.License{ID: 2, Name: "IDE", LicenseType: models.LicenseTypeKeyBased, TotalQuantity: 2}, nil)
		f.seats.On("ListUsage", ctx, int64(2)).Return([]*models.SeatUsage{}, nil)
		f.seats.On("CreateBatch", ctx, int64(2), 2).Return(nil)
		changes := 0
		f.service.OnChange(func() { changes++ })

		result := f.importCSV(t, "licenses", body)

		require.True(t, result.Success, result.Message)
		assert.Equal(t, 2, result.Created)
		assert.Equal(t, 1, changes)
		require.Len(t, created, 2)
		require.NotNil(t, created[0].Key)
		assert.Equal(t, "VOL-1", *created[0].Key)
		assert.Nil(t, created[1].Key)
		f.seats.AssertExpectations(t)
		assert.Equal(t, []recordedImport{{kind: "licenses", created: 2}}, f.events.imports)
	})
}

func TestImport_Employees(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown group", func(t *testing.T) {
		f := newFixture()
		f.groups.On("GetByName", ctx, "Nope").Return(nil, repositories.ErrNotFound)

		result := f.importCSV(t, "employees", "name,department,groupName\nKim,Design,Nope\n")

		assert.Equal(t, []RowError{{Row: 2, Column: "groupName", Message: `group "Nope" does not exist`}}, result.Errors)
	})

	t.Run("upserts by email", func(t *testing.T) {
		f := newFixture()
		f.employees.On("GetByEmail", ctx, "kim@example.com").
			Return(&models.Employee{ID: 4, Name: "Old", Department: "Old"}, nil)
		f.employees.On("Update", ctx, mock.MatchedBy(func(e *models.Employee) bool {
			return e.ID == 4 && e.Name == "Kim" && e.Department == "Design"
		})).Return(nil)
		f.employees.On("Create", ctx, mock.MatchedBy(func(e *models.Employee) bool {
			return e.Name == "Lee" && e.Email == nil
		})).Return(nil)

		result := f.importCSV(t, "employees", "name,department,email\nKim,Design,kim@example.com\nLee,Ops,\n")

		require.True(t, result.Success, result.Message)
		assert.Equal(t, 1, result.Created)
		assert.Equal(t, 1, result.Updated)
	})

	t.Run("resolves the org path", func(t *testing.T) {
		f := newFixture()
		f.org.On("ListCompanies", ctx).Return([]*models.OrgCompany{{ID: 1, Name: "HQ"}}, nil)
		f.org.On("ListUnits", ctx, mock.MatchedBy(func(u models.UnitFilter) bool { return u.RootsOnly })).
			Return([]*models.OrgUnit{{ID: 10, Name: "Engineering", CompanyID: 1}}, nil)
		f.org.On("ListUnits", ctx, mock.MatchedBy(func(u models.UnitFilter) bool { return u.ParentID != nil })).
			Return([]*models.OrgUnit{}, nil)

		result := f.importCSV(t, "employees",
			"name,department,companyName,orgName,subOrgName\nKim,Design,HQ,Engineering,Backend\n")

		assert.Equal(t, []RowError{{Row: 2, Column: "subOrgName", Message: `org "Backend" does not exist under "Engineering"`}}, result.Errors)
	})
}

func TestImportReason(t *testing.T) {
	tests := []struct {
		licenseType models.LicenseType
		want        string
	}{
		{models.LicenseTypeVolume, "CSV Import - Auto-assigned via Group: Basics (Volume Key)"},
		{models.LicenseTypeKeyBased, "CSV Import - Auto-assigned via Group: Basics (Individual Key)"},
		{models.LicenseTypeNoKey, "CSV Import - Auto-assigned via Group: Basics (Individual Key)"},
	}

	for _, tt := range tests {
		t.Run(string(tt.licenseType), func(t *testing.T) {
			assert.Equal(t, tt.want, importReason("Basics", &models.License{LicenseType: tt.licenseType}))
		})
	}
}

func TestImport_Groups(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.groups.On("GetByName", ctx, "Base").Return(nil, repositories.ErrNotFound)
	f.groups.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*models.LicenseGroup).ID = 7
	}).Return(nil)
	f.licenses.On("GetByName", ctx, "Office").Return(&models.License{ID: 1, Name: "Office"}, nil)
	f.licenses.On("GetByName", ctx, "Missing").Return(nil, repositories.ErrNotFound)

	result := f.importCSV(t, "groups", "name,isDefault,licenseNames\nBase,yes,Office; Missing\n")

	assert.False(t, result.Success)
	assert.Equal(t, `group "Base": license "Missing" not found`, result.Message)
	f.groups.AssertNotCalled(t, "ReplaceMembers", mock.Anything, mock.Anything, mock.Anything)
}

func TestImport_Assignments(t *testing.T) {
	ctx := context.Background()

	t.Run("no free seat aborts the whole file", func(t *testing.T) {
		f := newFixture()
		ide := &models.License{ID: 3, Name: "IDE", LicenseType: models.LicenseTypeKeyBased, TotalQuantity: 2}
		f.licenses.On("GetByName", ctx, "IDE").Return(ide, nil)
		f.licenses.On("GetByIDForUpdate", ctx, int64(3)).Return(ide, nil)
		f.employees.On("GetByEmail", ctx, "kim@example.com").Return(&models.Employee{ID: 5, Name: "Kim"}, nil)
		f.assignments.On("FindActive", ctx, int64(3), int64(5)).Return(nil, repositories.ErrNotFound)
		f.seats.On("FindFreeSeat", ctx, int64(3)).Return(nil, repositories.ErrNotFound)
		f.seats.On("CountByLicense", ctx, int64(3)).Return(2, nil)

		result := f.importCSV(t, "assignments", "licenseName,employeeEmail\nIDE,kim@example.com\n")

		assert.False(t, result.Success)
		assert.Equal(t, `row 2: no remaining seats for "IDE" (all 2 assigned)`, result.Message)
	})

	t.Run("assigns with the default reason", func(t *testing.T) {
		f := newFixture()
		office := &models.License{ID: 1, Name: "Office", LicenseType: models.LicenseTypeVolume, TotalQuantity: 5}
		f.licenses.On("GetByName", ctx, "Office").Return(office, nil)
		f.licenses.On("GetByIDForUpdate", ctx, int64(1)).Return(office, nil)
		f.employees.On("GetByEmail", ctx, "kim@example.com").Return(&models.Employee{ID: 5, Name: "Kim"}, nil)
		f.assignments.On("FindActive", ctx, int64(1), int64(5)).Return(nil, repositories.ErrNotFound)
		f.assignments.On("CountActive", ctx, int64(1)).Return(0, nil)
		f.assignments.On("Create", ctx, mock.MatchedBy(func(a *models.Assignment) bool {
			return *a.Reason == "CSV Import" && a.AssignedDate.Format("2006-01-02") == "2024-05-02"
		})).Return(nil)
		f.assignments.On("CreateHistory", ctx, mock.Anything).Return(nil)
		f.audit.On("Insert", ctx, mock.Anything).Return(nil)

		result := f.importCSV(t, "assignments", "licenseName,employeeEmail,assignedDate\nOffice,kim@example.com,2024-05-02\n")

		require.True(t, result.Success, result.Message)
		assert.Equal(t, 1, result.Created)
	})
}

func TestImport_Seats(t *testing.T) {
	ctx := context.Background()
	body := "licenseName,key\nIDE,K1\nIDE,K2\nIDE,K3\n"

	t.Run("more keys than empty seats", func(t *testing.T) {
		f := newFixture()
		f.seats.On("FindKeyOwners", ctx, []string{"K1", "K2", "K3"}).Return(map[string]*models.SeatKeyOwner{}, nil)
		f.licenses.On("GetByName", ctx, "IDE").Return(&models.License{ID: 3, Name: "IDE", LicenseType: models.LicenseTypeKeyBased}, nil)
		f.seats.On("ListEmpty", ctx, int64(3)).Return([]*models.LicenseSeat{{ID: 30}, {ID: 31}}, nil)

		result := f.importCSV(t, "seats", body)

		assert.Equal(t, []RowError{{Row: 4, Column: "key", Message: `"IDE": key 3 of 3 has no empty seat (2 empty seats)`}}, result.Errors)
	})

	t.Run("volume licenses are rejected", func(t *testing.T) {
		f := newFixture()
		f.seats.On("FindKeyOwners", ctx, mock.Anything).Return(map[string]*models.SeatKeyOwner{}, nil)
		f.licenses.On("GetByName", ctx, "IDE").Return(&models.License{ID: 3, Name: "IDE", LicenseType: models.LicenseTypeVolume}, nil)

		result := f.importCSV(t, "seats", body)

		assert.Len(t, result.Errors, 3)
	})

	t.Run("fills empty seats in order", func(t *testing.T) {
		f := newFixture()
		f.seats.On("FindKeyOwners", ctx, mock.Anything).Return(map[string]*models.SeatKeyOwner{}, nil)
		f.licenses.On("GetByName", ctx, "IDE").Return(&models.License{ID: 3, Name: "IDE", LicenseType: models.LicenseTypeKeyBased}, nil)
		f.seats.On("ListEmpty", ctx, int64(3)).Return([]*models.LicenseSeat{{ID: 30}, {ID: 31}, {ID: 32}}, nil)
		for i, key := range []string{"K1", "K2", "K3"} {
			k := key
			f.seats.On("UpdateKey", ctx, int64(30+i), &k).Return(nil).Once()
		}

		result := f.importCSV(t, "seats", body)

		require.True(t, result.Success, result.Message)
		assert.Equal(t, 3, result.Updated)
		f.seats.AssertExpectations(t)
	})
}
