package licenses

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/repositories/mocks"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/audit"
	"github.com/upb/license-inventory/services/seats"
	"go.uber.org/zap"
)

type fixture struct {
	licenses    *mocks.LicenseRepository
	seats       *mocks.SeatRepository
	assignments *mocks.AssignmentRepository
	audit       *mocks.AuditRepository
	service     *Service
}

func newFixture() *fixture {
	f := &fixture{
		licenses:    new(mocks.LicenseRepository),
		seats:       new(mocks.SeatRepository),
		assignments: new(mocks.AssignmentRepository),
		audit:       new(mocks.AuditRepository),
	}
	repos := &repositories.Repositories{
		Licenses:    f.licenses,
		Seats:       f.seats,
		Assignments: f.assignments,
		AuditLogs:   f.audit,
	}
	txMgr := &mocks.TxManager{}
	recorder := audit.NewRecorder(f.audit, zap.NewNop())
	seatService := seats.NewService(repos, txMgr, recorder, zap.NewNop())
	f.service = NewService(repos, txMgr, seatService, recorder, zap.NewNop())
	f.service.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return f
}

func strPtr(s string) *string { return &s }

func validInput() Input {
	return Input{
		Name:          " Adobe CC ",
		LicenseType:   models.LicenseTypeKeyBased,
		TotalQuantity: 2,
		PurchaseDate:  "2024-01-15",
	}
}

func auditAction(action models.AuditAction) interface{} {
	return mock.MatchedBy(func(l *models.AuditLog) bool { return l.Action == action })
}

func TestInput_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{"name required", func(in *Input) { in.Name = "  " }, "name"},
		{"quantity at least one", func(in *Input) { in.TotalQuantity = 0 }, "total_quantity"},
		{"negative price", func(in *Input) { p := decimal.NewFromInt(-1); in.Price = &p }, "price"},
		{"purchase date required", func(in *Input) { in.PurchaseDate = "" }, "purchase_date"},
		{"purchase date format", func(in *Input) { in.PurchaseDate = "15/01/2024" }, "purchase_date"},
		{"custom notice period", func(in *Input) { in.NoticePeriodType = NoticePeriodCustom }, "notice_period_custom"},
		{"unknown notice period", func(in *Input) { in.NoticePeriodType = "60" }, "notice_period_type"},
		{"unknown license type", func(in *Input) { in.LicenseType = "SITE" }, "license_type"},
		{"unknown currency", func(in *Input) { in.Currency = "BTC" }, "currency"},
		{"custom cycle months", func(in *Input) { in.RenewalCycle = models.RenewalCycleCustom }, "cycle_months"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			err := in.toLicense(&models.License{})

			require.Error(t, err)
			assert.True(t, services.IsValidationError(err))
			fields := services.GetErrorDetails(err)["fields"].(map[string]string)
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestInput_ToLicense(t *testing.T) {
	t.Run("key kept only for volume licenses", func(t *testing.T) {
		in := validInput()
		in.Key = strPtr(" VOL-KEY ")
		l := &models.License{}
		require.NoError(t, in.toLicense(l))
		assert.Nil(t, l.Key)

		in.LicenseType = models.LicenseTypeVolume
		require.NoError(t, in.toLicense(l))
		assert.Equal(t, "VOL-KEY", *l.Key)
	})

	t.Run("notice period and cost fields", func(t *testing.T) {
		in := validInput()
		in.NoticePeriodType = NoticePeriod90
		yearly := models.PaymentCycleYearly
		price := decimal.NewFromInt(1000)
		in.PaymentCycle = &yearly
		in.UnitPrice = &price

		l := &models.License{}
		require.NoError(t, in.toLicense(l))

		assert.Equal(t, "Adobe CC", l.Name)
		assert.Equal(t, 90, *l.NoticePeriodDays)
		assert.Equal(t, models.CurrencyKRW, l.Currency)
		assert.Equal(t, models.RenewalCycleManual, l.RenewalCycle)
		require.NotNil(t, l.TotalAmountKRW)
		assert.Equal(t, int64(2200), *l.TotalAmountKRW)
	})
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("seat license gets seats and an audit entry", func(t *testing.T) {
		f := newFixture()
		f.licenses.On("Create", ctx, mock.AnythingOfType("*models.License")).
			Run(func(args mock.Arguments) { args.Get(1).(*models.License).ID = 10 }).
			Return(nil)
		f.licenses.On("GetByID", ctx, int64(10)).
			Return(&models.License{ID: 10, LicenseType: models.LicenseTypeKeyBased, TotalQuantity: 2}, nil)
		f.seats.On("ListUsage", ctx, int64(10)).Return([]*models.SeatUsage{}, nil)
		f.seats.On("CreateBatch", ctx, int64(10), 2).Return(nil)
		f.audit.On("Insert", ctx, auditAction(models.AuditActionCreated)).Return(nil)

		license, err := f.service.Create(ctx, validInput(), "admin")

		require.NoError(t, err)
		assert.Equal(t, int64(10), license.ID)
		assert.Equal(t, "Adobe CC", license.Name)
		f.seats.AssertExpectations(t)
		f.audit.AssertExpectations(t)
	})

	t.Run("volume license has no seats", func(t *testing.T) {
		f := newFixture()
		in := validInput()
		in.LicenseType = models.LicenseTypeVolume
		f.licenses.On("Create", ctx, mock.Anything).Return(nil)
		f.audit.On("Insert", ctx, mock.Anything).Return(nil)

		_, err := f.service.Create(ctx, in, "admin")

		require.NoError(t, err)
		f.seats.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate name", func(t *testing.T) {
		f := newFixture()
		f.licenses.On("Create", ctx, mock.Anything).Return(repositories.ErrDuplicate)

		_, err := f.service.Create(ctx, validInput(), "admin")

		assert.True(t, services.IsConflictError(err))
	})

	t.Run("renewal date is set for cycled licenses", func(t *testing.T) {
		f := newFixture()
		in := validInput()
		in.LicenseType = models.LicenseTypeVolume
		in.RenewalCycle = models.RenewalCycleAnnual
		f.licenses.On("Create", ctx, mock.Anything).Return(nil)
		f.audit.On("Insert", ctx, mock.Anything).Return(nil)

		license, err := f.service.Create(ctx, in, "admin")

		require.NoError(t, err)
		require.NotNil(t, license.RenewalDate)
		assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), *license.RenewalDate)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	existing := func() *models.License {
		return &models.License{
			ID:            3,
			Name:          "Adobe CC",
			LicenseType:   models.LicenseTypeKeyBased,
			TotalQuantity: 2,
			PurchaseDate:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			Currency:      models.CurrencyKRW,
			RenewalCycle:  models.RenewalCycleManual,
		}
	}

	t.Run("records a diff and syncs seats", func(t *testing.T) {
		f := newFixture()
		in := validInput()
		in.TotalQuantity = 3
		f.licenses.On("GetByIDForUpdate", ctx, int64(3)).Return(existing(), nil)
		f.licenses.On("Update", ctx, mock.Anything).Return(nil)
		f.licenses.On("GetByID", ctx, int64(3)).Return(existing(), nil)
		f.seats.On("ListUsage", ctx, int64(3)).Return([]*models.SeatUsage{{}, {}}, nil)
		f.seats.On("CreateBatch", ctx, int64(3), 1).Return(nil)

		var recorded *models.AuditLog
		f.audit.On("Insert", ctx, auditAction(models.AuditActionUpdated)).
			Run(func(args mock.Arguments) { recorded = args.Get(1).(*models.AuditLog) }).
			Return(nil)

		updated, err := f.service.Update(ctx, 3, in, "admin")

		require.NoError(t, err)
		assert.Equal(t, 3, updated.TotalQuantity)
		require.NotNil(t, recorded)

		var details struct {
			Summary string                    `json:"summary"`
			Changes map[string]map[string]int `json:"changes"`
		}
		require.NoError(t, json.Unmarshal(recorded.Details, &details))
		assert.Equal(t, "Adobe CC updated", details.Summary)
		assert.Equal(t, map[string]map[string]int{"total_quantity": {"from": 2, "to": 3}}, details.Changes)
	})

	t.Run("no audit entry without changes", func(t *testing.T) {
		f := newFixture()
		f.licenses.On("GetByIDForUpdate", ctx, int64(3)).Return(existing(), nil)
		f.licenses.On("Update", ctx, mock.Anything).Return(nil)
		f.licenses.On("GetByID", ctx, int64(3)).Return(existing(), nil)
		f.seats.On("ListUsage", ctx, int64(3)).Return([]*models.SeatUsage{{}, {}}, nil)

		_, err := f.service.Update(ctx, 3, validInput(), "admin")

		require.NoError(t, err)
		f.audit.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("type change blocked by active assignments", func(t *testing.T) {
		f := newFixture()
		in := validInput()
		in.LicenseType = models.LicenseTypeVolume
		f.licenses.On("GetByIDForUpdate", ctx, int64(3)).Return(existing(), nil)
		f.assignments.On("CountActive", ctx, int64(3)).Return(1, nil)

		_, err := f.service.Update(ctx, 3, in, "admin")

		assert.True(t, services.IsValidationError(err))
		f.licenses.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("switching to volume drops all seats", func(t *testing.T) {
		f := newFixture()
		in := validInput()
		in.LicenseType = models.LicenseTypeVolume
		f.licenses.On("GetByIDForUpdate", ctx, int64(3)).Return(existing(), nil)
		f.assignments.On("CountActive", ctx, int64(3)).Return(0, nil)
		f.licenses.On("Update", ctx, mock.Anything).Return(nil)
		f.audit.On("Insert", ctx, mock.Anything).Return(nil)
		f.seats.On("ListUsage", ctx, int64(3)).Return([]*models.SeatUsage{{}, {}}, nil)
		f.seats.On("DeleteByLicense", ctx, int64(3)).Return(int64(2), nil)

		_, err := f.service.Update(ctx, 3, in, "admin")

		require.NoError(t, err)
		f.seats.AssertExpectations(t)
	})

	t.Run("missing license", func(t *testing.T) {
		f := newFixture()
		f.licenses.On("GetByIDForUpdate", ctx, int64(3)).Return(nil, repositories.ErrNotFound)

		_, err := f.service.Update(ctx, 3, validInput(), "admin")

		assert.True(t, services.IsNotFoundError(err))
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("writes the audit entry before deleting", func(t *testing.T) {
		f := newFixture()
		f.licenses.On("GetByID", ctx, int64(4)).Return(&models.License{ID: 4, Name: "Slack"}, nil)
		f.audit.On("Insert", ctx, auditAction(models.AuditActionDeleted)).Return(nil)
		f.licenses.On("Delete", ctx, int64(4)).Return(nil)

		require.NoError(t, f.service.Delete(ctx, 4, "admin"))
		f.licenses.AssertExpectations(t)
	})

	t.Run("missing license", func(t *testing.T) {
		f := newFixture()
		f.licenses.On("GetByID", ctx, int64(4)).Return(nil, repositories.ErrNotFound)

		assert.True(t, services.IsNotFoundError(f.service.Delete(ctx, 4, "admin")))
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.licenses.On("GetByID", ctx, int64(5)).Return(&models.License{ID: 5, Name: "Zoom"}, nil)
	f.assignments.On("ListByLicense", ctx, int64(5)).Return([]*models.AssignmentDetail{{EmployeeName: "Kim"}}, nil)
	f.seats.On("ListUsage", ctx, int64(5)).Return([]*models.SeatUsage{{ActiveAssignments: 1}}, nil)

	detail, err := f.service.Get(ctx, 5)

	require.NoError(t, err)
	assert.Equal(t, "Zoom", detail.Name)
	assert.Len(t, detail.Assignments, 1)
	assert.Len(t, detail.Seats, 1)
}

func TestService_ChangeHooks(t *testing.T) {
	ctx := context.Background()

	t.Run("committed writes notify", func(t *testing.T) {
		f := newFixture()
		changes := 0
		f.service.OnChange(func() { changes++ })
		in := validInput()
		in.LicenseType = models.LicenseTypeVolume
		f.licenses.On("Create", ctx, mock.Anything).Return(nil)
		f.audit.On("Insert", ctx, mock.Anything).Return(nil)
		f.licenses.On("GetByID", ctx, int64(0)).Return(&models.License{Name: "Slack"}, nil)
		f.licenses.On("Delete", ctx, int64(0)).Return(nil)

		_, err := f.service.Create(ctx, in, "admin")
		require.NoError(t, err)
		require.NoError(t, f.service.Delete(ctx, 0, "admin"))

		assert.Equal(t, 2, changes)
	})

	t.Run("failed writes stay quiet", func(t *testing.T) {
		f := newFixture()
		changes := 0
		f.service.OnChange(func() { changes++ })
		f.licenses.On("Create", ctx, mock.Anything).Return(repositories.ErrDuplicate)
		f.licenses.On("GetByIDForUpdate", ctx, int64(9)).Return(nil, repositories.ErrNotFound)

		_, err := f.service.Create(ctx, validInput(), "admin")
		require.Error(t, err)
		_, err = f.service.Update(ctx, 9, validInput(), "admin")
		require.Error(t, err)

		assert.Zero(t, changes)
	})
}
