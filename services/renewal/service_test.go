package renewal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/repositories/mocks"
	"github.com/upb/license-inventory/services"
	"go.uber.org/zap"
)

type recordingEvents struct {
	renewals []int64
}

func (r *recordingEvents) LogRenewal(license *models.License, previous, next *time.Time) error {
	r.renewals = append(r.renewals, license.ID)
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name     string
		from     time.Time
		months   int
		expected time.Time
	}{
		{"Jan 31 to leap Feb", date(2024, 1, 31), 1, date(2024, 2, 29)},
		{"Jan 31 to Feb", date(2023, 1, 31), 1, date(2023, 2, 28)},
		{"Mar 31 to Apr", date(2024, 3, 31), 1, date(2024, 4, 30)},
		{"mid month", date(2024, 5, 15), 1, date(2024, 6, 15)},
		{"year rollover", date(2024, 11, 30), 3, date(2025, 2, 28)},
		{"leap day plus a year", date(2024, 2, 29), 12, date(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AddMonthsClamped(tt.from, tt.months))
		})
	}
}

func TestCalcRenewalDate(t *testing.T) {
	six := 6
	lastRenewed := date(2024, 3, 10)
	firstPurchased := date(2023, 8, 31)

	tests := []struct {
		name     string
		license  models.License
		expected *time.Time
	}{
		{
			name:    "manual has no renewal date",
			license: models.License{RenewalCycle: models.RenewalCycleManual, PurchaseDate: date(2024, 1, 1)},
		},
		{
			name:     "monthly from purchase date",
			license:  models.License{RenewalCycle: models.RenewalCycleMonthly, PurchaseDate: date(2024, 1, 31)},
			expected: ptr(date(2024, 2, 29)),
		},
		{
			name:     "annual from first purchase",
			license:  models.License{RenewalCycle: models.RenewalCycleAnnual, PurchaseDate: date(2024, 1, 1), FirstPurchasedAt: &firstPurchased},
			expected: ptr(date(2024, 8, 31)),
		},
		{
			name:     "custom from last renewal",
			license:  models.License{RenewalCycle: models.RenewalCycleCustom, CycleMonths: &six, PurchaseDate: date(2024, 1, 1), FirstPurchasedAt: &firstPurchased, LastRenewedAt: &lastRenewed},
			expected: ptr(date(2024, 9, 10)),
		},
		{
			name:     "custom without months defaults to one",
			license:  models.License{RenewalCycle: models.RenewalCycleCustom, PurchaseDate: date(2024, 1, 10)},
			expected: ptr(date(2024, 2, 10)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalcRenewalDate(&tt.license))
		})
	}
}

func ptr(t time.Time) *time.Time { return &t }

func newService(licenses *mocks.LicenseRepository, events EventLogger, now time.Time) *Service {
	svc := NewService(licenses, events, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestSyncRenewalDate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

	t.Run("rolls forward past today", func(t *testing.T) {
		licenses := new(mocks.LicenseRepository)
		events := &recordingEvents{}
		license := &models.License{ID: 1, RenewalCycle: models.RenewalCycleMonthly, PurchaseDate: date(2024, 1, 31)}
		licenses.On("GetByID", ctx, int64(1)).Return(license, nil)
		licenses.On("UpdateRenewalDate", ctx, int64(1), mock.MatchedBy(func(d *time.Time) bool {
			return d.Equal(date(2024, 6, 29))
		})).Return(nil)

		updated, changed, err := newService(licenses, events, now).SyncRenewalDate(ctx, 1)

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, date(2024, 6, 29), *updated.RenewalDate)
		assert.Equal(t, []int64{1}, events.renewals)
	})

	t.Run("a renewal due today moves to the next period", func(t *testing.T) {
		licenses := new(mocks.LicenseRepository)
		license := &models.License{ID: 2, RenewalCycle: models.RenewalCycleAnnual, PurchaseDate: date(2023, 6, 15)}
		licenses.On("GetByID", ctx, int64(2)).Return(license, nil)
		licenses.On("UpdateRenewalDate", ctx, int64(2), mock.MatchedBy(func(d *time.Time) bool {
			return d.Equal(date(2025, 6, 15))
		})).Return(nil)

		_, changed, err := newService(licenses, nil, now).SyncRenewalDate(ctx, 2)

		require.NoError(t, err)
		assert.True(t, changed)
		licenses.AssertExpectations(t)
	})

	t.Run("current date is left alone", func(t *testing.T) {
		licenses := new(mocks.LicenseRepository)
		current := date(2024, 7, 1)
		license := &models.License{ID: 3, RenewalCycle: models.RenewalCycleMonthly, PurchaseDate: date(2024, 6, 1), RenewalDate: &current}
		licenses.On("GetByID", ctx, int64(3)).Return(license, nil)

		_, changed, err := newService(licenses, nil, now).SyncRenewalDate(ctx, 3)

		require.NoError(t, err)
		assert.False(t, changed)
		licenses.AssertNotCalled(t, "UpdateRenewalDate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing license", func(t *testing.T) {
		licenses := new(mocks.LicenseRepository)
		licenses.On("GetByID", ctx, int64(9)).Return(nil, repositories.ErrNotFound)

		_, _, err := newService(licenses, nil, now).SyncRenewalDate(ctx, 9)

		assert.True(t, services.IsNotFoundError(err))
	})
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	licenses := new(mocks.LicenseRepository)
	events := &recordingEvents{}

	licenses.On("ListAll", ctx).Return([]*models.License{
		{ID: 1, RenewalCycle: models.RenewalCycleManual, PurchaseDate: date(2024, 1, 1)},
		{ID: 2, RenewalCycle: models.RenewalCycleMonthly, PurchaseDate: date(2024, 5, 20)},
		{ID: 3, RenewalCycle: models.RenewalCycleAnnual, PurchaseDate: date(2024, 1, 1)},
	}, nil)
	licenses.On("UpdateRenewalDate", ctx, int64(2), mock.Anything).Return(errors.New("deadlock detected"))
	licenses.On("UpdateRenewalDate", ctx, int64(3), mock.Anything).Return(nil)

	summary, err := newService(licenses, events, now).SyncAll(ctx)

	require.NoError(t, err)
	assert.Equal(t, &SyncSummary{Checked: 2, Updated: 1, Failed: 1}, summary)
	assert.Equal(t, []int64{3}, events.renewals)
}
