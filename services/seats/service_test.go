package seats

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/repositories/mocks"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/audit"
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
	f.service = NewService(repos, &mocks.TxManager{}, audit.NewRecorder(f.audit, zap.NewNop()), zap.NewNop())
	return f
}

func strPtr(s string) *string { return &s }

func seat(id int64, key *string, active int) *models.SeatUsage {
	return &models.SeatUsage{
		LicenseSeat:       models.LicenseSeat{ID: id, LicenseID: 1, Key: key},
		ActiveAssignments: active,
	}
}

func keyBased() *models.License {
	return &models.License{ID: 1, Name: "JetBrains", LicenseType: models.LicenseTypeKeyBased, TotalQuantity: 3}
}

func TestSyncSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("creates missing seats", func(t *testing.T) {
		f := newFixture()
		f.licenses.On("GetByID", ctx, int64(1)).Return(keyBased(), nil)
		f.seats.On("ListUsage", ctx, int64(1)).Return([]*models.SeatUsage{seat(1, nil, 0)}, nil)
		f.seats.On("CreateBatch", ctx, int64(1), 4).Return(nil)

		result, err := f.service.SyncSeats(ctx, 1, 5)

		require.NoError(t, err)
		assert.Equal(t, SyncResult{Created: 4}, result)
		f.seats.AssertExpectations(t)
	})

	t.Run("deletes keyless seats before keyed ones", func(t *testing.T) {
		f := newFixture()
		f.licenses.On("GetByID", ctx, int64(1)).Return(keyBased(), nil)
		f.seats.On("ListUsage", ctx, int64(1)).Return([]*models.SeatUsage{
			seat(1, strPtr("K-1"), 0),
			seat(2, nil, 1),
			seat(3, strPtr("K-3"), 0),
			seat(4, nil, 0),
			seat(5, nil, 0),
		}, nil)
		f.seats.On("DeleteByIDs", ctx, []int64{4, 5, 1}).Return(nil)

		result, err := f.service.SyncSeats(ctx, 1, 2)

		require.NoError(t, err)
		assert.Equal(t, SyncResult{Deleted: 3, DeletedWithKey: 1}, result)
		f.seats.AssertExpectations(t)
	})

	t.Run("refuses to delete assigned seats", func(t *testing.T) {
		f := newFixture()
		f.licenses.On("GetByID", ctx, int64(1)).Return(keyBased(), nil)
		f.seats.On("ListUsage", ctx, int64(1)).Return([]*models.SeatUsage{
			seat(1, nil, 1),
			seat(2, nil, 1),
			seat(3, nil, 0),
		}, nil)

		_, err := f.service.SyncSeats(ctx, 1, 1)

		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))
		assert.Contains(t, err.Error(), "JetBrains")
		assert.Contains(t, err.Error(), "at least 2")
		f.seats.AssertNotCalled(t, "DeleteByIDs", mock.Anything, mock.Anything)
	})

	t.Run("no-op for volume and missing licenses", func(t *testing.T) {
		f := newFixture()
		volume := &models.License{ID: 1, LicenseType: models.LicenseTypeVolume}
		f.licenses.On("GetByID", ctx, int64(1)).Return(volume, nil)
		f.licenses.On("GetByID", ctx, int64(2)).Return(nil, fmt.Errorf("license 2: %w", repositories.ErrNotFound))

		result, err := f.service.SyncSeats(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, SyncResult{}, result)

		result, err = f.service.SyncSeats(ctx, 2, 10)
		require.NoError(t, err)
		assert.Equal(t, SyncResult{}, result)

		f.seats.AssertNotCalled(t, "ListUsage", mock.Anything, mock.Anything)
	})

	t.Run("unchanged quantity writes nothing", func(t *testing.T) {
		f := newFixture()
		f.licenses.On("GetByID", ctx, int64(1)).Return(keyBased(), nil)
		f.seats.On("ListUsage", ctx, int64(1)).Return([]*models.SeatUsage{seat(1, nil, 0)}, nil)

		result, err := f.service.SyncSeats(ctx, 1, 1)

		require.NoError(t, err)
		assert.Equal(t, SyncResult{}, result)
	})
}

func TestDeleteAllSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("fails while a seat is assigned", func(t *testing.T) {
		f := newFixture()
		f.seats.On("ListUsage", ctx, int64(1)).Return([]*models.SeatUsage{seat(1, nil, 0), seat(2, nil, 1)}, nil)

		err := f.service.DeleteAllSeats(ctx, 1)

		assert.True(t, services.IsValidationError(err))
		f.seats.AssertNotCalled(t, "DeleteByLicense", mock.Anything, mock.Anything)
	})

	t.Run("deletes every seat", func(t *testing.T) {
		f := newFixture()
		f.seats.On("ListUsage", ctx, int64(1)).Return([]*models.SeatUsage{seat(1, strPtr("K"), 0), seat(2, nil, 0)}, nil)
		f.seats.On("DeleteByLicense", ctx, int64(1)).Return(int64(2), nil)

		require.NoError(t, f.service.DeleteAllSeats(ctx, 1))
		f.seats.AssertExpectations(t)
	})
}

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("volume license below total", func(t *testing.T) {
		f := newFixture()
		license := &models.License{ID: 7, LicenseType: models.LicenseTypeVolume, TotalQuantity: 2}
		f.assignments.On("CountActive", ctx, int64(7)).Return(1, nil)

		seatID, ok, err := f.service.Reserve(ctx, license)

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Nil(t, seatID)
	})

	t.Run("volume license full", func(t *testing.T) {
		f := newFixture()
		license := &models.License{ID: 7, LicenseType: models.LicenseTypeVolume, TotalQuantity: 2}
		f.assignments.On("CountActive", ctx, int64(7)).Return(2, nil)

		_, ok, err := f.service.Reserve(ctx, license)

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("seat license takes a free seat", func(t *testing.T) {
		f := newFixture()
		f.seats.On("FindFreeSeat", ctx, int64(1)).Return(&models.LicenseSeat{ID: 42, LicenseID: 1}, nil)

		seatID, ok, err := f.service.Reserve(ctx, keyBased())

		require.NoError(t, err)
		assert.True(t, ok)
		require.NotNil(t, seatID)
		assert.Equal(t, int64(42), *seatID)
	})

	t.Run("no-key license without free seats", func(t *testing.T) {
		f := newFixture()
		license := &models.License{ID: 3, LicenseType: models.LicenseTypeNoKey, TotalQuantity: 1}
		f.seats.On("FindFreeSeat", ctx, int64(3)).Return(nil, repositories.ErrNotFound)

		_, ok, err := f.service.Reserve(ctx, license)

		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestUpdateKey(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the trimmed key and records an audit entry", func(t *testing.T) {
		f := newFixture()
		seatID := int64(5)
		f.seats.On("GetByID", ctx, seatID).Return(&models.LicenseSeat{ID: seatID, LicenseID: 1}, nil)
		f.seats.On("FindKeyOwner", ctx, "ABC-123", &seatID).Return(nil, repositories.ErrNotFound)
		f.seats.On("UpdateKey", ctx, seatID, strPtr("ABC-123")).Return(nil)
		f.audit.On("Insert", ctx, mock.MatchedBy(func(l *models.AuditLog) bool {
			return l.EntityType == models.AuditEntitySeat && l.Action == models.AuditActionUpdated
		})).Return(nil)

		updated, err := f.service.UpdateKey(ctx, seatID, "  ABC-123 ", "admin")

		require.NoError(t, err)
		assert.Equal(t, "ABC-123", *updated.Key)
		f.audit.AssertExpectations(t)
	})

	t.Run("empty key clears the seat", func(t *testing.T) {
		f := newFixture()
		f.seats.On("GetByID", ctx, int64(5)).Return(&models.LicenseSeat{ID: 5, Key: strPtr("OLD")}, nil)
		f.seats.On("UpdateKey", ctx, int64(5), (*string)(nil)).Return(nil)
		f.audit.On("Insert", ctx, mock.Anything).Return(nil)

		changes := 0
		f.service.OnChange(func() { changes++ })

		updated, err := f.service.UpdateKey(ctx, 5, "   ", "admin")

		require.NoError(t, err)
		assert.Nil(t, updated.Key)
		assert.Equal(t, 1, changes)
		f.seats.AssertNotCalled(t, "FindKeyOwner", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("key held by another seat", func(t *testing.T) {
		f := newFixture()
		seatID := int64(5)
		f.seats.On("GetByID", ctx, seatID).Return(&models.LicenseSeat{ID: seatID}, nil)
		f.seats.On("FindKeyOwner", ctx, "DUP", &seatID).Return(&models.SeatKeyOwner{SeatID: 9, LicenseName: "Adobe CC"}, nil)

		f.service.OnChange(func() { t.Error("rejected key must not notify") })

		_, err := f.service.UpdateKey(ctx, seatID, "DUP", "admin")

		require.Error(t, err)
		assert.True(t, services.IsConflictError(err))
		assert.Contains(t, err.Error(), "Adobe CC")
	})

	t.Run("missing seat", func(t *testing.T) {
		f := newFixture()
		f.seats.On("GetByID", ctx, int64(5)).Return(nil, repositories.ErrNotFound)

		_, err := f.service.UpdateKey(ctx, 5, "K", "admin")

		assert.True(t, services.IsNotFoundError(err))
	})
}

func TestCheckKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seats.On("FindKeyOwner", ctx, "TAKEN", (*int64)(nil)).Return(&models.SeatKeyOwner{LicenseName: "Office"}, nil)
	f.seats.On("FindKeyOwner", ctx, "FREE", (*int64)(nil)).Return(nil, repositories.ErrNotFound)

	check, err := f.service.CheckKey(ctx, "TAKEN", nil)
	require.NoError(t, err)
	assert.Equal(t, &KeyCheck{Duplicate: true, LicenseName: "Office"}, check)

	check, err = f.service.CheckKey(ctx, " FREE ", nil)
	require.NoError(t, err)
	assert.False(t, check.Duplicate)

	check, err = f.service.CheckKey(ctx, "", nil)
	require.NoError(t, err)
	assert.False(t, check.Duplicate)
}

func TestSeedMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	empty := keyBased()
	seeded := &models.License{ID: 2, Name: "Figma", LicenseType: models.LicenseTypeNoKey, TotalQuantity: 2}
	volume := &models.License{ID: 3, Name: "Office", LicenseType: models.LicenseTypeVolume, TotalQuantity: 50}
	f.licenses.On("ListAll", ctx).Return([]*models.License{empty, seeded, volume}, nil)
	f.seats.On("ListUsage", ctx, int64(1)).Return([]*models.SeatUsage{}, nil)
	f.seats.On("ListUsage", ctx, int64(2)).Return([]*models.SeatUsage{seat(7, nil, 0)}, nil)
	f.seats.On("CreateBatch", ctx, int64(1), 3).Return(nil)

	changes := 0
	f.service.OnChange(func() { changes++ })

	n, err := f.service.SeedMissing(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, 1, changes)
	f.seats.AssertNumberOfCalls(t, "CreateBatch", 1)
	f.seats.AssertNotCalled(t, "ListUsage", ctx, int64(3))
}
