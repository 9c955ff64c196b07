package licenses

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/audit"
	"github.com/upb/license-inventory/services/renewal"
	"github.com/upb/license-inventory/services/seats"
	"go.uber.org/zap"
)

// Service manages licenses and keeps their seats in sync
type Service struct {
	services.ChangeHooks

	licenses    repositories.LicenseRepository
	assignments repositories.AssignmentRepository
	seats       *seats.Service
	recorder    *audit.Recorder
	txMgr       repositories.TransactionManager
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new license Service
func NewService(repos *repositories.Repositories, txMgr repositories.TransactionManager, seatService *seats.Service,
	recorder *audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		licenses:    repos.Licenses,
		assignments: repos.Assignments,
		seats:       seatService,
		recorder:    recorder,
		txMgr:       txMgr,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns every license, newest first, with assigned and remaining counts
func (s *Service) List(ctx context.Context) ([]*models.LicenseSummary, error) {
	licenses, err := s.licenses.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list licenses", err)
	}
	return licenses, nil
}

// Get returns a license with its seats and assignments
func (s *Service) Get(ctx context.Context, id int64) (*models.LicenseDetail, error) {
	license, err := s.licenses.GetByID(ctx, id)
	if err != nil {
		return nil, services.MapRepoError(err, services.ErrLicenseNotFound, nil, "failed to load license")
	}

	assignments, err := s.assignments.ListByLicense(ctx, id)
	if err != nil {
		return nil, services.WrapInternal("failed to load assignments", err)
	}

	seatUsage, err := s.seats.ListByLicense(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.LicenseDetail{
		License:     *license,
		Seats:       seatUsage,
		Assignments: assignments,
	}, nil
}

// Create validates and inserts a license, creating its seats when it is seat-tracked
func (s *Service) Create(ctx context.Context, in Input, actor string) (*models.License, error) {
	license := models.NewLicense("", "", 0, time.Time{})
	if err := in.toLicense(license); err != nil {
		return nil, err
	}
	license.RenewalDate = renewal.NextRenewalDate(license, s.now())

	created, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.License, error) {
		if err := s.licenses.Create(ctx, license); err != nil {
			return nil, services.MapRepoError(err, nil, services.Conflict("license %s already exists", license.Name), "failed to create license")
		}

		if license.TracksSeats() {
			if _, err := s.seats.SyncSeats(ctx, license.ID, license.TotalQuantity); err != nil {
				return nil, err
			}
		}

		if err := s.recorder.Record(ctx, models.AuditEntityLicense, models.AuditActionCreated, license.ID, actor,
			fmt.Sprintf("%s created", license.Name), map[string]interface{}{
				"license_type":   license.LicenseType,
				"total_quantity": license.TotalQuantity,
			}); err != nil {
			return nil, services.WrapInternal("failed to record audit entry", err)
		}

		s.logger.Info("created license",
			zap.Int64("license_id", license.ID),
			zap.String("name", license.Name),
			zap.String("license_type", string(license.LicenseType)))
		return license, nil
	})
	if err != nil {
		return nil, err
	}
	s.Notify()
	return created, nil
}

// Update validates in and applies it to the license.
// Switching between volume and seat-tracked types is refused while assignments are active.
func (s *Service) Update(ctx context.Context, id int64, in Input, actor string) (*models.License, error) {
	result, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.License, error) {
		existing, err := s.licenses.GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, services.MapRepoError(err, services.ErrLicenseNotFound, nil, "failed to load license")
		}

		updated := *existing
		if err := in.toLicense(&updated); err != nil {
			return nil, err
		}
		if updated.RenewalCycle != existing.RenewalCycle || !sameTimePtr(updated.LastRenewedAt, existing.LastRenewedAt) ||
			!sameTimePtr(updated.FirstPurchasedAt, existing.FirstPurchasedAt) || !updated.PurchaseDate.Equal(existing.PurchaseDate) ||
			!sameIntPtr(updated.CycleMonths, existing.CycleMonths) {
			updated.RenewalDate = renewal.NextRenewalDate(&updated, s.now())
		}

		wasVolume := existing.IsVolume()
		if wasVolume != updated.IsVolume() {
			active, err := s.assignments.CountActive(ctx, id)
			if err != nil {
				return nil, services.WrapInternal("failed to count assignments", err)
			}
			if active > 0 {
				return nil, services.Validation(
					"cannot change the license type while %d assignments are active; return them first", active)
			}
		}

		if err := s.licenses.Update(ctx, &updated); err != nil {
			return nil, services.MapRepoError(err, services.ErrLicenseNotFound,
				services.Conflict("license %s already exists", updated.Name), "failed to update license")
		}

		if changes := diff(existing, &updated); len(changes) > 0 {
			if err := s.recorder.Record(ctx, models.AuditEntityLicense, models.AuditActionUpdated, id, actor,
				fmt.Sprintf("%s updated", updated.Name), map[string]interface{}{"changes": changes}); err != nil {
				return nil, services.WrapInternal("failed to record audit entry", err)
			}
		}

		switch {
		case !wasVolume && updated.IsVolume():
			if err := s.seats.DeleteAllSeats(ctx, id); err != nil {
				return nil, err
			}
		case updated.TracksSeats():
			if _, err := s.seats.SyncSeats(ctx, id, updated.TotalQuantity); err != nil {
				return nil, err
			}
		}

		s.logger.Info("updated license",
			zap.Int64("license_id", id),
			zap.String("name", updated.Name))
		return &updated, nil
	})
	if err != nil {
		return nil, err
	}
	s.Notify()
	return result, nil
}

// Delete removes a license. Seats, assignments and group memberships go with it.
func (s *Service) Delete(ctx context.Context, id int64, actor string) error {
	return s.NotifyOnSuccess(services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		license, err := s.licenses.GetByID(ctx, id)
		if err != nil {
			return services.MapRepoError(err, services.ErrLicenseNotFound, nil, "failed to load license")
		}

		if err := s.recorder.Record(ctx, models.AuditEntityLicense, models.AuditActionDeleted, id, actor,
			fmt.Sprintf("%s deleted", license.Name), nil); err != nil {
			return services.WrapInternal("failed to record audit entry", err)
		}

		if err := s.licenses.Delete(ctx, id); err != nil {
			return services.MapRepoError(err, services.ErrLicenseNotFound, nil, "failed to delete license")
		}

		s.logger.Info("deleted license", zap.Int64("license_id", id), zap.String("name", license.Name))
		return nil
	}))
}

// Change is one field's before and after values in an audit diff
type Change struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

// diff lists the audited fields that differ between before and after
func diff(before, after *models.License) map[string]Change {
	changes := map[string]Change{}

	if before.Name != after.Name {
		changes["name"] = Change{before.Name, after.Name}
	}
	if before.TotalQuantity != after.TotalQuantity {
		changes["total_quantity"] = Change{before.TotalQuantity, after.TotalQuantity}
	}
	if before.LicenseType != after.LicenseType {
		changes["license_type"] = Change{before.LicenseType, after.LicenseType}
	}
	if before.Price.Valid != after.Price.Valid || (before.Price.Valid && !before.Price.Decimal.Equal(after.Price.Decimal)) {
		changes["price"] = Change{decimalValue(before), decimalValue(after)}
	}
	if !sameIntPtr(before.NoticePeriodDays, after.NoticePeriodDays) {
		changes["notice_period_days"] = Change{before.NoticePeriodDays, after.NoticePeriodDays}
	}
	if !sameStringPtr(before.AdminName, after.AdminName) {
		changes["admin_name"] = Change{before.AdminName, after.AdminName}
	}
	if !sameStringPtr(before.Key, after.Key) {
		changes["key"] = Change{before.Key, after.Key}
	}
	return changes
}

func decimalValue(l *models.License) interface{} {
	if !l.Price.Valid {
		return nil
	}
	return l.Price.Decimal.String()
}

func sameStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
