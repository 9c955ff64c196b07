package seats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/audit"
	"go.uber.org/zap"
)

// SyncResult reports what SyncSeats changed
type SyncResult struct {
	Created        int `json:"created"`
	Deleted        int `json:"deleted"`
	DeletedWithKey int `json:"deleted_with_key"`
}

// KeyCheck reports whether a seat key is already taken
type KeyCheck struct {
	Duplicate   bool   `json:"duplicate"`
	LicenseName string `json:"license_name,omitempty"`
}

// Service keeps the seat rows of seat-tracked licenses in line with their quantity
type Service struct {
	services.ChangeHooks

	licenses    repositories.LicenseRepository
	seats       repositories.SeatRepository
	assignments repositories.AssignmentRepository
	recorder    *audit.Recorder
	txMgr       repositories.TransactionManager
	logger      *zap.Logger
}

// NewService creates a new seat Service
func NewService(repos *repositories.Repositories, txMgr repositories.TransactionManager, recorder *audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		licenses:    repos.Licenses,
		seats:       repos.Seats,
		assignments: repos.Assignments,
		recorder:    recorder,
		txMgr:       txMgr,
		logger:      logger,
	}
}

// SyncSeats creates or deletes keyless seats until the license has totalQuantity seats.
// Seats held by an active assignment are never deleted; when too many are held the
// call fails with a validation error and nothing changes.
// It runs in the transaction carried by ctx, if any.
func (s *Service) SyncSeats(ctx context.Context, licenseID int64, totalQuantity int) (SyncResult, error) {
	var result SyncResult

	license, err := s.licenses.GetByID(ctx, licenseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return result, nil
		}
		return result, services.WrapInternal("failed to load license", err)
	}
	if license.IsVolume() {
		return result, nil
	}

	current, err := s.seats.ListUsage(ctx, licenseID)
	if err != nil {
		return result, services.WrapInternal("failed to load seats", err)
	}

	switch {
	case len(current) < totalQuantity:
		toCreate := totalQuantity - len(current)
		if err := s.seats.CreateBatch(ctx, licenseID, toCreate); err != nil {
			return result, services.WrapInternal("failed to create seats", err)
		}
		result.Created = toCreate

	case len(current) > totalQuantity:
		toDelete := len(current) - totalQuantity
		deletable := deletableSeats(current)
		if len(deletable) < toDelete {
			assigned := len(current) - len(deletable)
			return result, services.Validation(
				"cannot reduce %s to %d seats: %d seats are assigned, quantity must be at least %d",
				license.Name, totalQuantity, assigned, assigned)
		}

		ids := make([]int64, 0, toDelete)
		for _, seat := range deletable[:toDelete] {
			ids = append(ids, seat.ID)
			if seat.HasKey() {
				result.DeletedWithKey++
			}
		}
		if err := s.seats.DeleteByIDs(ctx, ids); err != nil {
			return result, services.WrapInternal("failed to delete seats", err)
		}
		result.Deleted = len(ids)
	}

	if result.Created > 0 || result.Deleted > 0 {
		s.logger.Info("synced license seats",
			zap.Int64("license_id", licenseID),
			zap.Int("created", result.Created),
			zap.Int("deleted", result.Deleted),
			zap.Int("deleted_with_key", result.DeletedWithKey))
	}
	return result, nil
}

// deletableSeats returns unassigned keyless seats followed by unassigned keyed seats.
// current is already ordered by id.
func deletableSeats(current []*models.SeatUsage) []*models.SeatUsage {
	var keyless, keyed []*models.SeatUsage
	for _, seat := range current {
		if seat.IsAssigned() {
			continue
		}
		if seat.HasKey() {
			keyed = append(keyed, seat)
		} else {
			keyless = append(keyless, seat)
		}
	}
	return append(keyless, keyed...)
}

// DeleteAllSeats removes every seat of a license. It fails if any seat is assigned.
func (s *Service) DeleteAllSeats(ctx context.Context, licenseID int64) error {
	current, err := s.seats.ListUsage(ctx, licenseID)
	if err != nil {
		return services.WrapInternal("failed to load seats", err)
	}

	keyed := 0
	for _, seat := range current {
		if seat.IsAssigned() {
			return services.Validation("seats with active assignments exist; return the assignments first")
		}
		if seat.HasKey() {
			keyed++
		}
	}

	deleted, err := s.seats.DeleteByLicense(ctx, licenseID)
	if err != nil {
		return services.WrapInternal("failed to delete seats", err)
	}

	if keyed > 0 {
		s.logger.Warn("deleted seats holding keys",
			zap.Int64("license_id", licenseID),
			zap.Int("keyed_seats", keyed))
	}
	s.logger.Info("deleted all license seats",
		zap.Int64("license_id", licenseID),
		zap.Int64("deleted", deleted))
	return nil
}

// Reserve finds room for one more active assignment of license.
// Seat-tracked licenses take a free seat, keyed seats first, and return its id.
// Volume licenses return a nil seat while active assignments are below the total.
// ok is false when the license is full. Callers hold the license row lock.
func (s *Service) Reserve(ctx context.Context, license *models.License) (seatID *int64, ok bool, err error) {
	if license.IsVolume() {
		active, err := s.assignments.CountActive(ctx, license.ID)
		if err != nil {
			return nil, false, services.WrapInternal("failed to count assignments", err)
		}
		return nil, active < license.TotalQuantity, nil
	}

	seat, err := s.seats.FindFreeSeat(ctx, license.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, services.WrapInternal("failed to find a free seat", err)
	}
	id := seat.ID
	return &id, true, nil
}

// ListByLicense returns the license's seats with their usage
func (s *Service) ListByLicense(ctx context.Context, licenseID int64) ([]*models.SeatUsage, error) {
	if _, err := s.licenses.GetByID(ctx, licenseID); err != nil {
		return nil, services.MapRepoError(err, services.ErrLicenseNotFound, nil, "failed to load license")
	}
	usage, err := s.seats.ListUsage(ctx, licenseID)
	if err != nil {
		return nil, services.WrapInternal("failed to load seats", err)
	}
	return usage, nil
}

// CheckKey reports whether key is held by a seat other than excludeSeatID
func (s *Service) CheckKey(ctx context.Context, key string, excludeSeatID *int64) (*KeyCheck, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return &KeyCheck{}, nil
	}

	owner, err := s.seats.FindKeyOwner(ctx, key, excludeSeatID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &KeyCheck{}, nil
		}
		return nil, services.WrapInternal("failed to check key", err)
	}
	return &KeyCheck{Duplicate: true, LicenseName: owner.LicenseName}, nil
}

// UpdateKey sets or clears the key of a seat. An empty key clears it.
func (s *Service) UpdateKey(ctx context.Context, seatID int64, key, actor string) (*models.LicenseSeat, error) {
	var newKey *string
	if trimmed := strings.TrimSpace(key); trimmed != "" {
		newKey = &trimmed
	}

	updated, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.LicenseSeat, error) {
		seat, err := s.seats.GetByID(ctx, seatID)
		if err != nil {
			return nil, services.MapRepoError(err, services.ErrSeatNotFound, nil, "failed to load seat")
		}

		if newKey != nil {
			owner, err := s.seats.FindKeyOwner(ctx, *newKey, &seatID)
			switch {
			case err == nil:
				return nil, services.Conflict("key is already used by license %s", owner.LicenseName)
			case !errors.Is(err, repositories.ErrNotFound):
				return nil, services.WrapInternal("failed to check key", err)
			}
		}

		if err := s.seats.UpdateKey(ctx, seatID, newKey); err != nil {
			return nil, services.MapRepoError(err, services.ErrSeatNotFound, services.ErrDuplicateKey, "failed to update seat key")
		}

		previous := seat.Key
		seat.Key = newKey
		if err := s.recorder.Record(ctx, models.AuditEntitySeat, models.AuditActionUpdated, seatID, actor,
			fmt.Sprintf("seat %d key updated", seatID), map[string]interface{}{
				"license_id": seat.LicenseID,
				"key":        map[string]interface{}{"from": previous, "to": newKey},
			}); err != nil {
			return nil, services.WrapInternal("failed to record audit entry", err)
		}

		s.logger.Info("updated seat key",
			zap.Int64("seat_id", seatID),
			zap.Int64("license_id", seat.LicenseID),
			zap.Bool("cleared", newKey == nil))
		return seat, nil
	})
	if err != nil {
		return nil, err
	}
	s.Notify()
	return updated, nil
}

// SeedMissing creates quantity keyless seats for every seat-tracked license that has none.
// It returns how many licenses were seeded.
func (s *Service) SeedMissing(ctx context.Context) (int, error) {
	licenses, err := s.licenses.ListAll(ctx)
	if err != nil {
		return 0, services.WrapInternal("failed to list licenses", err)
	}

	seeded := 0
	defer func() {
		if seeded > 0 {
			s.Notify()
		}
	}()
	for _, license := range licenses {
		if license.IsVolume() || license.TotalQuantity < 1 {
			continue
		}

		err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
			current, err := s.seats.ListUsage(ctx, license.ID)
			if err != nil {
				return services.WrapInternal("failed to load seats", err)
			}
			if len(current) > 0 {
				return nil
			}
			if err := s.seats.CreateBatch(ctx, license.ID, license.TotalQuantity); err != nil {
				return services.WrapInternal("failed to create seats", err)
			}
			seeded++
			s.logger.Info("seeded license seats",
				zap.Int64("license_id", license.ID),
				zap.String("license", license.Name),
				zap.Int("seats", license.TotalQuantity))
			return nil
		})
		if err != nil {
			return seeded, fmt.Errorf("seed seats for %q: %w", license.Name, err)
		}
	}
	return seeded, nil
}
