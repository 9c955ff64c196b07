package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"go.uber.org/zap"
)

// SeatRepository implements the repositories.SeatRepository interface
type SeatRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSeatRepository creates a new seat repository
func NewSeatRepository(db *DB, logger *zap.Logger) repositories.SeatRepository {
	return &SeatRepository{
		db:     db,
		logger: logger,
	}
}

// ListUsage retrieves the seats of a license with their active assignment counts
func (r *SeatRepository) ListUsage(ctx context.Context, licenseID int64) ([]*models.SeatUsage, error) {
	query := `
		SELECT s.id, s.license_id, s.key, s.created_at,
		       (SELECT COUNT(*) FROM assignments a
		        WHERE a.seat_id = s.id AND a.returned_date IS NULL) AS active_assignments
		FROM license_seats s
		WHERE s.license_id = $1
		ORDER BY s.id
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, licenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query seats: %w", err)
	}
	defer rows.Close()

	var seats []*models.SeatUsage
	for rows.Next() {
		s := &models.SeatUsage{}
		if err := rows.Scan(&s.ID, &s.LicenseID, &s.Key, &s.CreatedAt, &s.ActiveAssignments); err != nil {
			return nil, fmt.Errorf("failed to scan seat: %w", err)
		}
		seats = append(seats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seat rows: %w", err)
	}

	return seats, nil
}

// CreateBatch inserts count keyless seats for a license
func (r *SeatRepository) CreateBatch(ctx context.Context, licenseID int64, count int) error {
	if count <= 0 {
		return nil
	}

	query := `
		INSERT INTO license_seats (license_id, created_at)
		SELECT $1, CURRENT_TIMESTAMP FROM generate_series(1, $2)
	`

	if _, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, licenseID, count); err != nil {
		return fmt.Errorf("failed to create seats: %w", err)
	}

	r.logger.Debug("seats created", zap.Int64("license_id", licenseID), zap.Int("count", count))
	return nil
}

// DeleteByIDs deletes the given seats
func (r *SeatRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := `DELETE FROM license_seats WHERE id = ANY($1)`

	if _, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete seats: %w", err)
	}

	r.logger.Debug("seats deleted", zap.Int("count", len(ids)))
	return nil
}

// DeleteByLicense deletes every seat of a license and returns how many were removed
func (r *SeatRepository) DeleteByLicense(ctx context.Context, licenseID int64) (int64, error) {
	query := `DELETE FROM license_seats WHERE license_id = $1`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, licenseID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete seats: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Debug("license seats deleted", zap.Int64("license_id", licenseID), zap.Int64("count", deleted))
	return deleted, nil
}

// GetByID retrieves a seat by ID
func (r *SeatRepository) GetByID(ctx context.Context, id int64) (*models.LicenseSeat, error) {
	query := `SELECT id, license_id, key, created_at FROM license_seats WHERE id = $1`

	seat := &models.LicenseSeat{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&seat.ID, &seat.LicenseID, &seat.Key, &seat.CreatedAt,
	)
	if err != nil {
		return nil, wrapReadError("seat", id, err)
	}
	return seat, nil
}

// FindKeyOwner returns the seat holding key, skipping excludeSeatID
func (r *SeatRepository) FindKeyOwner(ctx context.Context, key string, excludeSeatID *int64) (*models.SeatKeyOwner, error) {
	query := `
		SELECT s.id, s.license_id, l.name
		FROM license_seats s
		JOIN licenses l ON l.id = s.license_id
		WHERE s.key = $1 AND ($2::BIGINT IS NULL OR s.id <> $2)
		LIMIT 1
	`

	owner := &models.SeatKeyOwner{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, key, excludeSeatID).Scan(
		&owner.SeatID, &owner.LicenseID, &owner.LicenseName,
	)
	if err != nil {
		return nil, wrapReadError("seat key", key, err)
	}
	return owner, nil
}

// FindKeyOwners returns the seats holding any of keys
func (r *SeatRepository) FindKeyOwners(ctx context.Context, keys []string) (map[string]*models.SeatKeyOwner, error) {
	owners := make(map[string]*models.SeatKeyOwner)
	if len(keys) == 0 {
		return owners, nil
	}

	query := `
		SELECT s.key, s.id, s.license_id, l.name
		FROM license_seats s
		JOIN licenses l ON l.id = s.license_id
		WHERE s.key = ANY($1)
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to query seat keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		owner := &models.SeatKeyOwner{}
		if err := rows.Scan(&key, &owner.SeatID, &owner.LicenseID, &owner.LicenseName); err != nil {
			return nil, fmt.Errorf("failed to scan seat key: %w", err)
		}
		owners[key] = owner
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seat key rows: %w", err)
	}

	return owners, nil
}

// UpdateKey sets or clears the key of a seat
func (r *SeatRepository) UpdateKey(ctx context.Context, id int64, key *string) error {
	query := `UPDATE license_seats SET key = $2 WHERE id = $1`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, id, key)
	if err != nil {
		return wrapWriteError("update seat key", err)
	}

	if err := checkRowsAffected(result, "seat", id); err != nil {
		return err
	}

	r.logger.Debug("seat key updated", zap.Int64("seat_id", id), zap.Bool("has_key", key != nil))
	return nil
}

// FindFreeSeat locks an unassigned seat, preferring seats that carry a key
func (r *SeatRepository) FindFreeSeat(ctx context.Context, licenseID int64) (*models.LicenseSeat, error) {
	query := `
		SELECT s.id, s.license_id, s.key, s.created_at
		FROM license_seats s
		WHERE s.license_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM assignments a
			WHERE a.seat_id = s.id AND a.returned_date IS NULL
		  )
		ORDER BY (s.key IS NULL), s.id
		LIMIT 1
		FOR UPDATE OF s SKIP LOCKED
	`

	seat := &models.LicenseSeat{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, licenseID).Scan(
		&seat.ID, &seat.LicenseID, &seat.Key, &seat.CreatedAt,
	)
	if err != nil {
		return nil, wrapReadError("free seat for license", licenseID, err)
	}
	return seat, nil
}

// ListEmpty returns the keyless seats of a license ordered by id
func (r *SeatRepository) ListEmpty(ctx context.Context, licenseID int64) ([]*models.LicenseSeat, error) {
	query := `
		SELECT id, license_id, key, created_at
		FROM license_seats
		WHERE license_id = $1 AND key IS NULL
		ORDER BY id
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, licenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query empty seats: %w", err)
	}
	defer rows.Close()

	var seats []*models.LicenseSeat
	for rows.Next() {
		s := &models.LicenseSeat{}
		if err := rows.Scan(&s.ID, &s.LicenseID, &s.Key, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan seat: %w", err)
		}
		seats = append(seats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seat rows: %w", err)
	}

	return seats, nil
}

// CountAssigned counts seats of a license held by an active assignment
func (r *SeatRepository) CountAssigned(ctx context.Context, licenseID int64) (int, error) {
	query := `
		SELECT COUNT(DISTINCT a.seat_id)
		FROM assignments a
		JOIN license_seats s ON s.id = a.seat_id
		WHERE s.license_id = $1 AND a.returned_date IS NULL
	`

	var count int
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, licenseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count assigned seats: %w", err)
	}
	return count, nil
}

// CountByLicense counts all seats of a license
func (r *SeatRepository) CountByLicense(ctx context.Context, licenseID int64) (int, error) {
	query := `SELECT COUNT(*) FROM license_seats WHERE license_id = $1`

	var count int
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, licenseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count seats: %w", err)
	}
	return count, nil
}
