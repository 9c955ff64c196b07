package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"go.uber.org/zap"
)

const assignmentDetailQuery = `
	SELECT a.id, a.license_id, a.employee_id, a.seat_id, a.assigned_date, a.returned_date, a.reason,
	       l.name, l.license_type, e.name, e.email, e.department, s.key
	FROM assignments a
	JOIN licenses l ON l.id = a.license_id
	JOIN employees e ON e.id = a.employee_id
	LEFT JOIN license_seats s ON s.id = a.seat_id`

// AssignmentRepository implements the repositories.AssignmentRepository interface
type AssignmentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *DB, logger *zap.Logger) repositories.AssignmentRepository {
	return &AssignmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new assignment
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	query := `
		INSERT INTO assignments (license_id, employee_id, seat_id, assigned_date, returned_date, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		a.LicenseID, a.EmployeeID, a.SeatID, a.AssignedDate, a.ReturnedDate, a.Reason,
	).Scan(&a.ID)
	if err != nil {
		return wrapWriteError("create assignment", err)
	}

	r.logger.Debug("assignment created",
		zap.Int64("id", a.ID),
		zap.Int64("license_id", a.LicenseID),
		zap.Int64("employee_id", a.EmployeeID),
	)
	return nil
}

func (r *AssignmentRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*models.Assignment, error) {
	a := &models.Assignment{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.LicenseID, &a.EmployeeID, &a.SeatID, &a.AssignedDate, &a.ReturnedDate, &a.Reason,
	)
	return a, err
}

// GetByID retrieves an assignment by ID
func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*models.Assignment, error) {
	query := `
		SELECT id, license_id, employee_id, seat_id, assigned_date, returned_date, reason
		FROM assignments
		WHERE id = $1
	`

	a, err := r.scanOne(ctx, query, id)
	if err != nil {
		return nil, wrapReadError("assignment", id, err)
	}
	return a, nil
}

// FindActive returns the active assignment of a license to an employee
func (r *AssignmentRepository) FindActive(ctx context.Context, licenseID, employeeID int64) (*models.Assignment, error) {
	query := `
		SELECT id, license_id, employee_id, seat_id, assigned_date, returned_date, reason
		FROM assignments
		WHERE license_id = $1 AND employee_id = $2 AND returned_date IS NULL
		LIMIT 1
	`

	a, err := r.scanOne(ctx, query, licenseID, employeeID)
	if err != nil {
		return nil, wrapReadError("active assignment", fmt.Sprintf("%d/%d", licenseID, employeeID), err)
	}
	return a, nil
}

func (r *AssignmentRepository) listDetails(ctx context.Context, where string, args ...interface{}) ([]*models.AssignmentDetail, error) {
	query := assignmentDetailQuery + " " + where + " ORDER BY a.assigned_date DESC, a.id DESC"

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*models.AssignmentDetail
	for rows.Next() {
		d := &models.AssignmentDetail{}
		if err := rows.Scan(
			&d.ID, &d.LicenseID, &d.EmployeeID, &d.SeatID, &d.AssignedDate, &d.ReturnedDate, &d.Reason,
			&d.LicenseName, &d.LicenseType, &d.EmployeeName, &d.EmployeeEmail, &d.EmployeeDepartment, &d.SeatKey,
		); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignment rows: %w", err)
	}

	return assignments, nil
}

// List retrieves every assignment newest first
func (r *AssignmentRepository) List(ctx context.Context) ([]*models.AssignmentDetail, error) {
	return r.listDetails(ctx, "")
}

// ListByEmployee retrieves the assignments of an employee
func (r *AssignmentRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]*models.AssignmentDetail, error) {
	return r.listDetails(ctx, "WHERE a.employee_id = $1", employeeID)
}

// ListByLicense retrieves the assignments of a license
func (r *AssignmentRepository) ListByLicense(ctx context.Context, licenseID int64) ([]*models.AssignmentDetail, error) {
	return r.listDetails(ctx, "WHERE a.license_id = $1", licenseID)
}

// CountActive counts active assignments of a license
func (r *AssignmentRepository) CountActive(ctx context.Context, licenseID int64) (int, error) {
	query := `SELECT COUNT(*) FROM assignments WHERE license_id = $1 AND returned_date IS NULL`

	var count int
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, licenseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active assignments: %w", err)
	}
	return count, nil
}

// MarkReturned closes an active assignment
func (r *AssignmentRepository) MarkReturned(ctx context.Context, id int64, returnedAt time.Time) error {
	query := `UPDATE assignments SET returned_date = $2 WHERE id = $1 AND returned_date IS NULL`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, id, returnedAt)
	if err != nil {
		return fmt.Errorf("failed to mark assignment returned: %w", err)
	}

	if err := checkRowsAffected(result, "active assignment", id); err != nil {
		return err
	}

	r.logger.Debug("assignment returned", zap.Int64("id", id))
	return nil
}

// Delete deletes an assignment
func (r *AssignmentRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM assignments WHERE id = $1`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	if err := checkRowsAffected(result, "assignment", id); err != nil {
		return err
	}

	r.logger.Debug("assignment deleted", zap.Int64("id", id))
	return nil
}

// CreateHistory appends an assignment history row
func (r *AssignmentRepository) CreateHistory(ctx context.Context, h *models.AssignmentHistory) error {
	query := `
		INSERT INTO assignment_history (assignment_id, license_id, employee_id, action, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		h.AssignmentID, h.LicenseID, h.EmployeeID, h.Action, h.Reason, h.CreatedAt,
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("failed to create assignment history: %w", err)
	}

	return nil
}
