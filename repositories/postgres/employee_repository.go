package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"go.uber.org/zap"
)

const employeeColumns = `e.id, e.name, e.department, e.email, e.title, e.company_id, e.org_unit_id, e.created_at, e.updated_at`

func employeeScanTargets(e *models.Employee) []interface{} {
	return []interface{}{
		&e.ID, &e.Name, &e.Department, &e.Email, &e.Title,
		&e.CompanyID, &e.OrgUnitID, &e.CreatedAt, &e.UpdatedAt,
	}
}

// EmployeeRepository implements the repositories.EmployeeRepository interface
type EmployeeRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *DB, logger *zap.Logger) repositories.EmployeeRepository {
	return &EmployeeRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new employee
func (r *EmployeeRepository) Create(ctx context.Context, e *models.Employee) error {
	query := `
		INSERT INTO employees (name, department, email, title, company_id, org_unit_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		e.Name, e.Department, e.Email, e.Title, e.CompanyID, e.OrgUnitID, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return wrapWriteError("create employee", err)
	}

	r.logger.Debug("employee created", zap.Int64("id", e.ID), zap.String("name", e.Name))
	return nil
}

// GetByID retrieves an employee by ID
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees e WHERE e.id = $1`

	e := &models.Employee{}
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(employeeScanTargets(e)...); err != nil {
		return nil, wrapReadError("employee", id, err)
	}
	return e, nil
}

// GetByEmail retrieves an employee by email
func (r *EmployeeRepository) GetByEmail(ctx context.Context, email string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees e WHERE e.email = $1`

	e := &models.Employee{}
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, email).Scan(employeeScanTargets(e)...); err != nil {
		return nil, wrapReadError("employee", email, err)
	}
	return e, nil
}

// List retrieves all employees ordered by name
func (r *EmployeeRepository) List(ctx context.Context) ([]*models.EmployeeSummary, error) {
	query := `
		SELECT ` + employeeColumns + `,
		       (SELECT COUNT(*) FROM assignments a
		        WHERE a.employee_id = e.id AND a.returned_date IS NULL) AS active_assignments
		FROM employees e
		ORDER BY e.name, e.id
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []*models.EmployeeSummary
	for rows.Next() {
		s := &models.EmployeeSummary{}
		targets := append(employeeScanTargets(&s.Employee), &s.ActiveAssignments)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employee rows: %w", err)
	}

	return employees, nil
}

// Update updates an employee
func (r *EmployeeRepository) Update(ctx context.Context, e *models.Employee) error {
	query := `
		UPDATE employees
		SET name = $2, department = $3, email = $4, title = $5,
		    company_id = $6, org_unit_id = $7, updated_at = $8
		WHERE id = $1
	`

	e.UpdatedAt = time.Now()
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		e.ID, e.Name, e.Department, e.Email, e.Title, e.CompanyID, e.OrgUnitID, e.UpdatedAt,
	)
	if err != nil {
		return wrapWriteError("update employee", err)
	}

	if err := checkRowsAffected(result, "employee", e.ID); err != nil {
		return err
	}

	r.logger.Debug("employee updated", zap.Int64("id", e.ID))
	return nil
}

// Delete deletes an employee; assignments cascade
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM employees WHERE id = $1`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}

	if err := checkRowsAffected(result, "employee", id); err != nil {
		return err
	}

	r.logger.Debug("employee deleted", zap.Int64("id", id))
	return nil
}
