package employees

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/assignments"
	"github.com/upb/license-inventory/services/audit"
	"go.uber.org/zap"
)

// CreateInput holds the fields of a new employee
type CreateInput struct {
	Name       string  `json:"name" validate:"required,max=255"`
	Department string  `json:"department" validate:"required,max=255"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Title      *string `json:"title"`
	CompanyID  *int64  `json:"company_id"`
	OrgUnitID  *int64  `json:"org_unit_id"`
}

// UpdateInput holds the fields to change; nil fields are left as they are.
// An empty email clears it.
type UpdateInput struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
	Email      *string `json:"email"`
	Title      *string `json:"title"`
	CompanyID  *int64  `json:"company_id"`
	OrgUnitID  *int64  `json:"org_unit_id"`
}

// AutoAssigned is a license given to a new employee through a group
type AutoAssigned struct {
	LicenseID   int64  `json:"license_id"`
	LicenseName string `json:"license_name"`
	GroupName   string `json:"group_name"`
}

// CreateResult is a created employee with the licenses it received
type CreateResult struct {
	Employee     *models.Employee `json:"employee"`
	AutoAssigned []AutoAssigned   `json:"auto_assigned"`
}

// Service manages employees
type Service struct {
	employees   repositories.EmployeeRepository
	licenses    repositories.LicenseRepository
	groups      repositories.GroupRepository
	assignments repositories.AssignmentRepository
	allocator   *assignments.Service
	recorder    *audit.Recorder
	txMgr       repositories.TransactionManager
	logger      *zap.Logger
}

// NewService creates a new employee Service
func NewService(repos *repositories.Repositories, txMgr repositories.TransactionManager, allocator *assignments.Service,
	recorder *audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		employees:   repos.Employees,
		licenses:    repos.Licenses,
		groups:      repos.Groups,
		assignments: repos.Assignments,
		allocator:   allocator,
		recorder:    recorder,
		txMgr:       txMgr,
		logger:      logger,
	}
}

// List returns employees ordered by name with their active assignment counts
func (s *Service) List(ctx context.Context) ([]*models.EmployeeSummary, error) {
	list, err := s.employees.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list employees", err)
	}
	return list, nil
}

// Get returns an employee with every assignment, newest first
func (s *Service) Get(ctx context.Context, id int64) (*models.EmployeeDetail, error) {
	employee, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, services.MapRepoError(err, services.ErrEmployeeNotFound, nil, "failed to load employee")
	}

	list, err := s.assignments.ListByEmployee(ctx, id)
	if err != nil {
		return nil, services.WrapInternal("failed to load assignments", err)
	}

	return &models.EmployeeDetail{Employee: *employee, Assignments: list}, nil
}

// Create inserts an employee and assigns the licenses of every default group
func (s *Service) Create(ctx context.Context, in CreateInput, actor string) (*CreateResult, error) {
	name := strings.TrimSpace(in.Name)
	department := strings.TrimSpace(in.Department)
	switch {
	case name == "":
		return nil, services.Validation("name is required")
	case department == "":
		return nil, services.Validation("department is required")
	}

	employee := models.NewEmployee(name, department, optional(in.Email))
	employee.Title = optional(in.Title)
	employee.CompanyID = in.CompanyID
	employee.OrgUnitID = in.OrgUnitID

	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*CreateResult, error) {
		if err := s.employees.Create(ctx, employee); err != nil {
			return nil, mapWriteError(err, nil, "failed to create employee")
		}

		if err := s.recorder.Record(ctx, models.AuditEntityEmployee, models.AuditActionCreated, employee.ID, actor,
			fmt.Sprintf("%s created", employee.Name), map[string]interface{}{"department": employee.Department}); err != nil {
			return nil, services.WrapInternal("failed to record audit entry", err)
		}

		defaults, err := s.groups.ListDefault(ctx)
		if err != nil {
			return nil, services.WrapInternal("failed to load default groups", err)
		}

		result := &CreateResult{Employee: employee, AutoAssigned: []AutoAssigned{}}
		for _, group := range defaults {
			granted, err := s.AutoAssign(ctx, employee.ID, group, GroupReason, actor)
			if err != nil {
				return nil, err
			}
			result.AutoAssigned = append(result.AutoAssigned, granted...)
		}

		s.logger.Info("created employee",
			zap.Int64("employee_id", employee.ID),
			zap.Int("auto_assigned", len(result.AutoAssigned)))
		return result, nil
	})
}

// ReasonFunc builds the assignment reason for a license granted through a group
type ReasonFunc func(group string, license *models.License) string

// GroupReason names the group and one of the three key kinds
func GroupReason(group string, license *models.License) string {
	return fmt.Sprintf("Auto-assigned via Group: %s (%s)", group, license.KeyLabel())
}

// AutoAssign gives the employee every license of group that it does not hold yet
// and that still has capacity. It runs in the transaction carried by ctx.
func (s *Service) AutoAssign(ctx context.Context, employeeID int64, group *models.LicenseGroup, reason ReasonFunc, actor string) ([]AutoAssigned, error) {
	members, err := s.groups.ListMembers(ctx, group.ID)
	if err != nil {
		return nil, services.WrapInternal("failed to load group licenses", err)
	}

	var granted []AutoAssigned
	for _, member := range members {
		license, err := s.licenses.GetByIDForUpdate(ctx, member.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			return nil, services.WrapInternal("failed to load license", err)
		}

		held, err := s.allocator.Holds(ctx, license.ID, employeeID)
		if err != nil {
			return nil, err
		}
		if held {
			continue
		}

		_, ok, err := s.allocator.Allocate(ctx, assignments.Grant{
			License:    license,
			EmployeeID: employeeID,
			Reason:     reason(group.Name, license),
			Actor:      actor,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.Debug("skipped auto-assignment, license is full",
				zap.Int64("license_id", license.ID),
				zap.Int64("employee_id", employeeID))
			continue
		}

		granted = append(granted, AutoAssigned{LicenseID: license.ID, LicenseName: license.Name, GroupName: group.Name})
	}
	return granted, nil
}

// Update changes the given fields of an employee
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actor string) (*models.Employee, error) {
	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.Employee, error) {
		employee, err := s.employees.GetByID(ctx, id)
		if err != nil {
			return nil, services.MapRepoError(err, services.ErrEmployeeNotFound, nil, "failed to load employee")
		}

		if in.Name != nil {
			if employee.Name = strings.TrimSpace(*in.Name); employee.Name == "" {
				return nil, services.Validation("name is required")
			}
		}
		if in.Department != nil {
			if employee.Department = strings.TrimSpace(*in.Department); employee.Department == "" {
				return nil, services.Validation("department is required")
			}
		}
		if in.Email != nil {
			employee.Email = optional(in.Email)
		}
		if in.Title != nil {
			employee.Title = optional(in.Title)
		}
		if in.CompanyID != nil {
			employee.CompanyID = nonZero(in.CompanyID)
		}
		if in.OrgUnitID != nil {
			employee.OrgUnitID = nonZero(in.OrgUnitID)
		}
		employee.UpdatedAt = time.Now()

		if err := s.employees.Update(ctx, employee); err != nil {
			return nil, mapWriteError(err, services.ErrEmployeeNotFound, "failed to update employee")
		}

		if err := s.recorder.Record(ctx, models.AuditEntityEmployee, models.AuditActionUpdated, id, actor,
			fmt.Sprintf("%s updated", employee.Name), nil); err != nil {
			return nil, services.WrapInternal("failed to record audit entry", err)
		}
		return employee, nil
	})
}

// Delete removes an employee and, through the schema, its assignments
func (s *Service) Delete(ctx context.Context, id int64, actor string) error {
	return services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		employee, err := s.employees.GetByID(ctx, id)
		if err != nil {
			return services.MapRepoError(err, services.ErrEmployeeNotFound, nil, "failed to load employee")
		}

		if err := s.recorder.Record(ctx, models.AuditEntityEmployee, models.AuditActionDeleted, id, actor,
			fmt.Sprintf("%s deleted", employee.Name), nil); err != nil {
			return services.WrapInternal("failed to record audit entry", err)
		}

		if err := s.employees.Delete(ctx, id); err != nil {
			return services.MapRepoError(err, services.ErrEmployeeNotFound, nil, "failed to delete employee")
		}

		s.logger.Info("deleted employee", zap.Int64("employee_id", id))
		return nil
	})
}

// optional trims s and turns empty strings into nil
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// nonZero treats an explicit 0 id as clearing the reference
func nonZero(id *int64) *int64 {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
}

// mapWriteError reports a dangling company or org unit id as a validation error
func mapWriteError(err error, notFound *services.DomainError, message string) error {
	if errors.Is(err, repositories.ErrInvalidReference) {
		return services.NewDomainError(services.ErrUnknownOrgRef.Type, services.ErrUnknownOrgRef.Message, err)
	}
	return services.MapRepoError(err, notFound, services.ErrDuplicateEmail, message)
}
