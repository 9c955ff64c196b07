package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/audit"
	"github.com/upb/license-inventory/services/seats"
	"go.uber.org/zap"
)

// Assignment reasons written to history
const (
	ReasonManual       = "Manual assignment"
	ReasonManualReturn = "Manual unassignment"
	ReasonReturned     = "Returned"
	ReasonRevoked      = "Assignment deleted"
)

// AssignResult reports a bulk assignment
type AssignResult struct {
	Assigned int      `json:"assigned"`
	Skipped  []string `json:"skipped"`
}

// UnassignResult reports a bulk return
type UnassignResult struct {
	Returned int      `json:"returned"`
	Skipped  []string `json:"skipped"`
}

// Grant describes one new assignment
type Grant struct {
	License    *models.License
	EmployeeID int64
	AssignedAt time.Time // zero means now
	Reason     string
	Actor      string
}

// Service assigns licenses to employees and takes them back
type Service struct {
	services.ChangeHooks

	licenses    repositories.LicenseRepository
	employees   repositories.EmployeeRepository
	assignments repositories.AssignmentRepository
	seats       *seats.Service
	recorder    *audit.Recorder
	txMgr       repositories.TransactionManager
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new assignment Service
func NewService(repos *repositories.Repositories, txMgr repositories.TransactionManager, seatService *seats.Service,
	recorder *audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		licenses:    repos.Licenses,
		employees:   repos.Employees,
		assignments: repos.Assignments,
		seats:       seatService,
		recorder:    recorder,
		txMgr:       txMgr,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns every assignment with its license and employee, newest first
func (s *Service) List(ctx context.Context) ([]*models.AssignmentDetail, error) {
	list, err := s.assignments.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list assignments", err)
	}
	return list, nil
}

// Allocate creates an active assignment when the license has room for one more.
// Seat-tracked licenses take a free seat. ok is false when the license is full;
// nothing is written in that case. It runs in the transaction carried by ctx.
func (s *Service) Allocate(ctx context.Context, g Grant) (assignment *models.Assignment, ok bool, err error) {
	seatID, ok, err := s.seats.Reserve(ctx, g.License)
	if err != nil || !ok {
		return nil, false, err
	}

	assignment = models.NewAssignment(g.License.ID, g.EmployeeID, seatID, g.Reason)
	if !g.AssignedAt.IsZero() {
		assignment.AssignedDate = g.AssignedAt
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, false, services.Conflict("%s is already assigned to this employee", g.License.Name)
		}
		return nil, false, services.WrapInternal("failed to create assignment", err)
	}

	if err := s.assignments.CreateHistory(ctx, models.NewAssignmentHistory(assignment, models.HistoryAssigned, g.Reason)); err != nil {
		return nil, false, services.WrapInternal("failed to write assignment history", err)
	}

	extra := map[string]interface{}{
		"license_id":  g.License.ID,
		"employee_id": g.EmployeeID,
		"reason":      g.Reason,
	}
	if seatID != nil {
		extra["seat_id"] = *seatID
	}
	if err := s.recorder.Record(ctx, models.AuditEntityAssignment, models.AuditActionAssigned, assignment.ID, g.Actor,
		fmt.Sprintf("%s assigned", g.License.Name), extra); err != nil {
		return nil, false, services.WrapInternal("failed to record audit entry", err)
	}

	return assignment, true, nil
}

// Assign gives each listed license to the employee in one transaction.
// Missing, already held and full licenses are skipped with a message.
func (s *Service) Assign(ctx context.Context, employeeID int64, licenseIDs []int64, actor string) (*AssignResult, error) {
	if len(licenseIDs) == 0 {
		return nil, services.Validation("select at least one license to assign")
	}

	result, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*AssignResult, error) {
		if _, err := s.employees.GetByID(ctx, employeeID); err != nil {
			return nil, services.MapRepoError(err, services.ErrEmployeeNotFound, nil, "failed to load employee")
		}

		result := &AssignResult{Skipped: []string{}}
		for _, licenseID := range licenseIDs {
			license, err := s.licenses.GetByIDForUpdate(ctx, licenseID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					result.Skipped = append(result.Skipped, fmt.Sprintf("ID %d: license not found", licenseID))
					continue
				}
				return nil, services.WrapInternal("failed to load license", err)
			}

			held, err := s.Holds(ctx, license.ID, employeeID)
			if err != nil {
				return nil, err
			}
			if held {
				result.Skipped = append(result.Skipped, fmt.Sprintf("%s: already assigned", license.Name))
				continue
			}

			_, ok, err := s.Allocate(ctx, Grant{License: license, EmployeeID: employeeID, Reason: ReasonManual, Actor: actor})
			if err != nil {
				return nil, err
			}
			if !ok {
				result.Skipped = append(result.Skipped, fmt.Sprintf("%s: no remaining capacity", license.Name))
				continue
			}
			result.Assigned++
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	if result.Assigned == 0 {
		return nil, services.Validation("no licenses assigned: %s", strings.Join(result.Skipped, ", ")).
			WithDetail("skipped", result.Skipped)
	}

	s.Notify()
	s.logger.Info("assigned licenses",
		zap.Int64("employee_id", employeeID),
		zap.Int("assigned", result.Assigned),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// Holds reports whether the employee has an active assignment of the license
func (s *Service) Holds(ctx context.Context, licenseID, employeeID int64) (bool, error) {
	_, err := s.assignments.FindActive(ctx, licenseID, employeeID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repositories.ErrNotFound):
		return false, nil
	}
	return false, services.WrapInternal("failed to check existing assignment", err)
}

// Unassign returns the listed assignments of the employee in one transaction.
// Assignments of other employees and ones already returned are skipped.
func (s *Service) Unassign(ctx context.Context, employeeID int64, assignmentIDs []int64, actor string) (*UnassignResult, error) {
	if len(assignmentIDs) == 0 {
		return nil, services.Validation("select at least one assignment to return")
	}

	result, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*UnassignResult, error) {
		result := &UnassignResult{Skipped: []string{}}
		for _, id := range assignmentIDs {
			assignment, err := s.assignments.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					result.Skipped = append(result.Skipped, fmt.Sprintf("ID %d: assignment not found", id))
					continue
				}
				return nil, services.WrapInternal("failed to load assignment", err)
			}
			if assignment.EmployeeID != employeeID {
				result.Skipped = append(result.Skipped, fmt.Sprintf("ID %d: belongs to another employee", id))
				continue
			}
			if !assignment.IsActive() {
				result.Skipped = append(result.Skipped, fmt.Sprintf("ID %d: already returned", id))
				continue
			}

			if err := s.markReturned(ctx, assignment, ReasonManualReturn, actor); err != nil {
				return nil, err
			}
			result.Returned++
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	if result.Returned == 0 {
		return nil, services.Validation("no assignments could be returned").WithDetail("skipped", result.Skipped)
	}

	s.Notify()
	s.logger.Info("returned assignments",
		zap.Int64("employee_id", employeeID),
		zap.Int("returned", result.Returned))
	return result, nil
}

// Return ends a single active assignment
func (s *Service) Return(ctx context.Context, id int64, actor string) (*models.Assignment, error) {
	returned, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.Assignment, error) {
		assignment, err := s.assignments.GetByID(ctx, id)
		if err != nil {
			return nil, services.MapRepoError(err, services.ErrAssignmentNotFound, nil, "failed to load assignment")
		}
		if !assignment.IsActive() {
			return nil, services.ErrAlreadyReturned
		}

		if err := s.markReturned(ctx, assignment, ReasonReturned, actor); err != nil {
			return nil, err
		}
		return assignment, nil
	})
	if err != nil {
		return nil, err
	}
	s.Notify()
	return returned, nil
}

func (s *Service) markReturned(ctx context.Context, assignment *models.Assignment, reason, actor string) error {
	now := s.now()
	if err := s.assignments.MarkReturned(ctx, assignment.ID, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrAlreadyReturned
		}
		return services.WrapInternal("failed to return assignment", err)
	}
	assignment.ReturnedDate = &now

	if err := s.assignments.CreateHistory(ctx, models.NewAssignmentHistory(assignment, models.HistoryReturned, reason)); err != nil {
		return services.WrapInternal("failed to write assignment history", err)
	}

	if err := s.recorder.Record(ctx, models.AuditEntityAssignment, models.AuditActionUnassigned, assignment.ID, actor,
		fmt.Sprintf("assignment %d returned", assignment.ID), map[string]interface{}{
			"license_id":  assignment.LicenseID,
			"employee_id": assignment.EmployeeID,
		}); err != nil {
		return services.WrapInternal("failed to record audit entry", err)
	}
	return nil
}

// Delete removes an assignment outright. History rows keep the license and employee.
func (s *Service) Delete(ctx context.Context, id int64, actor string) error {
	return s.NotifyOnSuccess(services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		assignment, err := s.assignments.GetByID(ctx, id)
		if err != nil {
			return services.MapRepoError(err, services.ErrAssignmentNotFound, nil, "failed to load assignment")
		}

		if err := s.assignments.CreateHistory(ctx, models.NewAssignmentHistory(assignment, models.HistoryRevoked, ReasonRevoked)); err != nil {
			return services.WrapInternal("failed to write assignment history", err)
		}

		if err := s.recorder.Record(ctx, models.AuditEntityAssignment, models.AuditActionRevoked, id, actor,
			fmt.Sprintf("assignment %d deleted", id), map[string]interface{}{
				"license_id":  assignment.LicenseID,
				"employee_id": assignment.EmployeeID,
			}); err != nil {
			return services.WrapInternal("failed to record audit entry", err)
		}

		if err := s.assignments.Delete(ctx, id); err != nil {
			return services.MapRepoError(err, services.ErrAssignmentNotFound, nil, "failed to delete assignment")
		}

		s.logger.Info("deleted assignment", zap.Int64("assignment_id", id))
		return nil
	}))
}
