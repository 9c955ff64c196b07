package importer

import (
	"context"
	"time"

	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/assignments"
)

const defaultImportReason = "CSV Import"

type assignmentRow struct {
	num           int
	licenseName   string
	employeeEmail string
	assignedDate  *time.Time
	reason        string
}

func (s *Service) importAssignments(ctx context.Context, records []record, actor string) (*Result, error) {
	errs := &Errors{}
	rows := make([]assignmentRow, 0, len(records))
	for _, rec := range records {
		r := assignmentRow{
			num:           rec.num,
			licenseName:   errs.RequireField(rec.get("licenseName"), rec.num, "licenseName"),
			employeeEmail: errs.RequireField(rec.get("employeeEmail"), rec.num, "employeeEmail"),
			assignedDate:  errs.ParseDate(rec.get("assignedDate"), rec.num, "assignedDate", false),
			reason:        rec.get("reason"),
		}
		if r.reason == "" {
			r.reason = defaultImportReason
		}
		rows = append(rows, r)
	}
	if !errs.Empty() {
		return rowFailure(errs.List()), nil
	}

	result := success(0, 0)
	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		for _, r := range rows {
			if err := s.assignRow(ctx, r, actor); err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) assignRow(ctx context.Context, r assignmentRow, actor string) error {
	license, err := s.licenses.GetByName(ctx, r.licenseName)
	if err != nil {
		if isNotFound(err) {
			return abortf("row %d: license %q not found", r.num, r.licenseName)
		}
		return services.WrapInternal("failed to load license", err)
	}
	if license, err = s.licenses.GetByIDForUpdate(ctx, license.ID); err != nil {
		return services.WrapInternal("failed to lock license", err)
	}

	employee, err := s.employees.GetByEmail(ctx, r.employeeEmail)
	if err != nil {
		if isNotFound(err) {
			return abortf("row %d: no employee with email %q", r.num, r.employeeEmail)
		}
		return services.WrapInternal("failed to load employee", err)
	}

	held, err := s.allocator.Holds(ctx, license.ID, employee.ID)
	if err != nil {
		return err
	}
	if held {
		return abortf("row %d: %q is already assigned to %s", r.num, r.licenseName, employee.Name)
	}

	grant := assignments.Grant{License: license, EmployeeID: employee.ID, Reason: r.reason, Actor: actor}
	if r.assignedDate != nil {
		grant.AssignedAt = *r.assignedDate
	}
	_, ok, err := s.allocator.Allocate(ctx, grant)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if license.IsVolume() {
		active, err := s.assignments.CountActive(ctx, license.ID)
		if err != nil {
			return services.WrapInternal("failed to count assignments", err)
		}
		return abortf("row %d: no remaining capacity for volume license %q (%d/%d assigned)",
			r.num, r.licenseName, active, license.TotalQuantity)
	}
	total, err := s.seatRepo.CountByLicense(ctx, license.ID)
	if err != nil {
		return services.WrapInternal("failed to count seats", err)
	}
	return abortf("row %d: no remaining seats for %q (all %d assigned)", r.num, r.licenseName, total)
}
