package importer

import (
	"context"
	"fmt"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services"
)

// importReason only tells volume licenses apart from the rest
func importReason(group string, license *models.License) string {
	label := "Individual Key"
	if license.IsVolume() {
		label = "Volume Key"
	}
	return fmt.Sprintf("CSV Import - Auto-assigned via Group: %s (%s)", group, label)
}

type employeeRow struct {
	num        int
	name       string
	department string
	email      string
	title      string
	groupName  string
	companyID  *int64
	orgUnitID  *int64
}

func (s *Service) importEmployees(ctx context.Context, records []record, actor string) (*Result, error) {
	errs := &Errors{}
	rows := make([]employeeRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, employeeRow{
			num:        rec.num,
			name:       errs.RequireField(rec.get("name"), rec.num, "name"),
			department: errs.RequireField(rec.get("department"), rec.num, "department"),
			email:      rec.get("email"),
			title:      rec.get("title"),
			groupName:  rec.get("groupName"),
		})
	}
	if !errs.Empty() {
		return rowFailure(errs.List()), nil
	}

	groups := make(map[string]*models.LicenseGroup)
	for _, r := range rows {
		if r.groupName == "" {
			continue
		}
		if _, seen := groups[r.groupName]; !seen {
			group, err := s.groups.GetByName(ctx, r.groupName)
			if err != nil && !isNotFound(err) {
				return nil, services.WrapInternal("failed to load group", err)
			}
			groups[r.groupName] = group
		}
		if groups[r.groupName] == nil {
			errs.Add(r.num, "groupName", "group %q does not exist", r.groupName)
		}
	}

	if err := s.resolveOrg(ctx, records, rows, errs); err != nil {
		return nil, err
	}
	if !errs.Empty() {
		return rowFailure(errs.List()), nil
	}

	result := success(0, 0)
	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		for _, r := range rows {
			employee, created, err := s.upsertEmployee(ctx, r)
			if err != nil {
				return err
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}

			if r.groupName == "" {
				continue
			}
			if _, err := s.staff.AutoAssign(ctx, employee.ID, groups[r.groupName], importReason, actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolveOrg maps companyName, orgName and subOrgName to ids. orgName is a
// root unit of the company and subOrgName a child of that unit.
func (s *Service) resolveOrg(ctx context.Context, records []record, rows []employeeRow, errs *Errors) error {
	var companies map[string]*models.OrgCompany
	units := make(map[string][]*models.OrgUnit)

	listUnits := func(key string, filter models.UnitFilter) ([]*models.OrgUnit, error) {
		if list, ok := units[key]; ok {
			return list, nil
		}
		list, err := s.org.ListUnits(ctx, filter)
		if err != nil {
			return nil, services.WrapInternal("failed to load org units", err)
		}
		units[key] = list
		return list, nil
	}

	for i := range rows {
		rec := records[i]
		companyName, orgName, subOrgName := rec.get("companyName"), rec.get("orgName"), rec.get("subOrgName")
		if companyName == "" {
			if orgName != "" || subOrgName != "" {
				errs.Add(rec.num, "companyName", "required when orgName or subOrgName is set")
			}
			continue
		}

		if companies == nil {
			list, err := s.org.ListCompanies(ctx)
			if err != nil {
				return services.WrapInternal("failed to load companies", err)
			}
			companies = make(map[string]*models.OrgCompany, len(list))
			for _, c := range list {
				companies[c.Name] = c
			}
		}
		company, ok := companies[companyName]
		if !ok {
			errs.Add(rec.num, "companyName", "company %q does not exist", companyName)
			continue
		}
		rows[i].companyID = &company.ID

		if orgName == "" {
			if subOrgName != "" {
				errs.Add(rec.num, "orgName", "required when subOrgName is set")
			}
			continue
		}
		roots, err := listUnits(companyName, models.UnitFilter{CompanyID: &company.ID, RootsOnly: true})
		if err != nil {
			return err
		}
		org := findUnit(roots, orgName)
		if org == nil {
			errs.Add(rec.num, "orgName", "org %q does not exist in %q", orgName, companyName)
			continue
		}
		rows[i].orgUnitID = &org.ID

		if subOrgName == "" {
			continue
		}
		children, err := listUnits(companyName+"/"+orgName, models.UnitFilter{CompanyID: &company.ID, ParentID: &org.ID})
		if err != nil {
			return err
		}
		sub := findUnit(children, subOrgName)
		if sub == nil {
			errs.Add(rec.num, "subOrgName", "org %q does not exist under %q", subOrgName, orgName)
			continue
		}
		rows[i].orgUnitID = &sub.ID
	}
	return nil
}

func findUnit(units []*models.OrgUnit, name string) *models.OrgUnit {
	for _, u := range units {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// upsertEmployee updates the employee with the row's email, or creates one
func (s *Service) upsertEmployee(ctx context.Context, r employeeRow) (*models.Employee, bool, error) {
	var existing *models.Employee
	if r.email != "" {
		found, err := s.employees.GetByEmail(ctx, r.email)
		if err != nil && !isNotFound(err) {
			return nil, false, services.WrapInternal("failed to load employee", err)
		}
		existing = found
	}

	if existing == nil {
		employee := models.NewEmployee(r.name, r.department, optional(r.email))
		employee.Title = optional(r.title)
		employee.CompanyID = r.companyID
		employee.OrgUnitID = r.orgUnitID
		if err := s.employees.Create(ctx, employee); err != nil {
			return nil, false, services.WrapInternal("failed to create employee", err)
		}
		return employee, true, nil
	}

	existing.Name = r.name
	existing.Department = r.department
	if r.title != "" {
		existing.Title = optional(r.title)
	}
	if r.companyID != nil {
		existing.CompanyID = r.companyID
		existing.OrgUnitID = r.orgUnitID
	}
	if err := s.employees.Update(ctx, existing); err != nil {
		return nil, false, services.WrapInternal("failed to update employee", err)
	}
	return existing, false, nil
}
