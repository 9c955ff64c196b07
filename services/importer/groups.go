package importer

import (
	"context"
	"strings"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services"
)

type groupRow struct {
	name         string
	description  string
	isDefault    *bool
	licenseNames []string
}

func splitNames(raw string) []string {
	var names []string
	for _, n := range strings.Split(raw, ";") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func (s *Service) importGroups(ctx context.Context, records []record, actor string) (*Result, error) {
	errs := &Errors{}
	rows := make([]groupRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, groupRow{
			name:         errs.RequireField(rec.get("name"), rec.num, "name"),
			description:  rec.get("description"),
			isDefault:    errs.ParseBoolean(rec.get("isDefault"), rec.num, "isDefault"),
			licenseNames: splitNames(rec.get("licenseNames")),
		})
	}
	if !errs.Empty() {
		return rowFailure(errs.List()), nil
	}

	result := success(0, 0)
	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		for _, r := range rows {
			isDefault := r.isDefault != nil && *r.isDefault

			group, err := s.groups.GetByName(ctx, r.name)
			switch {
			case err == nil:
				group.Description = optional(r.description)
				group.IsDefault = isDefault
				if err := s.groups.Update(ctx, group); err != nil {
					return services.WrapInternal("failed to update group", err)
				}
				result.Updated++
			case isNotFound(err):
				group = models.NewLicenseGroup(r.name, optional(r.description), isDefault)
				if err := s.groups.Create(ctx, group); err != nil {
					return services.WrapInternal("failed to create group", err)
				}
				result.Created++
			default:
				return services.WrapInternal("failed to load group", err)
			}

			if len(r.licenseNames) == 0 {
				continue
			}
			ids := make([]int64, 0, len(r.licenseNames))
			for _, name := range r.licenseNames {
				license, err := s.licenses.GetByName(ctx, name)
				if err != nil {
					if isNotFound(err) {
						return abortf("group %q: license %q not found", r.name, name)
					}
					return services.WrapInternal("failed to load license", err)
				}
				ids = append(ids, license.ID)
			}
			if err := s.groups.ReplaceMembers(ctx, group.ID, ids); err != nil {
				return services.WrapInternal("failed to set group licenses", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
