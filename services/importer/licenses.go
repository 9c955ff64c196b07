package importer

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/cost"
	"github.com/upb/license-inventory/services/renewal"
)

type licenseRow struct {
	num              int
	name             string
	quantity         *int
	purchaseDate     *time.Time
	key              string
	licenseType      *models.LicenseType // nil keeps the stored type
	price            *decimal.Decimal
	expiryDate       *time.Time
	contractDate     *time.Time
	noticePeriodDays *int
	adminName        string
	description      string
}

func parseLicenseRow(row record, errs *Errors) licenseRow {
	r := licenseRow{
		num:              row.num,
		name:             errs.RequireField(row.get("name"), row.num, "name"),
		quantity:         errs.ParseInt(row.get("totalQuantity"), row.num, "totalQuantity", true),
		purchaseDate:     errs.ParseDate(row.get("purchaseDate"), row.num, "purchaseDate", true),
		key:              row.get("key"),
		price:            errs.ParseNumber(row.get("price"), row.num, "price", false),
		expiryDate:       errs.ParseDate(row.get("expiryDate"), row.num, "expiryDate", false),
		contractDate:     errs.ParseDate(row.get("contractDate"), row.num, "contractDate", false),
		noticePeriodDays: errs.ParseInt(row.get("noticePeriodDays"), row.num, "noticePeriodDays", false),
		adminName:        row.get("adminName"),
		description:      row.get("description"),
	}

	if r.quantity != nil && *r.quantity < 1 {
		errs.Add(row.num, "totalQuantity", "must be at least 1")
	}
	if r.price != nil && r.price.IsNegative() {
		errs.Add(row.num, "price", "must not be negative")
	}

	if raw := row.get("licenseType"); raw != "" {
		t := models.LicenseType(raw)
		switch t {
		case models.LicenseTypeKeyBased, models.LicenseTypeVolume, models.LicenseTypeNoKey:
			r.licenseType = &t
		default:
			errs.Add(row.num, "licenseType", "invalid license type %q (KEY_BASED, VOLUME, NO_KEY)", raw)
		}
	} else if volume := errs.ParseBoolean(row.get("isVolumeLicense"), row.num, "isVolumeLicense"); volume != nil {
		t := models.LicenseTypeKeyBased
		if *volume {
			t = models.LicenseTypeVolume
		}
		r.licenseType = &t
	}
	return r
}

func (r licenseRow) typeFor(existing *models.License) models.LicenseType {
	switch {
	case r.licenseType != nil:
		return *r.licenseType
	case existing != nil:
		return existing.LicenseType
	}
	return models.LicenseTypeKeyBased
}

func (s *Service) importLicenses(ctx context.Context, records []record, actor string) (*Result, error) {
	errs := &Errors{}
	rows := make([]licenseRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, parseLicenseRow(rec, errs))
	}
	if !errs.Empty() {
		return rowFailure(errs.List()), nil
	}

	keyRows, keys := firstRows(records, "key", errs)
	if len(keys) > 0 {
		owners, err := s.licenses.FindByKeys(ctx, keys)
		if err != nil {
			return nil, services.WrapInternal("failed to check license keys", err)
		}
		names := make(map[string]struct{}, len(rows))
		for _, r := range rows {
			names[r.name] = struct{}{}
		}
		for _, key := range keys {
			owner, ok := owners[key]
			if !ok {
				continue
			}
			if _, inFile := names[owner.Name]; !inFile {
				errs.Add(keyRows[key], "key", "key %q is already registered to license %q", key, owner.Name)
			}
		}
	}

	if err := s.checkLicenseQuantities(ctx, rows, errs); err != nil {
		return nil, err
	}
	if !errs.Empty() {
		return rowFailure(errs.List()), nil
	}

	result := success(0, 0)
	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		for _, r := range rows {
			created, err := s.upsertLicense(ctx, r)
			if err != nil {
				return err
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkLicenseQuantities rejects rows that would shrink an existing license
// below what is in use or switch its counting model while it is in use
func (s *Service) checkLicenseQuantities(ctx context.Context, rows []licenseRow, errs *Errors) error {
	existing := make(map[string]*models.License)
	for _, r := range rows {
		license, ok := existing[r.name]
		if !ok {
			var err error
			license, err = s.licenses.GetByName(ctx, r.name)
			if err != nil && !isNotFound(err) {
				return services.WrapInternal("failed to load license", err)
			}
			existing[r.name] = license
		}
		if license == nil {
			continue
		}

		active, err := s.assignments.CountActive(ctx, license.ID)
		if err != nil {
			return services.WrapInternal("failed to count assignments", err)
		}

		newType := r.typeFor(license)
		if (newType == models.LicenseTypeVolume) != license.IsVolume() && active > 0 {
			errs.Add(r.num, "licenseType", "cannot change between volume and seat licenses while %d assignments are active", active)
			continue
		}

		if newType == models.LicenseTypeVolume {
			if *r.quantity < active {
				errs.Add(r.num, "totalQuantity",
					"%d active assignments exist, quantity cannot be less than %d (got %d)", active, active, *r.quantity)
			}
			continue
		}

		assigned, err := s.seatRepo.CountAssigned(ctx, license.ID)
		if err != nil {
			return services.WrapInternal("failed to count assigned seats", err)
		}
		if assigned > 0 && *r.quantity < assigned {
			errs.Add(r.num, "totalQuantity",
				"%d seats are assigned, quantity cannot be less than %d (got %d)", assigned, assigned, *r.quantity)
		}
	}
	return nil
}

func (s *Service) upsertLicense(ctx context.Context, r licenseRow) (created bool, err error) {
	existing, err := s.licenses.GetByName(ctx, r.name)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return false, services.WrapInternal("failed to load license", err)
	}

	newType := r.typeFor(existing)
	license := existing
	if license == nil {
		license = models.NewLicense(r.name, newType, *r.quantity, *r.purchaseDate)
	}
	wasVolume := existing != nil && existing.IsVolume()

	license.LicenseType = newType
	license.TotalQuantity = *r.quantity
	license.PurchaseDate = *r.purchaseDate
	license.Key = nil
	if newType == models.LicenseTypeVolume && r.key != "" {
		key := r.key
		license.Key = &key
	}
	license.Price = decimal.NullDecimal{}
	if r.price != nil {
		license.Price = decimal.NewNullDecimal(*r.price)
	}
	license.ExpiryDate = r.expiryDate
	license.ContractDate = r.contractDate
	license.NoticePeriodDays = r.noticePeriodDays
	license.AdminName = optional(r.adminName)
	license.Description = optional(r.description)
	cost.Apply(license)
	license.RenewalDate = renewal.NextRenewalDate(license, s.now())

	if existing == nil {
		if err := s.licenses.Create(ctx, license); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return false, abortf("license %q could not be created: name or key already exists", r.name)
			}
			return false, services.WrapInternal("failed to create license", err)
		}
	} else if err := s.licenses.Update(ctx, license); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return false, abortf("license %q could not be updated: key already exists", r.name)
		}
		return false, services.WrapInternal("failed to update license", err)
	}

	switch {
	case license.IsVolume() && existing != nil && !wasVolume:
		err = s.seats.DeleteAllSeats(ctx, license.ID)
	case license.TracksSeats():
		_, err = s.seats.SyncSeats(ctx, license.ID, license.TotalQuantity)
	}
	if err != nil {
		return false, err
	}
	return existing == nil, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
