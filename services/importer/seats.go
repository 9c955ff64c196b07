package importer

import (
	"context"

	"github.com/upb/license-inventory/services"
	"go.uber.org/zap"
)

type seatKey struct {
	num int
	key string
}

func (s *Service) importSeats(ctx context.Context, records []record, actor string) (*Result, error) {
	errs := &Errors{}
	for _, rec := range records {
		errs.RequireField(rec.get("licenseName"), rec.num, "licenseName")
		errs.RequireField(rec.get("key"), rec.num, "key")
	}
	if !errs.Empty() {
		return rowFailure(errs.List()), nil
	}

	keyRows, keys := firstRows(records, "key", errs)
	owners, err := s.seatRepo.FindKeyOwners(ctx, keys)
	if err != nil {
		return nil, services.WrapInternal("failed to check seat keys", err)
	}
	for _, key := range keys {
		if owner, ok := owners[key]; ok {
			errs.Add(keyRows[key], "key", "key %q is already registered to a seat of %q", key, owner.LicenseName)
		}
	}
	if !errs.Empty() {
		return rowFailure(errs.List()), nil
	}

	var names []string
	byLicense := make(map[string][]seatKey)
	for _, rec := range records {
		name := rec.get("licenseName")
		if _, ok := byLicense[name]; !ok {
			names = append(names, name)
		}
		byLicense[name] = append(byLicense[name], seatKey{num: rec.num, key: rec.get("key")})
	}

	for _, name := range names {
		pending := byLicense[name]
		license, err := s.licenses.GetByName(ctx, name)
		if err != nil && !isNotFound(err) {
			return nil, services.WrapInternal("failed to load license", err)
		}
		switch {
		case license == nil:
			for _, k := range pending {
				errs.Add(k.num, "licenseName", "license %q not found", name)
			}
			continue
		case license.IsVolume():
			for _, k := range pending {
				errs.Add(k.num, "licenseName", "%q is a volume license, seat keys can only be imported for seat licenses", name)
			}
			continue
		}

		empty, err := s.seatRepo.ListEmpty(ctx, license.ID)
		if err != nil {
			return nil, services.WrapInternal("failed to load empty seats", err)
		}
		for i := len(empty); i < len(pending); i++ {
			errs.Add(pending[i].num, "key", "%q: key %d of %d has no empty seat (%d empty seats)",
				name, i+1, len(pending), len(empty))
		}
	}
	if !errs.Empty() {
		return rowFailure(errs.List()), nil
	}

	result := success(0, 0)
	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		for _, name := range names {
			license, err := s.licenses.GetByName(ctx, name)
			if err != nil {
				return services.WrapInternal("failed to load license", err)
			}
			empty, err := s.seatRepo.ListEmpty(ctx, license.ID)
			if err != nil {
				return services.WrapInternal("failed to load empty seats", err)
			}

			pending := byLicense[name]
			if len(empty) < len(pending) {
				return abortf("%q no longer has enough empty seats", name)
			}
			for i, k := range pending {
				key := k.key
				if err := s.seatRepo.UpdateKey(ctx, empty[i].ID, &key); err != nil {
					if isDuplicate(err) {
						return abortf("row %d: key %q is already registered", k.num, key)
					}
					return services.WrapInternal("failed to set seat key", err)
				}
				result.Updated++
			}
			s.logger.Debug("seat keys imported",
				zap.Int64("license_id", license.ID),
				zap.Int("keys", len(pending)),
				zap.String("actor", actor))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
