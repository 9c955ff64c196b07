package renewal

import (
	"context"
	"time"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/services"
	"go.uber.org/zap"
)

const maxRollForward = 100

// EventLogger queues renewal audit events
type EventLogger interface {
	LogRenewal(license *models.License, previous, next *time.Time) error
}

// SyncSummary reports the outcome of a renewal run
type SyncSummary struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Service keeps license renewal dates in the future
type Service struct {
	licenses repositories.LicenseRepository
	events   EventLogger
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new renewal Service
func NewService(licenses repositories.LicenseRepository, events EventLogger, logger *zap.Logger) *Service {
	return &Service{
		licenses: licenses,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// cycleMonths returns how many months one renewal period spans, or 0 for MANUAL
func cycleMonths(l *models.License) int {
	switch l.RenewalCycle {
	case models.RenewalCycleMonthly:
		return 1
	case models.RenewalCycleAnnual:
		return 12
	case models.RenewalCycleCustom:
		if l.CycleMonths != nil && *l.CycleMonths > 0 {
			return *l.CycleMonths
		}
		return 1
	}
	return 0
}

// AddMonthsClamped adds months to t, clamping to the last day of the target
// month when the source day does not exist there (Jan 31 + 1 month = Feb 28/29).
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return firstOfTarget.AddDate(0, 0, d-1)
}

// CalcRenewalDate returns the renewal date following the license's last renewal,
// first purchase or purchase date, in that order. MANUAL licenses return nil.
func CalcRenewalDate(l *models.License) *time.Time {
	months := cycleMonths(l)
	if months == 0 {
		return nil
	}

	base := l.PurchaseDate
	switch {
	case l.LastRenewedAt != nil:
		base = *l.LastRenewedAt
	case l.FirstPurchasedAt != nil:
		base = *l.FirstPurchasedAt
	}

	next := AddMonthsClamped(base, months)
	return &next
}

// NextRenewalDate rolls the renewal date forward until it is after the start of now's day
func NextRenewalDate(l *models.License, now time.Time) *time.Time {
	next := CalcRenewalDate(l)
	if next == nil {
		return nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	months := cycleMonths(l)
	for i := 0; !next.After(today) && i < maxRollForward; i++ {
		rolled := AddMonthsClamped(*next, months)
		next = &rolled
	}
	return next
}

// SyncRenewalDate recomputes and stores the renewal date of one license.
// changed is false when the stored date was already current.
func (s *Service) SyncRenewalDate(ctx context.Context, id int64) (license *models.License, changed bool, err error) {
	license, err = s.licenses.GetByID(ctx, id)
	if err != nil {
		return nil, false, services.MapRepoError(err, services.ErrLicenseNotFound, nil, "failed to load license")
	}
	return s.sync(ctx, license)
}

func (s *Service) sync(ctx context.Context, license *models.License) (*models.License, bool, error) {
	next := NextRenewalDate(license, s.now())
	if next == nil || sameDay(license.RenewalDate, next) {
		return license, false, nil
	}

	if err := s.licenses.UpdateRenewalDate(ctx, license.ID, next); err != nil {
		return nil, false, services.MapRepoError(err, services.ErrLicenseNotFound, nil, "failed to update renewal date")
	}

	previous := license.RenewalDate
	license.RenewalDate = next

	if s.events != nil {
		if err := s.events.LogRenewal(license, previous, next); err != nil {
			s.logger.Warn("failed to queue renewal audit event",
				zap.Int64("license_id", license.ID),
				zap.Error(err))
		}
	}
	return license, true, nil
}

// SyncAll recomputes the renewal date of every non-MANUAL license.
// A failure on one license is logged and the run continues.
func (s *Service) SyncAll(ctx context.Context) (*SyncSummary, error) {
	licenses, err := s.licenses.ListAll(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list licenses", err)
	}

	summary := &SyncSummary{}
	for _, license := range licenses {
		if license.RenewalCycle == models.RenewalCycleManual {
			continue
		}
		summary.Checked++

		_, changed, err := s.sync(ctx, license)
		if err != nil {
			summary.Failed++
			s.logger.Error("failed to sync renewal date",
				zap.Int64("license_id", license.ID),
				zap.Error(err))
			continue
		}
		if changed {
			summary.Updated++
		}
	}

	s.logger.Info("renewal sync finished",
		zap.Int("checked", summary.Checked),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// StartScheduler runs SyncAll every interval until ctx is cancelled
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("started renewal scheduler", zap.Duration("interval", interval))

	for {
		select {
		case <-ticker.C:
			if _, err := s.SyncAll(ctx); err != nil {
				s.logger.Error("scheduled renewal sync failed", zap.Error(err))
			}
		case <-ctx.Done():
			s.logger.Info("stopping renewal scheduler")
			return
		}
	}
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
