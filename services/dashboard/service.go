package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/cost"
	"go.uber.org/zap"
)

const trendMonths = 12

// MonthlyCost is the KRW cost of all licenses active in a month
type MonthlyCost struct {
	Month string `json:"month"` // YYYY.MM
	Cost  int64  `json:"cost"`
}

// MonthlyCount is the number of licenses purchased up to the end of a month
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// TypeCount is the number of licenses of one type
type TypeCount struct {
	Type  models.LicenseType `json:"type"`
	Count int                `json:"count"`
}

// Summary is the dashboard overview
type Summary struct {
	TotalLicenses    int            `json:"total_licenses"`
	TotalAnnualKRW   int64          `json:"total_annual_krw"`
	Expiring30       int            `json:"expiring_30"`
	Expiring90       int            `json:"expiring_90"`
	MonthlyTrend     []MonthlyCost  `json:"monthly_trend"`
	TypeDistribution []TypeCount    `json:"type_distribution"`
	GrowthTrend      []MonthlyCount `json:"growth_trend"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// Service builds dashboard summaries
type Service struct {
	licenses repositories.LicenseRepository
	cache    *SummaryCache
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new dashboard Service
func NewService(licenses repositories.LicenseRepository, cache *SummaryCache, logger *zap.Logger) *Service {
	return &Service{licenses: licenses, cache: cache, logger: logger, now: time.Now}
}

// Summary returns the overview for the current day, from cache unless refresh is set
func (s *Service) Summary(ctx context.Context, refresh bool) (*Summary, error) {
	now := s.now()
	key := now.Format("2006-01-02")

	if refresh {
		s.cache.Invalidate(key)
	} else if cached := s.cache.Get(key); cached != nil {
		return cached, nil
	}

	licenses, err := s.licenses.ListAll(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to load licenses", err)
	}

	summary := Compute(licenses, now)
	s.cache.Set(key, summary)
	s.logger.Debug("computed dashboard summary", zap.Int("licenses", summary.TotalLicenses))
	return summary, nil
}

// Compute derives the overview from every license as of now
func Compute(licenses []*models.License, now time.Time) *Summary {
	summary := &Summary{
		TotalLicenses: len(licenses),
		MonthlyTrend:  make([]MonthlyCost, 0, trendMonths),
		GrowthTrend:   make([]MonthlyCount, 0, trendMonths),
		GeneratedAt:   now,
	}

	cutoff30 := now.AddDate(0, 0, 30)
	cutoff90 := now.AddDate(0, 0, 90)
	counts := make(map[models.LicenseType]int)

	for _, l := range licenses {
		if annual, ok := cost.AnnualKRW(l); ok {
			summary.TotalAnnualKRW += annual
		}
		if l.ExpiryDate != nil && !l.ExpiryDate.Before(now) {
			if !l.ExpiryDate.After(cutoff30) {
				summary.Expiring30++
			}
			if !l.ExpiryDate.After(cutoff90) {
				summary.Expiring90++
			}
		}
		counts[l.LicenseType]++
	}

	for _, t := range []models.LicenseType{models.LicenseTypeKeyBased, models.LicenseTypeVolume, models.LicenseTypeNoKey} {
		if counts[t] > 0 {
			summary.TypeDistribution = append(summary.TypeDistribution, TypeCount{Type: t, Count: counts[t]})
		}
	}

	for offset := trendMonths - 1; offset >= 0; offset-- {
		monthStart := time.Date(now.Year(), now.Month()-time.Month(offset), 1, 0, 0, 0, 0, now.Location())
		monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)
		month := fmt.Sprintf("%d.%02d", monthStart.Year(), int(monthStart.Month()))

		var monthly int64
		purchased := 0
		for _, l := range licenses {
			if l.PurchaseDate.After(monthEnd) {
				continue
			}
			purchased++
			if l.ExpiryDate != nil && l.ExpiryDate.Before(monthStart) {
				continue
			}
			if m, ok := cost.MonthlyKRW(l); ok {
				monthly += m
			}
		}

		summary.MonthlyTrend = append(summary.MonthlyTrend, MonthlyCost{Month: month, Cost: monthly})
		summary.GrowthTrend = append(summary.GrowthTrend, MonthlyCount{Month: month, Count: purchased})
	}

	return summary
}
