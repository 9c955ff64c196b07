package audit

import (
	"context"
	"strings"
	"time"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/services"
	"go.uber.org/zap"
)

// HistoryPageSize is the fixed number of entries per history page
const HistoryPageSize = 50

// HistoryQuery holds the raw history filters as received from a request
type HistoryQuery struct {
	EntityType string
	EntityID   *int64
	Action     string
	From       string // YYYY-MM-DD
	To         string // YYYY-MM-DD, inclusive
	Query      string
	Page       int
}

// HistoryService reads the audit history
type HistoryService struct {
	auditRepo repositories.AuditRepository
	logger    *zap.Logger
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(auditRepo repositories.AuditRepository, logger *zap.Logger) *HistoryService {
	return &HistoryService{auditRepo: auditRepo, logger: logger}
}

// Search returns one page of audit entries matching q, newest first
func (s *HistoryService) Search(ctx context.Context, q HistoryQuery) (*models.HistoryPage, error) {
	filter, err := q.toFilter()
	if err != nil {
		return nil, err
	}

	logs, total, err := s.auditRepo.Search(ctx, filter)
	if err != nil {
		return nil, services.WrapInternal("failed to search history", err)
	}

	return &models.HistoryPage{
		Logs:       logs,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: (total + filter.PageSize - 1) / filter.PageSize,
	}, nil
}

func (q HistoryQuery) toFilter() (models.HistoryFilter, error) {
	filter := models.HistoryFilter{
		EntityID: q.EntityID,
		Query:    strings.TrimSpace(q.Query),
		Page:     q.Page,
		PageSize: HistoryPageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	if q.EntityType != "" {
		et := models.AuditEntityType(strings.ToUpper(q.EntityType))
		filter.EntityType = &et
	}
	if q.Action != "" {
		action := models.AuditAction(strings.ToUpper(q.Action))
		filter.Action = &action
	}

	for _, d := range []struct {
		raw  string
		dest **time.Time
		name string
	}{
		{q.From, &filter.From, "from"},
		{q.To, &filter.To, "to"},
	} {
		if d.raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", d.raw)
		if err != nil {
			return filter, services.Validation("%s must be a date in YYYY-MM-DD format", d.name)
		}
		*d.dest = &t
	}

	return filter, nil
}
