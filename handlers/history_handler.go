package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services/audit"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// HistorySearcher defines the audit history query used by the HTTP layer
type HistorySearcher interface {
	Search(ctx context.Context, q audit.HistoryQuery) (*models.HistoryPage, error)
}

// HistoryHandler serves the audit history
type HistoryHandler struct {
	service HistorySearcher
	logger  *zap.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(service HistorySearcher, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{service: service, logger: logger}
}

// HandleSearch handles GET /api/v1/history?entityType=&entityId=&action=&from=&to=&q=&page=
func (h *HistoryHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := audit.HistoryQuery{
		EntityType: query.Get("entityType"),
		Action:     query.Get("action"),
		From:       query.Get("from"),
		To:         query.Get("to"),
		Query:      query.Get("q"),
	}

	entityID, ok, err := utils.QueryInt64(r, "entityId")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if ok {
		q.EntityID = &entityID
	}

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid page", nil)
			return
		}
		q.Page = page
	}

	page, err := h.service.Search(r.Context(), q)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, page)
}
