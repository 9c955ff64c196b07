package audit

import (
	"context"
	"fmt"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"go.uber.org/zap"
)

// Recorder writes audit entries synchronously as part of the caller's
// transaction, so a data change and its audit entry commit together
type Recorder struct {
	auditRepo repositories.AuditRepository
	logger    *zap.Logger
}

// NewRecorder creates a new Recorder
func NewRecorder(auditRepo repositories.AuditRepository, logger *zap.Logger) *Recorder {
	return &Recorder{auditRepo: auditRepo, logger: logger}
}

// Write inserts entry using the transaction carried by ctx, if any
func (r *Recorder) Write(ctx context.Context, entry *models.AuditLog) error {
	if err := r.auditRepo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// Record builds and writes an entry with a summary and optional extra detail fields
func (r *Recorder) Record(ctx context.Context, entity models.AuditEntityType, action models.AuditAction,
	entityID int64, actor, summary string, extra map[string]interface{}) error {
	entry := models.NewAuditLog(entity, action).WithActor(actor).WithSummary(summary, extra)
	if entityID != 0 {
		entry.WithEntity(entityID)
	}
	return r.Write(ctx, entry)
}
