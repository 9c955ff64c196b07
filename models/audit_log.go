package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditEntityType is the kind of record an audit entry refers to
type AuditEntityType string

const (
	AuditEntityLicense    AuditEntityType = "LICENSE"
	AuditEntityEmployee   AuditEntityType = "EMPLOYEE"
	AuditEntityAssignment AuditEntityType = "ASSIGNMENT"
	AuditEntitySeat       AuditEntityType = "SEAT"
	AuditEntityGroup      AuditEntityType = "GROUP"
	AuditEntityUser       AuditEntityType = "USER"
	AuditEntityDocument   AuditEntityType = "DOCUMENT"
	AuditEntityReport     AuditEntityType = "REPORT"
	AuditEntityAuth       AuditEntityType = "AUTH"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionCreated          AuditAction = "CREATED"
	AuditActionUpdated          AuditAction = "UPDATED"
	AuditActionDeleted          AuditAction = "DELETED"
	AuditActionAssigned         AuditAction = "ASSIGNED"
	AuditActionUnassigned       AuditAction = "UNASSIGNED"
	AuditActionRevoked          AuditAction = "REVOKED"
	AuditActionImported         AuditAction = "IMPORTED"
	AuditActionRenewalProcessed AuditAction = "RENEWAL_PROCESSED"
	AuditActionLogin            AuditAction = "LOGIN"
	AuditActionLogout           AuditAction = "LOGOUT"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	EntityType AuditEntityType `json:"entity_type" db:"entity_type"`
	EntityID   *int64          `json:"entity_id,omitempty" db:"entity_id"`
	Action     AuditAction     `json:"action" db:"action"`
	Actor      *string         `json:"actor,omitempty" db:"actor"`
	Details    json.RawMessage `json:"details" db:"details"` // JSONB, always carries a summary
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(entityType AuditEntityType, action AuditAction) *AuditLog {
	return &AuditLog{
		ID:         uuid.New(),
		EntityType: entityType,
		Action:     action,
		CreatedAt:  time.Now(),
	}
}

// WithEntity sets the entity ID
func (a *AuditLog) WithEntity(entityID int64) *AuditLog {
	a.EntityID = &entityID
	return a
}

// WithActor sets who performed the action; empty actors are left unset
func (a *AuditLog) WithActor(actor string) *AuditLog {
	if actor != "" {
		a.Actor = &actor
	}
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithSummary sets details to a summary plus optional extra fields
func (a *AuditLog) WithSummary(summary string, extra map[string]interface{}) *AuditLog {
	details := map[string]interface{}{"summary": summary}
	for k, v := range extra {
		details[k] = v
	}
	return a.WithDetails(details)
}

// HistoryFilter narrows an audit history search
type HistoryFilter struct {
	EntityType *AuditEntityType
	EntityID   *int64
	Action     *AuditAction
	From       *time.Time
	To         *time.Time // inclusive through the end of that day
	Query      string     // matched against details text and actor
	Page       int
	PageSize   int
}

// HistoryPage is one page of audit history
type HistoryPage struct {
	Logs       []*AuditLog `json:"logs"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}
