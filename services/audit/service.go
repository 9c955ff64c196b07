package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"go.uber.org/zap"
)

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log *models.AuditLog
}

// AuditService writes audit events that are not part of a data change
// (logins, imports, renewal runs) on background workers
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *AuditEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	mu          sync.RWMutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	defaults := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &AuditService{
		auditRepo:   auditRepo,
		logger:      logger,
		eventChan:   make(chan *AuditEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service.
// Pending events are drained before it returns, unless timeout elapses first.
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.started = false
	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))
	close(s.eventChan)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent queues an event without blocking; it is dropped when the buffer is full
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return fmt.Errorf("audit service not started")
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("entity_type", string(event.Log.EntityType)),
			zap.String("action", string(event.Log.Action)))
		return fmt.Errorf("audit event buffer full")
	}
}

// worker processes events from the channel
func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("entity_type", string(event.Log.EntityType)),
				zap.String("action", string(event.Log.Action)))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent processes a single audit event
func (s *AuditService) processEvent(event *AuditEvent) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// Convenience methods for logging common events

// LogLogin logs a successful console login
func (s *AuditService) LogLogin(username, ipAddress string) error {
	log := models.NewAuditLog(models.AuditEntityAuth, models.AuditActionLogin).
		WithActor(username).
		WithSummary(fmt.Sprintf("%s logged in", username), map[string]interface{}{
			"ip_address": ipAddress,
		})

	return s.LogEvent(&AuditEvent{Log: log})
}

// LogLogout logs a console logout
func (s *AuditService) LogLogout(username string) error {
	log := models.NewAuditLog(models.AuditEntityAuth, models.AuditActionLogout).
		WithActor(username).
		WithSummary(fmt.Sprintf("%s logged out", username), nil)

	return s.LogEvent(&AuditEvent{Log: log})
}

// LogImport logs a completed CSV import
func (s *AuditService) LogImport(kind string, created, updated int, actor string) error {
	entity := importEntity(kind)
	log := models.NewAuditLog(entity, models.AuditActionImported).
		WithActor(actor).
		WithSummary(fmt.Sprintf("CSV import (%s): %d created, %d updated", kind, created, updated), map[string]interface{}{
			"kind":    kind,
			"created": created,
			"updated": updated,
		})

	return s.LogEvent(&AuditEvent{Log: log})
}

// LogRenewal logs a renewal date moved forward by the renewal run
func (s *AuditService) LogRenewal(license *models.License, previous, next *time.Time) error {
	log := models.NewAuditLog(models.AuditEntityLicense, models.AuditActionRenewalProcessed).
		WithEntity(license.ID).
		WithActor("system").
		WithSummary(fmt.Sprintf("%s renewal date updated", license.Name), map[string]interface{}{
			"from": formatDate(previous),
			"to":   formatDate(next),
		})

	return s.LogEvent(&AuditEvent{Log: log})
}

func importEntity(kind string) models.AuditEntityType {
	switch kind {
	case "employees":
		return models.AuditEntityEmployee
	case "groups":
		return models.AuditEntityGroup
	case "assignments":
		return models.AuditEntityAssignment
	case "seats":
		return models.AuditEntitySeat
	default:
		return models.AuditEntityLicense
	}
}

func formatDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}
