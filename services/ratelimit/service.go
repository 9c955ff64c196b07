package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds the login throttling limits
type Config struct {
	MaxFailures int           // failures allowed per scope within Window
	Window      time.Duration // sliding window length
}

// DefaultConfig returns 5 failures per 15 minutes
func DefaultConfig() Config {
	return Config{
		MaxFailures: 5,
		Window:      15 * time.Minute,
	}
}

// CheckResult represents the result of a throttle check
type CheckResult struct {
	Allowed         bool
	Remaining       int
	RetryAt         time.Time
	ViolatedScope   string
	ViolationReason string
}

// LoginThrottle counts failed logins per username and per client IP using PostgreSQL
type LoginThrottle struct {
	db     *sql.DB
	config Config
	logger *zap.Logger
	now    func() time.Time
}

// NewLoginThrottle creates a new LoginThrottle instance.
// A MaxFailures of zero disables throttling; a missing Window takes the default.
func NewLoginThrottle(db *sql.DB, config Config, logger *zap.Logger) *LoginThrottle {
	if config.Window <= 0 {
		config.Window = DefaultConfig().Window
	}
	return &LoginThrottle{
		db:     db,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Check reports whether another login attempt for username from ip is allowed.
// Usernames are compared case-insensitively.
func (s *LoginThrottle) Check(ctx context.Context, username, ip string) (*CheckResult, error) {
	if s.config.MaxFailures <= 0 {
		return &CheckResult{Allowed: true}, nil
	}

	now := s.now()
	remaining := s.config.MaxFailures

	for _, scope := range s.scopes(username, ip) {
		allowed, left, retryAt, err := s.checkWindow(ctx, scope, now)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s: %w", scope, err)
		}
		if !allowed {
			return &CheckResult{
				Allowed:         false,
				RetryAt:         retryAt,
				ViolatedScope:   scope,
				ViolationReason: fmt.Sprintf("exceeded %d failed logins per %s", s.config.MaxFailures, s.config.Window),
			}, nil
		}
		if left < remaining {
			remaining = left
		}
	}

	return &CheckResult{Allowed: true, Remaining: remaining}, nil
}

// RecordFailure records a failed login for the username and the IP
func (s *LoginThrottle) RecordFailure(ctx context.Context, username, ip string) error {
	now := s.now()
	for _, scope := range s.scopes(username, ip) {
		if err := s.recordEvent(ctx, scope, now); err != nil {
			return fmt.Errorf("failed to record login failure: %w", err)
		}
	}
	return nil
}

// Reset clears the username's recorded failures after a successful login.
// Failures recorded against the client IP are kept until they leave the window.
func (s *LoginThrottle) Reset(ctx context.Context, username string) error {
	query := `DELETE FROM login_attempts WHERE scope_key = $1`

	if _, err := s.db.ExecContext(ctx, query, userScope(username)); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

// checkWindow counts failures of scope inside the sliding window ending at now
func (s *LoginThrottle) checkWindow(ctx context.Context, scope string, now time.Time) (allowed bool, remaining int, retryAt time.Time, err error) {
	windowStart := now.Add(-s.config.Window)

	query := `
		SELECT COUNT(*), MIN(timestamp)
		FROM login_attempts
		WHERE scope_key = $1
		  AND timestamp >= $2
	`

	var count int
	var oldest sql.NullTime
	if err = s.db.QueryRowContext(ctx, query, scope, windowStart).Scan(&count, &oldest); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to query login attempts: %w", err)
	}

	if count >= s.config.MaxFailures {
		retryAt = now.Add(s.config.Window)
		if oldest.Valid {
			retryAt = oldest.Time.Add(s.config.Window)
		}
		return false, 0, retryAt, nil
	}

	return true, s.config.MaxFailures - count, time.Time{}, nil
}

func (s *LoginThrottle) recordEvent(ctx context.Context, scope string, timestamp time.Time) error {
	query := `
		INSERT INTO login_attempts (scope_key, timestamp)
		VALUES ($1, $2)
	`

	if _, err := s.db.ExecContext(ctx, query, scope, timestamp); err != nil {
		return fmt.Errorf("failed to insert login attempt: %w", err)
	}
	return nil
}

func (s *LoginThrottle) scopes(username, ip string) []string {
	scopes := []string{userScope(username)}
	if ip != "" {
		scopes = append(scopes, "ip:"+ip)
	}
	return scopes
}

func userScope(username string) string {
	return "user:" + strings.ToLower(strings.TrimSpace(username))
}

// CleanupOldAttempts removes attempts older than olderThan
func (s *LoginThrottle) CleanupOldAttempts(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := s.now().Add(-olderThan)

	query := `
		DELETE FROM login_attempts
		WHERE timestamp < $1
	`

	result, err := s.db.ExecContext(ctx, query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old login attempts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Info("cleaned up old login attempts",
		zap.Int64("rows_deleted", rowsAffected),
		zap.Time("cutoff_time", cutoffTime))

	return rowsAffected, nil
}

// StartCleanupWorker periodically deletes old attempts until ctx is cancelled
func (s *LoginThrottle) StartCleanupWorker(ctx context.Context, interval time.Duration, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("started login attempt cleanup worker",
		zap.Duration("interval", interval),
		zap.Duration("retention", retention))

	for {
		select {
		case <-ticker.C:
			if _, err := s.CleanupOldAttempts(ctx, retention); err != nil {
				s.logger.Error("failed to cleanup old login attempts", zap.Error(err))
			}
		case <-ctx.Done():
			s.logger.Info("stopping login attempt cleanup worker")
			return
		}
	}
}
