package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/assignments"
	"github.com/upb/license-inventory/services/employees"
	"github.com/upb/license-inventory/services/seats"
	"go.uber.org/zap"
)

// DefaultMaxUploadBytes is the largest file accepted when no limit is configured
const DefaultMaxUploadBytes = 5 << 20

// EventLogger records finished imports
type EventLogger interface {
	LogImport(kind string, created, updated int, actor string) error
}

// Config holds importer settings
type Config struct {
	MaxUploadBytes int64
}

// Service imports CSV files. Every row is validated before anything is
// written, then the whole file is applied in one transaction.
type Service struct {
	services.ChangeHooks

	licenses    repositories.LicenseRepository
	seatRepo    repositories.SeatRepository
	employees   repositories.EmployeeRepository
	groups      repositories.GroupRepository
	assignments repositories.AssignmentRepository
	org         repositories.OrgRepository
	seats       *seats.Service
	allocator   *assignments.Service
	staff       *employees.Service
	events      EventLogger
	txMgr       repositories.TransactionManager
	config      Config
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new import Service
func NewService(repos *repositories.Repositories, txMgr repositories.TransactionManager, seatService *seats.Service,
	allocator *assignments.Service, staff *employees.Service, events EventLogger, config Config, logger *zap.Logger) *Service {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Service{
		licenses:    repos.Licenses,
		seatRepo:    repos.Seats,
		employees:   repos.Employees,
		groups:      repos.Groups,
		assignments: repos.Assignments,
		org:         repos.Org,
		seats:       seatService,
		allocator:   allocator,
		staff:       staff,
		events:      events,
		txMgr:       txMgr,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// abort stops a running import with a message shown to the user.
// The transaction is rolled back.
type abort struct {
	message string
}

func (a *abort) Error() string { return a.message }

func abortf(format string, args ...interface{}) error {
	return &abort{message: fmt.Sprintf(format, args...)}
}

// Import validates and applies an uploaded file. Problems with the file are
// reported in the Result; the error is reserved for infrastructure failures.
func (s *Service) Import(ctx context.Context, kind, filename string, size int64, r io.Reader, actor string) (*Result, error) {
	k := Kind(kind)
	switch {
	case !k.Valid():
		return failure("select an import type: licenses, employees, groups, assignments or seats"), nil
	case size <= 0:
		return failure("select a CSV file"), nil
	case size > s.config.MaxUploadBytes:
		return failure("file is larger than %d MB", s.config.MaxUploadBytes>>20), nil
	case !strings.HasSuffix(strings.ToLower(filename), ".csv"):
		return failure("only .csv files can be imported"), nil
	}

	tbl, err := parseCSV(io.LimitReader(r, s.config.MaxUploadBytes+1))
	if err != nil {
		return failure("could not read the CSV file: %v", err), nil
	}
	if len(tbl.rows) == 0 {
		return failure("the CSV file has no data rows"), nil
	}

	tpl, err := TemplateFor(k)
	if err != nil {
		return nil, services.WrapInternal("failed to load import template", err)
	}
	if missing := tbl.missing(tpl.Required); len(missing) > 0 {
		return failure("missing required headers: %s (expected headers: %s)",
			strings.Join(missing, ", "), strings.Join(tpl.Headers, ", ")), nil
	}

	var result *Result
	switch k {
	case KindLicenses:
		result, err = s.importLicenses(ctx, tbl.rows, actor)
	case KindEmployees:
		result, err = s.importEmployees(ctx, tbl.rows, actor)
	case KindGroups:
		result, err = s.importGroups(ctx, tbl.rows, actor)
	case KindAssignments:
		result, err = s.importAssignments(ctx, tbl.rows, actor)
	case KindSeats:
		result, err = s.importSeats(ctx, tbl.rows, actor)
	}
	if err != nil {
		var a *abort
		if errors.As(err, &a) {
			s.logger.Info("import aborted", zap.String("kind", kind), zap.String("reason", a.message))
			return failure("%s", a.message), nil
		}
		var domainErr *services.DomainError
		if errors.As(err, &domainErr) && domainErr.Type != services.ErrorTypeInternal {
			return failure("%s", domainErr.Message), nil
		}
		s.logger.Error("import failed", zap.String("kind", kind), zap.Error(err))
		return nil, err
	}

	if !result.Success {
		return result, nil
	}

	s.Notify()
	if err := s.events.LogImport(kind, result.Created, result.Updated, actor); err != nil {
		s.logger.Warn("failed to queue import audit event", zap.String("kind", kind), zap.Error(err))
	}
	s.logger.Info("import completed",
		zap.String("kind", kind),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.String("actor", actor))
	return result, nil
}

func success(created, updated int) *Result {
	return &Result{Success: true, Created: created, Updated: updated, Errors: []RowError{}}
}

// firstRows maps each non-empty value of column to the first row holding it
// and records an error on every later duplicate.
func firstRows(rows []record, column string, errs *Errors) (map[string]int, []string) {
	first := make(map[string]int)
	var ordered []string
	for _, row := range rows {
		v := row.get(column)
		if v == "" {
			continue
		}
		if prev, ok := first[v]; ok {
			errs.Add(row.num, column, "duplicate %s %q in CSV (row %d duplicates row %d)", column, v, row.num, prev)
			continue
		}
		first[v] = row.num
		ordered = append(ordered, v)
	}
	return first, ordered
}

func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, repositories.ErrDuplicate)
}
