package postgres

import (
	"github.com/upb/license-inventory/config"
	"github.com/upb/license-inventory/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db     *DB
	logger *zap.Logger
}

// NewRepositoryFactory opens the database and creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	return NewRepositoryFactoryFromDB(db, logger), nil
}

// NewRepositoryFactoryFromDB wraps an already open database
func NewRepositoryFactoryFromDB(db *DB, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{db: db, logger: logger}
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Licenses:    NewLicenseRepository(f.db, f.logger),
		Seats:       NewSeatRepository(f.db, f.logger),
		Employees:   NewEmployeeRepository(f.db, f.logger),
		Assignments: NewAssignmentRepository(f.db, f.logger),
		Groups:      NewGroupRepository(f.db, f.logger),
		AuditLogs:   NewAuditRepository(f.db, f.logger),
		Users:       NewUserRepository(f.db, f.logger),
		Sessions:    NewSessionRepository(f.db, f.logger),
		Org:         NewOrgRepository(f.db, f.logger),
	}
}

// GetTransactionManager returns a transaction manager
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
