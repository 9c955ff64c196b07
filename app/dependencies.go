package app

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/license-inventory/config"
	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/repositories/postgres"
	"github.com/upb/license-inventory/services/assignments"
	"github.com/upb/license-inventory/services/audit"
	"github.com/upb/license-inventory/services/auth"
	"github.com/upb/license-inventory/services/dashboard"
	"github.com/upb/license-inventory/services/employees"
	"github.com/upb/license-inventory/services/groups"
	"github.com/upb/license-inventory/services/importer"
	"github.com/upb/license-inventory/services/licenses"
	"github.com/upb/license-inventory/services/org"
	"github.com/upb/license-inventory/services/ratelimit"
	"github.com/upb/license-inventory/services/renewal"
	"github.com/upb/license-inventory/services/seats"
	"github.com/upb/license-inventory/services/users"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	RepoFactory *postgres.RepositoryFactory
	Repos       *repositories.Repositories
	TxManager   repositories.TransactionManager

	// Audit
	Recorder     *audit.Recorder
	History      *audit.HistoryService
	AuditService *audit.AuditService

	// Inventory
	Seats       *seats.Service
	Licenses    *licenses.Service
	Assignments *assignments.Service
	Employees   *employees.Service
	Groups      *groups.Service
	Importer    *importer.Service
	Renewal     *renewal.Service
	Dashboard   *dashboard.Service
	Org         *org.Service

	// Auth
	Throttle       *ratelimit.LoginThrottle
	Auth           *auth.Service
	Users          *users.Service
	AuthMiddleware *middleware.AuthMiddleware

	dashboardCache *dashboard.SummaryCache
	stopCh         chan struct{}
	closed         bool
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
		stopCh: make(chan struct{}),
	}

	// Initialize PostgreSQL
	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initServices(cfg)
	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// NewDependenciesFromFactory wires services over an already opened repository factory
func NewDependenciesFromFactory(cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) *Dependencies {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
		stopCh:      make(chan struct{}),
	}
	deps.initRepositories()
	deps.initServices(cfg)
	deps.initAuth(cfg)
	return deps
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.HealthCheck(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	d.Repos = d.RepoFactory.NewRepositories()
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices(cfg *config.Config) {
	d.Recorder = audit.NewRecorder(d.Repos.AuditLogs, d.Logger)
	d.History = audit.NewHistoryService(d.Repos.AuditLogs, d.Logger)
	d.AuditService = audit.NewAuditService(d.Repos.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})

	d.Seats = seats.NewService(d.Repos, d.TxManager, d.Recorder, d.Logger)
	d.Licenses = licenses.NewService(d.Repos, d.TxManager, d.Seats, d.Recorder, d.Logger)
	d.Assignments = assignments.NewService(d.Repos, d.TxManager, d.Seats, d.Recorder, d.Logger)
	d.Employees = employees.NewService(d.Repos, d.TxManager, d.Assignments, d.Recorder, d.Logger)
	d.Groups = groups.NewService(d.Repos.Groups, d.TxManager, d.Recorder, d.Logger)
	d.Importer = importer.NewService(d.Repos, d.TxManager, d.Seats, d.Assignments, d.Employees, d.AuditService,
		importer.Config{MaxUploadBytes: cfg.Import.MaxUploadBytes}, d.Logger)
	d.Renewal = renewal.NewService(d.Repos.Licenses, d.AuditService, d.Logger)
	d.Org = org.NewService(d.Repos.Org, d.Logger)

	d.dashboardCache = dashboard.NewSummaryCache(cfg.Dashboard.CacheSize, cfg.Dashboard.CacheTTL)
	d.Dashboard = dashboard.NewService(d.Repos.Licenses, d.dashboardCache, d.Logger)

	// Inventory writes make the cached summary stale
	d.Licenses.OnChange(d.dashboardCache.Clear)
	d.Seats.OnChange(d.dashboardCache.Clear)
	d.Assignments.OnChange(d.dashboardCache.Clear)
	d.Importer.OnChange(d.dashboardCache.Clear)

	d.Logger.Info("services initialized")
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	d.Throttle = ratelimit.NewLoginThrottle(d.DB.DB, ratelimit.Config{
		MaxFailures: cfg.Auth.LoginMaxFailures,
		Window:      cfg.Auth.LoginWindow,
	}, d.Logger)
	d.Auth = auth.NewService(d.Repos.Users, d.Repos.Sessions, d.Throttle, d.AuditService, auth.Config{
		Secret:     []byte(cfg.Auth.SessionSecret),
		SessionTTL: cfg.Auth.SessionTTL,
	}, d.Logger)
	d.Users = users.NewService(d.Repos.Users, d.Repos.Sessions, cfg.Auth.BcryptCost, d.Logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Auth, d.Logger)

	d.Logger.Info("auth initialized")
}

// StartBackground launches the audit writer and the periodic workers.
// Workers stop when ctx is cancelled or Close is called.
func (d *Dependencies) StartBackground(ctx context.Context) error {
	if err := d.AuditService.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}

	if d.Config.Renewal.Enabled {
		go d.Renewal.StartScheduler(ctx, d.Config.Renewal.Interval)
	}
	go d.Auth.StartSessionCleanup(ctx, d.Config.Auth.SessionCleanup)
	go d.Throttle.StartCleanupWorker(ctx, d.Config.Auth.LoginAttemptCleanup, d.Config.Auth.LoginAttemptRetained)
	go d.dashboardCache.StartCleanupWorker(d.Config.Dashboard.CacheTTL, d.stopCh)

	d.Logger.Info("background workers started",
		zap.Bool("renewal_scheduler", d.Config.Renewal.Enabled))
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.AuditService != nil && d.AuditService.GetStats().Started {
		timeout := d.Config.Server.ShutdownTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.AuditService.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	close(d.stopCh)

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
