package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/upb/license-inventory/app"
	"github.com/upb/license-inventory/config"
	"github.com/upb/license-inventory/repositories/postgres"
	"github.com/upb/license-inventory/routes"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// runtime carries what every subcommand needs once the root has loaded it
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rt := &runtime{}

	cmd := &cobra.Command{
		Use:          "license-tracker",
		Short:        "Software license inventory and assignment tracker",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(cmd.Context())
			if err != nil {
				return err
			}
			logger, err := initLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.logger = logger.With(zap.String("environment", cfg.Environment))
			return nil
		},
	}

	cmd.AddCommand(newServeCommand(rt))
	cmd.AddCommand(newMigrateCommand(rt))
	cmd.AddCommand(newSeedAdminCommand(rt))
	cmd.AddCommand(newSeedSeatsCommand(rt))
	cmd.AddCommand(newSyncRenewalsCommand(rt))

	return cmd
}

// initLogger builds a zap logger; json selects the production encoder, console the development one
func initLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var zcfg zap.Config
	switch format {
	case "", "json":
		zcfg = zap.NewProductionConfig()
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q: must be json or console", format)
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	return zcfg.Build()
}

func newServeCommand(rt *runtime) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if migrate {
				if err := runMigrations(rt, "up"); err != nil {
					return err
				}
			}
			return serve(cmd.Context(), rt)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")

	return cmd
}

func serve(ctx context.Context, rt *runtime) error {
	cfg, logger := rt.cfg, rt.logger

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		return err
	}

	if err := deps.StartBackground(ctx); err != nil {
		_ = deps.Close(context.Background())
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           routes.SetupRoutes(deps),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("license tracker listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("server error", zap.Error(serveErr))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := deps.Close(shutdownCtx); err != nil {
		logger.Error("dependency shutdown failed", zap.Error(err))
	}

	logger.Info("server stopped")
	return serveErr
}

func newMigrateCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	for _, direction := range []string{"up", "down", "version"} {
		cmd.AddCommand(&cobra.Command{
			Use:   direction,
			Short: "Run migrations " + direction,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrations(rt, direction)
			},
		})
	}

	return cmd
}

func runMigrations(rt *runtime, direction string) error {
	db, err := postgres.NewDB(rt.cfg.Database, rt.logger)
	if err != nil {
		return err
	}

	migrator, err := postgres.NewMigrator(db, rt.logger)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			rt.logger.Warn("failed to close migrator", zap.Error(err))
		}
	}()

	switch direction {
	case "up":
		return migrator.Up()
	case "down":
		return migrator.Down()
	default:
		version, dirty, err := migrator.Version()
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		rt.logger.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}
}

func newSeedAdminCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or reset the bootstrap admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfg.IsProduction() {
				return errors.New("refusing to seed an admin account in production")
			}
			if rt.cfg.Seed.AdminPassword == "" {
				return errors.New("SEED_ADMIN_PASSWORD is required")
			}

			return withDependencies(cmd.Context(), rt, func(deps *app.Dependencies) error {
				user, err := deps.Users.SeedAdmin(cmd.Context(), rt.cfg.Seed.AdminUsername, rt.cfg.Seed.AdminPassword)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %q ready\n", user.Username)
				return nil
			})
		},
	}
}

func newSeedSeatsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-seats",
		Short: "Create missing seats for key-based licenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDependencies(cmd.Context(), rt, func(deps *app.Dependencies) error {
				seeded, err := deps.Seats.SeedMissing(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", seedSeatsReport(seeded))
				return nil
			})
		},
	}
}

func seedSeatsReport(licenses int) string {
	return fmt.Sprintf("seeded seats for %d licenses", licenses)
}

func newSyncRenewalsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-renewals",
		Short: "Advance lapsed renewal dates once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDependencies(cmd.Context(), rt, func(deps *app.Dependencies) error {
				summary, err := deps.Renewal.SyncAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "checked %d, updated %d, failed %d\n",
					summary.Checked, summary.Updated, summary.Failed)
				return nil
			})
		},
	}
}

// withDependencies runs fn with the audit writer started so events reach the log before exit
func withDependencies(ctx context.Context, rt *runtime, fn func(*app.Dependencies) error) error {
	deps, err := app.NewDependencies(ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(context.Background()); err != nil {
			rt.logger.Warn("shutdown failed", zap.Error(err))
		}
	}()

	if err := deps.AuditService.Start(); err != nil {
		return err
	}
	return fn(deps)
}
