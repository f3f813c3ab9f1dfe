package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/eshaffer321/gst-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/config"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/logging"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/pgstore"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/storage"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/tracing"
)

// configCandidates are tried in order when no -config flag is given
var configCandidates = []string{"config.yaml", "config.yml"}

// LoadConfig loads configFile, or the first config file found in the working
// directory, or the environment. The result is validated.
func LoadConfig(configFile string) (*config.Config, error) {
	if configFile == "" {
		for _, candidate := range configCandidates {
			if _, err := os.Stat(candidate); err == nil {
				configFile = candidate
				break
			}
		}
	}

	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", configFile, err)
		}
	} else {
		cfg, err = config.LoadFromEnv()
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// App holds the long-lived collaborators shared by the commands
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Store  *storage.Storage

	// results is the postgres sink when the postgres driver is configured
	results *pgstore.Store

	shutdownTracing tracing.ShutdownFunc
}

// NewApp opens storage and starts tracing for cfg. system names the
// command in log lines.
func NewApp(ctx context.Context, cfg *config.Config, verbose bool, system string) (*App, error) {
	loggingCfg := cfg.Observability.Logging
	if verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, system)

	shutdown, err := tracing.Init(ctx, cfg.Observability.Tracing)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStorageWithLogger(cfg.Storage.DatabasePath, logging.NewLoggerWithSystem(loggingCfg, "storage"))
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	app := &App{
		Config:          cfg,
		Logger:          logger,
		Store:           store,
		shutdownTracing: shutdown,
	}

	if cfg.Storage.Driver == config.DriverPostgres {
		results, err := pgstore.Open(cfg.Storage.PostgresDSN, logging.NewLoggerWithSystem(loggingCfg, "pgstore"))
		if err != nil {
			_ = app.Close(ctx)
			return nil, fmt.Errorf("failed to open postgres sink: %w", err)
		}
		app.results = results
		logger.Info("publishing results to postgres")
	}

	return app, nil
}

// Deps wires the orchestrator to the store, swapping the result sink for
// postgres when configured. Documents, the ledger and run history always
// come from the SQLite store.
func (a *App) Deps() reconcile.Deps {
	deps := reconcile.DepsFromRepository(a.Store)
	if a.results != nil {
		deps.Sink = a.results
	}
	return deps
}

// Close releases everything NewApp opened
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.results != nil {
		errs = append(errs, a.results.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.shutdownTracing != nil {
		errs = append(errs, a.shutdownTracing(ctx))
	}
	return errors.Join(errs...)
}
