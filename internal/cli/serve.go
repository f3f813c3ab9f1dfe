package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/gst-reconcile/internal/api"
	"github.com/eshaffer321/gst-reconcile/internal/application/service"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/logging"
)

// RunServe runs the API server until SIGINT or SIGTERM.
func RunServe(app *App, flags ServeFlags) error {
	logger := app.Logger

	apiCfg := api.ConfigFrom(app.Config.API)
	if flags.Port > 0 {
		apiCfg.Port = flags.Port
	}

	jobs := service.NewReconcileService(app.Config, app.Deps(), logging.NewLoggerWithSystem(app.Config.Observability.Logging, "jobs"))
	jobs.StartBackgroundCleanup(5 * time.Minute)
	defer jobs.StopBackgroundCleanup()

	server := api.NewServer(apiCfg, app.Store, jobs, logger)

	// Handle graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
