package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/eshaffer321/gst-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/logging"
)

// RunReconcile runs one batch with app's collaborators and prints the
// summary to w. The summary is printed even when the batch was interrupted.
func RunReconcile(ctx context.Context, app *App, flags ReconcileFlags, w io.Writer) (*reconcile.Summary, error) {
	cfg := reconcile.ConfigFrom(app.Config)
	if flags.Workers > 0 {
		cfg.Workers = flags.Workers
	}
	opts := flags.ToOptions(app.Config.Reconcile.Mode)

	loggingCfg := app.Config.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	orch, err := reconcile.NewOrchestrator(cfg, app.Deps(), logging.NewLoggerWithSystem(loggingCfg, "reconcile"))
	if err != nil {
		return nil, err
	}

	PrintHeader(w, string(opts.Mode), opts.DryRun)
	PrintConfiguration(w, cfg, opts)

	summary, runErr := orch.Run(ctx, opts)
	if summary == nil {
		return nil, runErr
	}

	stats, err := app.Store.GetStats(context.WithoutCancel(ctx))
	if err != nil {
		app.Logger.Warn("Failed to load stats", slog.String("error", err.Error()))
		stats = nil
	}
	PrintSummary(w, summary, stats)

	return summary, runErr
}
