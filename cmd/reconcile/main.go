// Command reconcile runs one reconciliation batch and prints the summary.
//
//	reconcile -mode ledger -workers 30 -dry-run
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/eshaffer321/gst-reconcile/internal/cli"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	flags, err := cli.ParseReconcileFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconcile: %v\n", err)
		os.Exit(2)
	}

	cfg, err := cli.LoadConfig(flags.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconcile: %v\n", err)
		os.Exit(1)
	}

	// Ctrl-C stops scheduling; documents already running finish
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, flags.Verbose, "cli")
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconcile: %v\n", err)
		os.Exit(1)
	}

	_, runErr := cli.RunReconcile(ctx, app, flags, os.Stdout)

	if err := app.Close(context.Background()); err != nil {
		app.Logger.Warn("Shutdown error", slog.String("error", err.Error()))
	}
	if runErr != nil {
		app.Logger.Error("Reconcile failed", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
}
