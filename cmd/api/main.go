// Command api serves match results, run history and reconcile jobs over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/eshaffer321/gst-reconcile/internal/cli"
)

func main() {
	_ = godotenv.Load()

	flags, err := cli.ParseServeFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(2)
	}

	cfg, err := cli.LoadConfig(flags.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}

	app, err := cli.NewApp(context.Background(), cfg, flags.Verbose, "api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}

	runErr := cli.RunServe(app, flags)

	if err := app.Close(context.Background()); err != nil {
		app.Logger.Warn("Shutdown error", slog.String("error", err.Error()))
	}
	if runErr != nil {
		app.Logger.Error("Server failed", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
}
