// Command import loads booking documents, ledger rows and IRN records from a
// JSON file into the SQLite store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/eshaffer321/gst-reconcile/internal/cli"
)

func main() {
	_ = godotenv.Load()

	flags, err := cli.ParseImportFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		os.Exit(2)
	}

	cfg, err := cli.LoadConfig(flags.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	app, err := cli.NewApp(ctx, cfg, flags.Verbose, "import")
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		os.Exit(1)
	}

	counts, importErr := cli.ImportFromFile(ctx, app.Store, flags.File, app.Logger)
	if err := app.Close(ctx); err != nil {
		app.Logger.Warn("Shutdown error", slog.String("error", err.Error()))
	}
	if importErr != nil {
		app.Logger.Error("Import failed", slog.String("error", importErr.Error()))
		os.Exit(1)
	}

	fmt.Printf("Imported %d documents, %d ledger rows, %d IRN records (%d rejected)\n",
		counts.Documents, counts.Ledger, counts.IRN, counts.Rejected)
}
