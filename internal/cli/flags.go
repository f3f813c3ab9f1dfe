package cli

import (
	"flag"
	"fmt"

	"github.com/eshaffer321/gst-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
)

// ReconcileFlags are the flags of the reconcile command
type ReconcileFlags struct {
	ConfigFile string
	Mode       string
	Workers    int
	Limit      int
	DryRun     bool
	DocumentID string
	Verbose    bool
}

// ParseReconcileFlags parses reconcile flags from args. Zero values for mode
// and workers mean "use the config file".
func ParseReconcileFlags(args []string) (ReconcileFlags, error) {
	var flags ReconcileFlags
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	fs.StringVar(&flags.Mode, "mode", "", "Reconcile mode: one_to_one or ledger (default from config)")
	fs.IntVar(&flags.Workers, "workers", 0, "Concurrent documents (0 = from config)")
	fs.IntVar(&flags.Limit, "limit", 0, "Maximum documents to reconcile (0 = batch limit)")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "Score documents without writing results")
	fs.StringVar(&flags.DocumentID, "document", "", "Reconcile a single document by ID")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return flags, err
	}

	if flags.Workers < 0 {
		return flags, fmt.Errorf("-workers must not be negative, got %d", flags.Workers)
	}
	if flags.Limit < 0 {
		return flags, fmt.Errorf("-limit must not be negative, got %d", flags.Limit)
	}
	if flags.Mode != "" && !model.Mode(flags.Mode).Valid() {
		return flags, fmt.Errorf("unknown mode %q", flags.Mode)
	}
	return flags, nil
}

// ToOptions converts the flags to run options, falling back to defaultMode
func (f ReconcileFlags) ToOptions(defaultMode string) reconcile.Options {
	mode := f.Mode
	if mode == "" {
		mode = defaultMode
	}
	return reconcile.Options{
		Mode:       model.Mode(mode),
		DryRun:     f.DryRun,
		Limit:      f.Limit,
		DocumentID: f.DocumentID,
	}
}

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	ConfigFile string
	Port       int
	Verbose    bool
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags(args []string) (ServeFlags, error) {
	var flags ServeFlags
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	fs.IntVar(&flags.Port, "port", 0, "Port to listen on (0 = from config)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	err := fs.Parse(args)
	return flags, err
}

// ImportFlags holds the CLI flags for the import command.
type ImportFlags struct {
	ConfigFile string
	File       string
	Verbose    bool
}

// ParseImportFlags parses command line flags for the import command.
func ParseImportFlags(args []string) (ImportFlags, error) {
	var flags ImportFlags
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	fs.StringVar(&flags.File, "file", "", "JSON file with documents, ledger rows and IRN records")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return flags, err
	}
	if flags.File == "" {
		return flags, fmt.Errorf("-file is required")
	}
	return flags, nil
}
