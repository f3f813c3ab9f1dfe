package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/eshaffer321/gst-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/domain/selector"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/config"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/storage"
)

var (
	// ErrInvalidWorkers is returned when the pool size is not positive
	ErrInvalidWorkers = errors.New("worker count must be positive")

	// ErrInvalidMode is returned for an unknown reconcile mode
	ErrInvalidMode = errors.New("unknown reconcile mode")

	// ErrEnrichmentFailed marks a document whose invoice could not be parsed
	// by the enrichment service
	ErrEnrichmentFailed = errors.New("invoice enrichment failed")

	// ErrNoParsedInvoice marks a ledger-mode document with nothing to look up
	ErrNoParsedInvoice = errors.New("no parsed invoice to reconcile")
)

// EnrichStatus is the outcome reported by the enrichment service
type EnrichStatus string

const (
	EnrichSucceeded EnrichStatus = "succeeded"
	EnrichFailed    EnrichStatus = "failed"
)

// DocumentSource supplies the booking documents of a batch
type DocumentSource interface {
	FetchDocuments(ctx context.Context, filter storage.DocumentFilter) ([]model.BookingDocument, error)
}

// DocumentSaver is implemented by document sources that can store enriched
// documents back
type DocumentSaver interface {
	SaveDocument(ctx context.Context, doc model.BookingDocument) error
}

// LedgerSource loads the GST return rows for a batch
type LedgerSource interface {
	FetchLedger(ctx context.Context, filter storage.LedgerFilter) ([]model.LedgerRow, error)
}

// ResultSink persists match results
type ResultSink interface {
	UpsertResult(ctx context.Context, result model.MatchResult) error
}

// RunRecorder tracks run history
type RunRecorder interface {
	StartRun(ctx context.Context, mode model.Mode, dryRun bool) (string, error)
	CompleteRun(ctx context.Context, runID string, totals storage.RunTotals) error
}

// InvoiceEnricher turns a linked but unparsed invoice into parsed fields
type InvoiceEnricher interface {
	Enrich(ctx context.Context, invoice model.InvoiceEvent) (model.ParsedInvoice, EnrichStatus, error)
}

// Deps are the collaborators of an orchestrator. Runs and Enricher are
// optional; Ledger and References are only used in ledger mode.
type Deps struct {
	Documents  DocumentSource
	Ledger     LedgerSource
	References selector.ReferenceLookup
	Sink       ResultSink
	Runs       RunRecorder
	Enricher   InvoiceEnricher
}

// DepsFromRepository wires every store-backed collaborator to repo
func DepsFromRepository(repo storage.Repository) Deps {
	return Deps{
		Documents:  repo,
		Ledger:     repo,
		References: repo,
		Sink:       repo,
		Runs:       repo,
	}
}

// Config holds orchestrator configuration
type Config struct {
	Workers        int
	DocumentFilter storage.DocumentFilter
	LedgerFilter   storage.LedgerFilter
	Matcher        matcher.Config
	Selector       selector.Config
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Workers:  30,
		Matcher:  matcher.DefaultConfig(),
		Selector: selector.DefaultConfig(),
	}
}

// ConfigFrom builds the orchestrator config from application config
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	c.Workers = cfg.Reconcile.Workers
	c.DocumentFilter = storage.DocumentFilter{
		BookingType:     cfg.Reconcile.BookingType,
		ExpenseClientID: cfg.Reconcile.ExpenseClientID,
		RequireInvoice:  true,
		Limit:           cfg.Reconcile.BatchLimit,
	}
	c.LedgerFilter = storage.LedgerFilter{
		TaxIDPrefixes:     cfg.Reconcile.PANList,
		ExcludeVendorType: cfg.Reconcile.ExcludeVendorType,
		TaxRate:           cfg.Reconcile.TaxRate,
	}
	return c
}

// Options holds per-run settings
type Options struct {
	Mode       model.Mode
	DryRun     bool   // Score everything but persist nothing
	Limit      int    // Overrides the batch limit when positive
	DocumentID string // If set, only reconcile this document

	// ProgressCallback is called from the collector after each document
	ProgressCallback func(Progress)
}

// Progress is a snapshot of a running batch
type Progress struct {
	Total     int
	Completed int
	Failed    int
}

// Summary holds the aggregate outcome of a run
type Summary struct {
	RunID          string            `json:"run_id,omitempty"`
	Mode           model.Mode        `json:"mode"`
	DryRun         bool              `json:"dry_run"`
	Documents      int               `json:"documents"`
	Scanned        int               `json:"scanned"`
	Matched        int               `json:"matched"`
	PerfectMatches int               `json:"perfect_matches"`
	NoMatches      int               `json:"no_matches"`
	Skipped        int               `json:"skipped"`
	Failed         int               `json:"failed"`
	GoodMatches    []model.GoodMatch `json:"good_matches"`
	Duration       time.Duration     `json:"duration"`
}

// Completed is the number of documents that reached an outcome
func (s *Summary) Completed() int {
	return s.Matched + s.PerfectMatches + s.NoMatches + s.Skipped + s.Failed
}

// Totals converts the summary into run-history counters
func (s *Summary) Totals() storage.RunTotals {
	return storage.RunTotals{
		Documents:   s.Documents,
		Scanned:     s.Scanned,
		Matched:     s.Matched,
		Perfect:     s.PerfectMatches,
		NoMatch:     s.NoMatches,
		Skipped:     s.Skipped,
		Failed:      s.Failed,
		GoodMatches: len(s.GoodMatches),
	}
}

// disposition is what happened to one document
type disposition int

const (
	dispositionReconciled disposition = iota
	dispositionSkipped
	dispositionFailed
)

// docOutcome is sent from a worker to the collector
type docOutcome struct {
	documentID  string
	disposition disposition
	status      model.MatchStatus
	scanned     int
	good        *model.GoodMatch
	err         error
}
