package storage

import (
	"context"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	DocumentRepository
	LedgerRepository
	ResultRepository
	RunRepository
	Close() error
}

// DocumentRepository handles booking documents awaiting reconciliation
type DocumentRepository interface {
	// SaveDocument inserts or replaces a booking document
	SaveDocument(ctx context.Context, doc model.BookingDocument) error

	// FetchDocuments returns documents matching the filter, ordered by ID
	FetchDocuments(ctx context.Context, filter DocumentFilter) ([]model.BookingDocument, error)
}

// LedgerRepository handles the GST return rows and the IRN registry
type LedgerRepository interface {
	// SaveLedgerEntry appends a ledger row
	SaveLedgerEntry(ctx context.Context, entry LedgerEntry) error

	// FetchLedger loads the ledger rows for one batch
	FetchLedger(ctx context.Context, filter LedgerFilter) ([]model.LedgerRow, error)

	// SaveIRNRecord inserts or replaces a registry record
	SaveIRNRecord(ctx context.Context, record model.IRNRecord) error

	// LookupIRN returns the registry record for irn, or nil if there is none
	LookupIRN(ctx context.Context, irn string) (*model.IRNRecord, error)
}

// ResultRepository handles match results
type ResultRepository interface {
	// UpsertResult writes the result for its document and mode. A no_match
	// result only replaces an existing no_match with a lower max score.
	UpsertResult(ctx context.Context, result model.MatchResult) error

	// GetResult retrieves the result of one document in one mode
	GetResult(ctx context.Context, documentID string, mode model.Mode) (*model.MatchResult, error)

	// GetResults retrieves every stored result for a document
	GetResults(ctx context.Context, documentID string) ([]model.MatchResult, error)

	// ListResults returns results matching the given filters with pagination
	ListResults(ctx context.Context, filters ResultFilters) (*ResultListResult, error)

	// GetStats returns aggregate statistics
	GetStats(ctx context.Context) (*Stats, error)
}

// RunRepository handles reconcile run tracking
type RunRepository interface {
	// StartRun records the start of a run and returns its ID
	StartRun(ctx context.Context, mode model.Mode, dryRun bool) (string, error)

	// CompleteRun records the totals of a finished run
	CompleteRun(ctx context.Context, runID string, totals RunTotals) error

	// ListRuns returns recent runs, newest first
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// GetRun retrieves a run by ID
	GetRun(ctx context.Context, runID string) (*Run, error)
}
