package storage

import (
	"errors"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
)

// ErrNotFound is returned by single-record lookups that match nothing
var ErrNotFound = errors.New("not found")

// Run statuses
const (
	RunStatusRunning             = "running"
	RunStatusCompleted           = "completed"
	RunStatusCompletedWithErrors = "completed_with_errors"
)

// DocumentFilter selects the documents of one batch
type DocumentFilter struct {
	BookingType     string // Filter by booking type (empty = all)
	ExpenseClientID string // Filter by expense client (empty = all)
	RequireInvoice  bool   // Only documents with at least one invoice
	Limit           int    // Max documents (0 = no limit)
}

// LedgerFilter selects the ledger rows loaded for a batch
type LedgerFilter struct {
	TaxIDPrefixes     []string // Buyer PANs; a row matches when its GSTIN carries one (empty = all)
	ExcludeVendorType string   // Rows of this vendor type are left out (empty = none)
	TaxRate           int      // Only rows at this rate (0 = any)
}

// LedgerEntry is a ledger row with the columns used only for filtering
type LedgerEntry struct {
	model.LedgerRow
	VendorType string
	TaxRate    int
}

// ResultFilters defines filters for listing results
type ResultFilters struct {
	Mode     string  // Filter by mode (empty = all)
	Status   string  // Filter by status (empty = all)
	MinScore float64 // Only results scoring at least this much
	Limit    int     // Max results (0 = default 50)
	Offset   int     // Pagination offset
}

// ResultListResult contains paginated results
type ResultListResult struct {
	Results    []model.MatchResult `json:"results"`
	TotalCount int                 `json:"total_count"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

// RunTotals are the counters recorded when a run completes
type RunTotals struct {
	Documents   int
	Scanned     int
	Matched     int
	Perfect     int
	NoMatch     int
	Skipped     int
	Failed      int
	GoodMatches int
}

// Run represents a reconcile run record
type Run struct {
	ID          string `json:"id"`
	Mode        string `json:"mode"`
	DryRun      bool   `json:"dry_run"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	Documents   int    `json:"documents"`
	Scanned     int    `json:"scanned"`
	Matched     int    `json:"matched"`
	Perfect     int    `json:"perfect_matches"`
	NoMatch     int    `json:"no_matches"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
	GoodMatches int    `json:"good_matches"`
	Status      string `json:"status"`
}

// Stats contains aggregate result statistics
type Stats struct {
	TotalResults    int                  `json:"total_results"`
	MatchedCount    int                  `json:"matched_count"`
	PerfectCount    int                  `json:"perfect_count"`
	NoMatchCount    int                  `json:"no_match_count"`
	AverageMaxScore float64              `json:"average_max_score"`
	ModeStats       map[string]ModeStats `json:"mode_stats"`
}

// ModeStats contains per-mode statistics
type ModeStats struct {
	Count        int     `json:"count"`
	MatchedCount int     `json:"matched_count"`
	AverageScore float64 `json:"average_score"`
}
