package selector

import (
	"context"
	"errors"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/domain/scorer"
)

// ErrInvalidAmount is returned when the invoice amount is absent or cannot be
// parsed, so no amount window exists. It wraps value.ErrEmptyAmount or
// value.ErrUnparseableAmount.
var ErrInvalidAmount = errors.New("invalid invoice amount")

// ErrReferenceLookup wraps failures of the cross-reference source.
var ErrReferenceLookup = errors.New("cross-reference lookup failed")

// Config holds selector configuration
type Config struct {
	WindowLow        float64 // Lower bound of the amount window as a fraction (default: 0.8)
	WindowHigh       float64 // Upper bound of the amount window as a fraction (default: 1.2)
	KeepThreshold    float64 // Minimum combined score to keep a row (default: 66)
	PerfectThreshold float64 // Score that ends the scan immediately (default: 99)
	Slots            int     // Shortlist capacity (default: 3)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WindowLow:        0.8,
		WindowHigh:       1.2,
		KeepThreshold:    66,
		PerfectThreshold: 99,
		Slots:            3,
	}
}

// ReferenceLookup resolves the IRN registry record behind a ledger row.
// A nil record with a nil error means the reference is unknown.
type ReferenceLookup interface {
	LookupIRN(ctx context.Context, irn string) (*model.IRNRecord, error)
}

// RowScorer scores an invoice against one ledger row.
type RowScorer func(details model.InvoiceDetails, row model.LedgerRow) (scorer.MatchScore, error)

// Outcome is what a selection produced for one invoice.
type Outcome struct {
	Result    model.MatchResult
	Windowed  int              // Rows inside the amount window
	Evaluated int              // Rows actually scored before the scan ended
	Good      *model.GoodMatch // Set when at least one row cleared the keep threshold
}
