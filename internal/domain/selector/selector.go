// Package selector finds the GST ledger rows most likely to correspond to a
// parsed invoice.
//
// Selection works in four steps:
//  1. Only rows whose value lies within 80%..120% of the invoice amount are
//     considered, in original ledger order.
//  2. Each row is scored on amount, invoice number and GSTIN. The date is
//     scored for display but does not count towards the combined score.
//  3. A row scoring 99 or more is a perfect match: it becomes the only
//     candidate and the scan stops.
//  4. Otherwise rows scoring 66 or more compete for three shortlist slots.
//
// Retained candidates are then checked against the IRN registry.
package selector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/domain/scorer"
	"github.com/eshaffer321/gst-reconcile/internal/domain/value"
)

// Selector matches invoices against a shared ledger index
type Selector struct {
	config Config
	index  *LedgerIndex
	refs   ReferenceLookup
	logger *slog.Logger
	score  RowScorer
	now    func() time.Time
}

// New creates a selector over index. refs may be nil, in which case every
// candidate is reported without a registry record.
func New(config Config, index *LedgerIndex, refs ReferenceLookup, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		config: config,
		index:  index,
		refs:   refs,
		logger: logger,
		score:  ScoreRow,
		now:    time.Now,
	}
}

// WithScorer replaces the row scorer.
func (s *Selector) WithScorer(fn RowScorer) *Selector {
	s.score = fn
	return s
}

// ScoreRow compares invoice details with one ledger row.
func ScoreRow(details model.InvoiceDetails, row model.LedgerRow) (scorer.MatchScore, error) {
	date, err := scorer.Date(details.InvoiceDate, row.InvoiceDate)
	if err != nil {
		return scorer.MatchScore{}, err
	}

	amount := scorer.Indeterminate
	if invoiceAmount, err := details.InvoiceAmount.Decimal(); err == nil {
		amount = scorer.AmountDecimal(invoiceAmount, row.Value)
	}

	return scorer.Combine(
		scorer.DisplayField(scorer.FieldDate, date),
		scorer.NewField(scorer.FieldAmount, amount),
		scorer.NewField(scorer.FieldInvoiceNumber, scorer.InvoiceNumber(details.InvoiceNumber, row.InvoiceNumber)),
		scorer.NewField(scorer.FieldGSTIN, scorer.Text(details.GuestGSTIN, row.BuyerGSTIN)),
	)
}

// DetailsFor extracts the values a ledger match is scored on. The invoice
// number and date on the invoice record win over the parsed ones.
func DetailsFor(invoice model.InvoiceEvent) (model.InvoiceDetails, bool) {
	if invoice.Parsed == nil {
		return model.InvoiceDetails{}, false
	}
	details := model.InvoiceDetails{
		InvoiceNumber: invoice.InvoiceNo,
		InvoiceDate:   invoice.InvoiceDate,
		InvoiceAmount: invoice.Parsed.InvoiceAmount,
		GuestGSTIN:    invoice.Parsed.GuestGSTIN,
	}
	if details.InvoiceNumber == "" {
		details.InvoiceNumber = invoice.Parsed.InvoiceNumber
	}
	if details.InvoiceDate == "" {
		details.InvoiceDate = invoice.Parsed.InvoiceDate
	}
	return details, true
}

// Select scans the ledger for documentID's invoice and builds its result.
func (s *Selector) Select(ctx context.Context, documentID string, details model.InvoiceDetails) (Outcome, error) {
	amount, err := details.InvoiceAmount.Decimal()
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}

	low := amount.Mul(decimal.NewFromFloat(s.config.WindowLow))
	high := amount.Mul(decimal.NewFromFloat(s.config.WindowHigh))
	if low.GreaterThan(high) {
		low, high = high, low
	}
	window := s.index.Window(low, high)

	outcome := Outcome{Windowed: len(window)}
	shortlist := NewShortlist(s.config.Slots)
	perfect := false
	var maxScore float64
	var bestRow *model.LedgerRow

	for _, i := range window {
		row := s.index.Row(i)
		outcome.Evaluated++

		score, err := s.score(details, row)
		if err != nil {
			s.logger.Debug("skipping ledger row",
				"document_id", documentID,
				"ledger_invoice", row.InvoiceNumber,
				"error", err)
			continue
		}

		if bestRow == nil || score.Combined >= maxScore {
			maxScore = score.Combined
			bestRow = &row
		}

		if score.Combined < s.config.KeepThreshold {
			continue
		}

		candidate := model.Candidate{Row: row, Score: score}
		if score.Combined >= s.config.PerfectThreshold {
			shortlist.Replace(candidate)
			perfect = true
			break
		}
		shortlist.Offer(candidate)
	}

	if len(window) == 0 {
		s.logger.Debug("no ledger rows in amount window",
			"document_id", documentID,
			"amount", amount.String())
	}

	candidates := shortlist.Ranked()
	for i := range candidates {
		ref, err := s.crossReference(ctx, candidates[i].Row)
		if err != nil {
			return Outcome{}, err
		}
		candidates[i].Reference = ref
	}

	result := model.MatchResult{
		DocumentID: documentID,
		Mode:       model.ModeLedger,
		Status:     model.StatusNoMatch,
		MaxScore:   maxScore,
		Invoice:    &details,
		UpdatedAt:  s.now().UTC(),
	}
	if len(candidates) > 0 {
		result.Status = model.StatusMatched
		if perfect {
			result.Status = model.StatusPerfectMatch
		}
		result.Candidates = candidates
		selected := candidates[0]
		result.Selected = &selected

		outcome.Good = &model.GoodMatch{
			DocumentID: documentID,
			MaxScore:   maxScore,
			Invoice:    details,
			Against:    *bestRow,
		}
	}

	outcome.Result = result
	return outcome, nil
}

func (s *Selector) crossReference(ctx context.Context, row model.LedgerRow) (model.CrossReference, error) {
	if value.IsMissing(row.IRN) {
		return model.CrossReference{Status: model.ReferenceMissing}, nil
	}
	if s.refs == nil {
		return model.CrossReference{Status: model.ReferenceNotFound}, nil
	}

	record, err := s.refs.LookupIRN(ctx, row.IRN)
	if err != nil {
		return model.CrossReference{}, fmt.Errorf("%w: irn %s: %w", ErrReferenceLookup, row.IRN, err)
	}
	if record == nil {
		return model.CrossReference{Status: model.ReferenceNotFound}, nil
	}
	return model.CrossReference{Status: model.ReferenceFound, Record: record}, nil
}
