// Package matcher pairs the booking events of a document with its invoice
// events.
//
// Every booking/invoice pair is scored on amount, date, invoice number and
// GSTIN. Pairs are then accepted greedily from the highest combined score
// down:
//   - the pair must score at least the threshold (default 50)
//   - each booking and each invoice is used at most once
//   - ties go to the lowest booking index, then the lowest invoice index
//
// Whatever is left over is reported as unmatched invoices followed by
// unmatched bookings.
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig(), logger)
//	result := m.Match(doc.Bookings, doc.InvoiceCandidates())
//	for _, p := range result.Pairings {
//		if p.Matched() {
//			// booking p.BookingPosition pairs with invoice p.InvoicePosition
//		}
//	}
package matcher

import (
	"log/slog"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/domain/scorer"
)

// Matcher assigns booking events to invoice events one-to-one
type Matcher struct {
	config Config
	logger *slog.Logger
	score  PairScorer
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		config: config,
		logger: logger,
		score:  ScorePair,
	}
}

// WithScorer replaces the pair scorer.
func (m *Matcher) WithScorer(fn PairScorer) *Matcher {
	m.score = fn
	return m
}

// ScorePair compares a booking event with an invoice event. The invoice
// side amount and GSTIN come from the parsed invoice, so an unparsed invoice
// can only be compared on date and invoice number.
func ScorePair(booking model.BookingEvent, invoice model.InvoiceEvent) (scorer.MatchScore, error) {
	var taxAmount, guestGSTIN string
	if invoice.Parsed != nil {
		taxAmount = string(invoice.Parsed.TotalTaxAmount)
		guestGSTIN = invoice.Parsed.GuestGSTIN
	}

	date, err := scorer.Date(booking.CreatedDate, invoice.InvoiceDate)
	if err != nil {
		return scorer.MatchScore{}, err
	}

	return scorer.Combine(
		scorer.NewField(scorer.FieldAmount, scorer.Amount(string(booking.ClaimableAmount), taxAmount)),
		scorer.NewField(scorer.FieldDate, date),
		scorer.NewField(scorer.FieldInvoiceNumber, scorer.InvoiceNumber(invoice.InvoiceNo, booking.VendorInvoiceNo)),
		scorer.NewField(scorer.FieldGSTIN, scorer.Text(booking.CustomerGSTIN, guestGSTIN)),
	)
}

// Match pairs bookings with invoices and returns every booking and every
// invoice exactly once, either in a pairing or as an unmatched entry.
func (m *Matcher) Match(bookings []model.BookingEvent, invoices []model.InvoiceEvent) Result {
	matrix, skipped := m.buildMatrix(bookings, invoices)

	usedBookings := make([]bool, len(bookings))
	usedInvoices := make([]bool, len(invoices))
	result := Result{SkippedPairs: skipped}

	for {
		row, col, best, found := bestRemaining(matrix, usedBookings, usedInvoices)
		if !found || best < m.config.Threshold {
			break
		}

		usedBookings[row] = true
		usedInvoices[col] = true
		result.Matched++

		score := best
		booking := bookings[row]
		invoice := invoices[col]
		result.Pairings = append(result.Pairings, model.Pairing{
			BookingPosition: row + 1,
			TotalBookings:   len(bookings),
			InvoicePosition: col + 1,
			TotalInvoices:   len(invoices),
			InvoiceStatus:   invoice.Status(),
			Score:           &score,
			Booking:         &booking,
			Invoice:         &invoice,
		})
	}

	for col := range invoices {
		if usedInvoices[col] {
			continue
		}
		invoice := invoices[col]
		result.Pairings = append(result.Pairings, model.Pairing{
			InvoicePosition: col + 1,
			TotalInvoices:   len(invoices),
			InvoiceStatus:   invoice.Status(),
			Invoice:         &invoice,
		})
	}

	for row := range bookings {
		if usedBookings[row] {
			continue
		}
		booking := bookings[row]
		result.Pairings = append(result.Pairings, model.Pairing{
			BookingPosition: row + 1,
			TotalBookings:   len(bookings),
			Booking:         &booking,
		})
	}

	return result
}

func (m *Matcher) buildMatrix(bookings []model.BookingEvent, invoices []model.InvoiceEvent) (*scoreMatrix, int) {
	matrix := newScoreMatrix(len(bookings), len(invoices))
	skipped := 0

	for row, booking := range bookings {
		for col, invoice := range invoices {
			score, err := m.score(booking, invoice)
			if err != nil {
				m.logger.Debug("skipping pair",
					"booking", row+1,
					"invoice", col+1,
					"error", err)
				skipped++
				continue
			}
			matrix.set(row, col, score.Combined)
		}
	}

	return matrix, skipped
}

// bestRemaining scans row-major, so a strict comparison keeps the lowest
// indices on ties.
func bestRemaining(matrix *scoreMatrix, usedRows, usedCols []bool) (int, int, float64, bool) {
	bestRow, bestCol := -1, -1
	var best float64

	for row := 0; row < matrix.rows; row++ {
		if usedRows[row] {
			continue
		}
		for col := 0; col < matrix.cols; col++ {
			if usedCols[col] {
				continue
			}
			score, ok := matrix.get(row, col)
			if !ok {
				continue
			}
			if bestRow == -1 || score > best {
				bestRow, bestCol, best = row, col, score
			}
		}
	}

	return bestRow, bestCol, best, bestRow != -1
}
