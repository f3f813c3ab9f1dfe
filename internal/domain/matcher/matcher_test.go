package matcher

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/domain/scorer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Helper to create a booking event tagged with its index
func makeBooking(idx int) model.BookingEvent {
	return model.BookingEvent{VendorInvoiceNo: fmt.Sprintf("B%d", idx)}
}

// Helper to create an invoice event tagged with its index
func makeInvoice(idx int) model.InvoiceEvent {
	return model.InvoiceEvent{InvoiceNo: fmt.Sprintf("I%d", idx)}
}

// fixedScores returns a scorer that looks pair scores up by tag.
// Pairs missing from the table score 10.
func fixedScores(table map[string]float64) PairScorer {
	return func(b model.BookingEvent, inv model.InvoiceEvent) (scorer.MatchScore, error) {
		v, ok := table[b.VendorInvoiceNo+"-"+inv.InvoiceNo]
		if !ok {
			v = 10
		}
		return scorer.Combine(scorer.NewField("fixed", scorer.Score(v)))
	}
}

func TestMatcher_SinglePairAndLeftovers(t *testing.T) {
	// Arrange
	m := NewMatcher(DefaultConfig(), testLogger()).WithScorer(fixedScores(map[string]float64{
		"B0-I1": 95,
	}))
	bookings := []model.BookingEvent{makeBooking(0), makeBooking(1)}
	invoices := []model.InvoiceEvent{makeInvoice(0), makeInvoice(1)}

	// Act
	result := m.Match(bookings, invoices)

	// Assert
	require.Len(t, result.Pairings, 3)
	assert.Equal(t, 1, result.Matched)

	pair := result.Pairings[0]
	assert.True(t, pair.Matched())
	assert.Equal(t, 1, pair.BookingPosition)
	assert.Equal(t, 2, pair.InvoicePosition)
	assert.Equal(t, 2, pair.TotalBookings)
	assert.Equal(t, 2, pair.TotalInvoices)
	require.NotNil(t, pair.Score)
	assert.Equal(t, 95.0, *pair.Score)

	unmatchedInvoice := result.Pairings[1]
	assert.Nil(t, unmatchedInvoice.Booking)
	assert.Equal(t, 1, unmatchedInvoice.InvoicePosition)
	assert.Equal(t, model.InvoiceNoLink, unmatchedInvoice.InvoiceStatus)

	unmatchedBooking := result.Pairings[2]
	assert.Nil(t, unmatchedBooking.Invoice)
	assert.Equal(t, 2, unmatchedBooking.BookingPosition)
}

func TestMatcher_GreedyDescending(t *testing.T) {
	// B0 prefers I0 but B1-I0 is the global max, so B0 settles for I1.
	m := NewMatcher(DefaultConfig(), testLogger()).WithScorer(fixedScores(map[string]float64{
		"B0-I0": 80,
		"B0-I1": 60,
		"B1-I0": 90,
		"B1-I1": 55,
	}))

	result := m.Match(
		[]model.BookingEvent{makeBooking(0), makeBooking(1)},
		[]model.InvoiceEvent{makeInvoice(0), makeInvoice(1)},
	)

	require.Len(t, result.Pairings, 2)
	assert.Equal(t, [2]int{2, 1}, [2]int{result.Pairings[0].BookingPosition, result.Pairings[0].InvoicePosition})
	assert.Equal(t, [2]int{1, 2}, [2]int{result.Pairings[1].BookingPosition, result.Pairings[1].InvoicePosition})
}

func TestMatcher_ThresholdAppliesToFirstPick(t *testing.T) {
	m := NewMatcher(DefaultConfig(), testLogger()).WithScorer(fixedScores(map[string]float64{
		"B0-I0": 49.99,
	}))

	result := m.Match([]model.BookingEvent{makeBooking(0)}, []model.InvoiceEvent{makeInvoice(0)})

	assert.Equal(t, 0, result.Matched)
	require.Len(t, result.Pairings, 2)
	assert.NotNil(t, result.Pairings[0].Invoice, "unmatched invoices come first")
	assert.NotNil(t, result.Pairings[1].Booking)
}

func TestMatcher_ExactThresholdAccepted(t *testing.T) {
	m := NewMatcher(DefaultConfig(), testLogger()).WithScorer(fixedScores(map[string]float64{
		"B0-I0": 50,
	}))

	result := m.Match([]model.BookingEvent{makeBooking(0)}, []model.InvoiceEvent{makeInvoice(0)})

	assert.Equal(t, 1, result.Matched)
	assert.Len(t, result.Pairings, 1)
}

func TestMatcher_TiesPreferLowestIndices(t *testing.T) {
	m := NewMatcher(DefaultConfig(), testLogger()).WithScorer(fixedScores(map[string]float64{
		"B0-I1": 70,
		"B1-I0": 70,
		"B1-I1": 70,
	}))

	result := m.Match(
		[]model.BookingEvent{makeBooking(0), makeBooking(1)},
		[]model.InvoiceEvent{makeInvoice(0), makeInvoice(1)},
	)

	require.Len(t, result.Pairings, 2)
	assert.Equal(t, 1, result.Pairings[0].BookingPosition)
	assert.Equal(t, 2, result.Pairings[0].InvoicePosition)
	assert.Equal(t, 2, result.Pairings[1].BookingPosition)
	assert.Equal(t, 1, result.Pairings[1].InvoicePosition)
}

func TestMatcher_EmptySides(t *testing.T) {
	m := NewMatcher(DefaultConfig(), testLogger())

	result := m.Match(nil, []model.InvoiceEvent{makeInvoice(0), makeInvoice(1)})
	assert.Len(t, result.Pairings, 2)
	assert.Equal(t, 0, result.Matched)

	result = m.Match([]model.BookingEvent{makeBooking(0)}, nil)
	require.Len(t, result.Pairings, 1)
	assert.Equal(t, 1, result.Pairings[0].BookingPosition)
}

func TestMatcher_RealScoring(t *testing.T) {
	// Arrange
	m := NewMatcher(DefaultConfig(), testLogger())
	bookings := []model.BookingEvent{
		{ClaimableAmount: "1180", CreatedDate: "10:30 05-Jan-2024", VendorInvoiceNo: "HTL/2024/0042", CustomerGSTIN: "29ABCDE1234F1Z5"},
		{ClaimableAmount: "540", CreatedDate: "18:00 20-Jan-2024", VendorInvoiceNo: "HTL/2024/0107", CustomerGSTIN: "29ABCDE1234F1Z5"},
	}
	invoices := []model.InvoiceEvent{
		{
			InvoiceNo:   "HTL/2024/0107",
			InvoiceDate: "21/01/2024",
			Parsed:      &model.ParsedInvoice{TotalTaxAmount: "540.00", GuestGSTIN: "29ABCDE1234F1Z5"},
		},
		{
			InvoiceNo:   "htl/2024/0042",
			InvoiceDate: "05/01/2024",
			Parsed:      &model.ParsedInvoice{TotalTaxAmount: "1,180.00", GuestGSTIN: "29ABCDE1234F1Z5"},
		},
	}

	// Act
	result := m.Match(bookings, invoices)

	// Assert
	require.Len(t, result.Pairings, 2)
	assert.Equal(t, 2, result.Matched)
	assert.Equal(t, 1, result.Pairings[0].BookingPosition)
	assert.Equal(t, 2, result.Pairings[0].InvoicePosition)
	assert.Equal(t, 100.0, *result.Pairings[0].Score)
	assert.Equal(t, model.InvoiceValidLink, result.Pairings[0].InvoiceStatus)
	assert.Equal(t, 2, result.Pairings[1].BookingPosition)
	assert.Equal(t, 1, result.Pairings[1].InvoicePosition)
	assert.Equal(t, 92.5, *result.Pairings[1].Score)
}

func TestMatcher_BadDateSkipsPair(t *testing.T) {
	m := NewMatcher(DefaultConfig(), testLogger())
	bookings := []model.BookingEvent{{ClaimableAmount: "100", CreatedDate: "not a date", VendorInvoiceNo: "A1"}}
	invoices := []model.InvoiceEvent{{InvoiceNo: "A1", InvoiceDate: "05/01/2024"}}

	result := m.Match(bookings, invoices)

	assert.Equal(t, 1, result.SkippedPairs)
	assert.Equal(t, 0, result.Matched)
	assert.Len(t, result.Pairings, 2)
}

func TestScorePair_UnparsedInvoice(t *testing.T) {
	score, err := ScorePair(
		model.BookingEvent{ClaimableAmount: "100", CreatedDate: "05/01/2024", VendorInvoiceNo: "A1", CustomerGSTIN: "X"},
		model.InvoiceEvent{InvoiceNo: "A1", InvoiceDate: "05/01/2024"},
	)

	require.NoError(t, err)
	amount, _ := score.Field(scorer.FieldAmount)
	assert.False(t, amount.Applicable)
	gstin, _ := score.Field(scorer.FieldGSTIN)
	assert.False(t, gstin.Applicable)
	assert.Equal(t, 100.0, score.Combined)
}

func TestMatcher_AccountingProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every event appears exactly once", prop.ForAll(
		func(n, m int, scores []int) bool {
			table := make(map[string]float64)
			for i := 0; i < n; i++ {
				for j := 0; j < m; j++ {
					table[fmt.Sprintf("B%d-I%d", i, j)] = float64(scores[(i*m+j)%len(scores)])
				}
			}
			bookings := make([]model.BookingEvent, n)
			for i := range bookings {
				bookings[i] = makeBooking(i)
			}
			invoices := make([]model.InvoiceEvent, m)
			for j := range invoices {
				invoices[j] = makeInvoice(j)
			}

			result := NewMatcher(DefaultConfig(), testLogger()).WithScorer(fixedScores(table)).Match(bookings, invoices)

			if len(result.Pairings) != n+m-result.Matched {
				return false
			}
			seenB, seenI := map[int]bool{}, map[int]bool{}
			for _, p := range result.Pairings {
				if p.Booking != nil {
					if seenB[p.BookingPosition] {
						return false
					}
					seenB[p.BookingPosition] = true
				}
				if p.Invoice != nil {
					if seenI[p.InvoicePosition] {
						return false
					}
					seenI[p.InvoicePosition] = true
				}
				if p.Matched() && *p.Score < 50 {
					return false
				}
			}
			return len(seenB) == n && len(seenI) == m
		},
		gen.IntRange(0, 6),
		gen.IntRange(0, 6),
		gen.SliceOfN(36, gen.IntRange(0, 100)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
