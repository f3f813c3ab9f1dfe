package matcher

import (
	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/domain/scorer"
)

// Config holds matcher configuration
type Config struct {
	Threshold float64 // Minimum combined score for a pairing (default: 50)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Threshold: 50,
	}
}

// PairScorer scores one booking event against one invoice event.
type PairScorer func(booking model.BookingEvent, invoice model.InvoiceEvent) (scorer.MatchScore, error)

// Result contains the pairing entries for one document
type Result struct {
	Pairings     []model.Pairing
	Matched      int // Confirmed booking/invoice pairs
	SkippedPairs int // Pairs left out of the matrix (bad date, nothing comparable)
}

// scoreMatrix is a dense bookings x invoices grid of combined scores.
type scoreMatrix struct {
	rows, cols int
	scores     []float64
	valid      []bool
}

func newScoreMatrix(rows, cols int) *scoreMatrix {
	return &scoreMatrix{
		rows:   rows,
		cols:   cols,
		scores: make([]float64, rows*cols),
		valid:  make([]bool, rows*cols),
	}
}

func (s *scoreMatrix) set(row, col int, score float64) {
	s.scores[row*s.cols+col] = score
	s.valid[row*s.cols+col] = true
}

func (s *scoreMatrix) get(row, col int) (float64, bool) {
	i := row*s.cols + col
	return s.scores[i], s.valid[i]
}
