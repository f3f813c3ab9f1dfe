package model

import (
	"time"

	"github.com/eshaffer321/gst-reconcile/internal/domain/scorer"
)

// Mode selects which matcher a run uses.
type Mode string

const (
	ModeOneToOne Mode = "one_to_one"
	ModeLedger   Mode = "ledger"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeOneToOne || m == ModeLedger
}

// MatchStatus is the overall outcome for one document.
type MatchStatus string

const (
	StatusMatched      MatchStatus = "matched"
	StatusNoMatch      MatchStatus = "no_match"
	StatusPerfectMatch MatchStatus = "perfect_match"
)

// ReferenceStatus is the outcome of the IRN cross-reference lookup.
type ReferenceStatus string

const (
	ReferenceFound    ReferenceStatus = "found"
	ReferenceMissing  ReferenceStatus = "no_reference"
	ReferenceNotFound ReferenceStatus = "not_found"
)

// CrossReference is the registry record behind a ledger row, or the reason
// there is none.
type CrossReference struct {
	Status ReferenceStatus `json:"status"`
	Record *IRNRecord      `json:"record,omitempty"`
}

// Candidate is a ledger row retained for an invoice, with its scores.
type Candidate struct {
	Row       LedgerRow         `json:"row"`
	Score     scorer.MatchScore `json:"score"`
	Reference CrossReference    `json:"reference"`
}

// InvoiceDetails are the invoice-side values a ledger match was scored on.
type InvoiceDetails struct {
	InvoiceNumber string `json:"invoice_number"`
	InvoiceDate   string `json:"invoice_date"`
	InvoiceAmount Amount `json:"invoice_amount"`
	GuestGSTIN    string `json:"guest_gstin"`
}

// Pairing is one entry of a one-to-one result. Positions are 1-based; a zero
// position means that side is unmatched.
type Pairing struct {
	BookingPosition int           `json:"booking_event,omitempty"`
	TotalBookings   int           `json:"total_booking_events,omitempty"`
	InvoicePosition int           `json:"invoice_event,omitempty"`
	TotalInvoices   int           `json:"total_invoice_events,omitempty"`
	InvoiceStatus   InvoiceStatus `json:"invoice_status,omitempty"`
	Score           *float64      `json:"score,omitempty"`
	Booking         *BookingEvent `json:"booking"`
	Invoice         *InvoiceEvent `json:"invoice"`
}

// Matched reports whether both sides are present.
func (p Pairing) Matched() bool {
	return p.Booking != nil && p.Invoice != nil
}

// MatchResult is everything persisted for one booking document.
type MatchResult struct {
	DocumentID string          `json:"document_id"`
	Mode       Mode            `json:"mode"`
	Status     MatchStatus     `json:"status"`
	MaxScore   float64         `json:"max_combined_score"`
	Invoice    *InvoiceDetails `json:"invoice_details,omitempty"`
	Selected   *Candidate      `json:"selected,omitempty"`
	Candidates []Candidate     `json:"candidates,omitempty"`
	Pairings   []Pairing       `json:"pairings,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// GoodMatch summarises a ledger result that cleared the keep threshold.
type GoodMatch struct {
	DocumentID string         `json:"document_id"`
	MaxScore   float64        `json:"max_combined_score"`
	Invoice    InvoiceDetails `json:"invoice_details"`
	Against    LedgerRow      `json:"against"`
}
