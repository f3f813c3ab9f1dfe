// Package model defines the documents, ledger rows and match results that
// flow through reconciliation.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/gst-reconcile/internal/domain/value"
)

// ErrMalformedDocument marks a booking document whose shape cannot be
// reconciled (no ID, no booking events, or no invoices to pair with).
var ErrMalformedDocument = errors.New("malformed booking document")

// Amount is a monetary value kept exactly as received. Upstream documents
// carry amounts as numbers, numeric strings, or "N/A".
type Amount string

// UnmarshalJSON accepts a JSON number, string or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		*a = Amount(n.String())
	}
	return nil
}

// IsEmpty reports whether the amount is absent.
func (a Amount) IsEmpty() bool {
	return value.IsMissing(string(a))
}

// Decimal parses the amount. An absent amount yields value.ErrEmptyAmount,
// a present but non-numeric one value.ErrUnparseableAmount.
func (a Amount) Decimal() (decimal.Decimal, error) {
	return value.ParseAmount(string(a))
}

// BookingEvent is one booking line the expense system expects an invoice
// for.
type BookingEvent struct {
	ClaimableAmount Amount `json:"gst_claimable_amount"`
	CreatedDate     string `json:"created_date"`
	VendorInvoiceNo string `json:"vendor_invoice_no"`
	CustomerGSTIN   string `json:"customer_gstin"`
}

// ParsedInvoice holds the fields extracted from an invoice file.
type ParsedInvoice struct {
	InvoiceNumber  string `json:"invoice_number,omitempty"`
	InvoiceDate    string `json:"invoice_date,omitempty"`
	InvoiceAmount  Amount `json:"invoice_amount,omitempty"`
	TotalTaxAmount Amount `json:"total_tax_amount,omitempty"`
	GuestGSTIN     string `json:"guest_gstin,omitempty"`
	HotelGSTIN     string `json:"hotel_gstin,omitempty"`
	HotelName      string `json:"hotel_name,omitempty"`
}

// InvoiceEvent is one invoice attached to a booking document.
type InvoiceEvent struct {
	InvoiceNo   string         `json:"invoice_no"`
	InvoiceDate string         `json:"invoice_date"`
	InvoiceURL  string         `json:"invoice_url,omitempty"`
	Parsed      *ParsedInvoice `json:"parsed_invoice,omitempty"`
}

// InvoiceStatus classifies how much of an invoice is available.
type InvoiceStatus string

const (
	InvoiceValidLink   InvoiceStatus = "valid_link"
	InvoiceInvalidLink InvoiceStatus = "invalid_link"
	InvoiceNoLink      InvoiceStatus = "no_link"
)

// Status classifies the invoice by whether it was parsed or at least linked.
func (e InvoiceEvent) Status() InvoiceStatus {
	switch {
	case e.Parsed != nil:
		return InvoiceValidLink
	case strings.TrimSpace(e.InvoiceURL) != "":
		return InvoiceInvalidLink
	default:
		return InvoiceNoLink
	}
}

// BookingDocument groups the booking events of one booking with the
// invoices received for it.
type BookingDocument struct {
	ID              string         `json:"id"`
	BookingType     string         `json:"booking_type"`
	ExpenseClientID string         `json:"expense_client_id"`
	Bookings        []BookingEvent `json:"bookings"`
	Invoices        []InvoiceEvent `json:"invoices"`
	ParsedInvoices  []InvoiceEvent `json:"parsed_invoices,omitempty"`
}

// Validate checks the document can be reconciled at all.
func (d BookingDocument) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedDocument)
	}
	if len(d.Bookings) == 0 {
		return fmt.Errorf("%w: document %s has no booking events", ErrMalformedDocument, d.ID)
	}
	return nil
}

// InvoiceCandidates returns the invoices to match against: every parsed
// invoice, followed by each raw invoice whose number no parsed invoice
// already covers. Raw invoices without a number are always kept.
func (d BookingDocument) InvoiceCandidates() []InvoiceEvent {
	out := make([]InvoiceEvent, 0, len(d.ParsedInvoices)+len(d.Invoices))
	covered := make(map[string]bool, len(d.ParsedInvoices))
	for _, inv := range d.ParsedInvoices {
		out = append(out, inv)
		if inv.InvoiceNo != "" {
			covered[inv.InvoiceNo] = true
		}
	}
	for _, inv := range d.Invoices {
		if inv.InvoiceNo != "" && covered[inv.InvoiceNo] {
			continue
		}
		out = append(out, inv)
	}
	return out
}
