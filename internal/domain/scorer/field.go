// Package scorer computes field-level similarity scores between a booking or
// invoice value and its counterpart, and combines them into a single
// confidence score.
//
// Every field score is either a number in [0, 100] or indeterminate. An
// indeterminate score means the field could not be compared (one side is
// missing) and is left out of the combined score entirely.
//
// Example usage:
//
//	amount := scorer.Amount("1,180.00", "1180")
//	date, err := scorer.Date("10:30 05-Jan-2024", "05/01/2024")
//	if err != nil {
//	    // unparseable date, skip this pair
//	}
//	score, err := scorer.Combine(
//	    scorer.NewField(scorer.FieldAmount, amount),
//	    scorer.NewField(scorer.FieldDate, date),
//	)
package scorer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/gst-reconcile/internal/domain/value"
)

// ErrUnparseableDate is returned when a present date value matches none of
// the supported layouts.
var ErrUnparseableDate = errors.New("unparseable date")

// Field names used by the matchers.
const (
	FieldAmount        = "amount"
	FieldDate          = "date"
	FieldInvoiceNumber = "invoice_number"
	FieldGSTIN         = "gstin"
)

// Amount bands
const (
	closeAmountPercent = 15
	nearAmountPercent  = 30
	nearAmountScore    = 70
)

// Date bands
const (
	nearDateDays  = 5
	nearDateScore = 70
)

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{
	"2/1/2006",
	"2/1/06",
	"15:04 2-Jan-2006",
	"2006-01-02 15:04",
}

// FieldScore is a similarity score in [0, 100] or indeterminate.
type FieldScore struct {
	Value      float64
	Applicable bool
}

// Indeterminate is the score of a field that could not be compared.
var Indeterminate = FieldScore{}

// Score returns an applicable field score.
func Score(v float64) FieldScore {
	return FieldScore{Value: v, Applicable: true}
}

// MarshalJSON renders indeterminate scores as null.
func (f FieldScore) MarshalJSON() ([]byte, error) {
	if !f.Applicable {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON accepts a number or null.
func (f *FieldScore) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Indeterminate
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Score(v)
	return nil
}

func (f FieldScore) String() string {
	if !f.Applicable {
		return "n/a"
	}
	return fmt.Sprintf("%g", f.Value)
}

// Amount scores two monetary values by their percentage difference relative
// to the larger of the two.
func Amount(a, b string) FieldScore {
	if value.IsMissing(a) || value.IsMissing(b) {
		return Indeterminate
	}
	da, err := value.ParseAmount(a)
	if err != nil {
		return Indeterminate
	}
	db, err := value.ParseAmount(b)
	if err != nil {
		return Indeterminate
	}
	return AmountDecimal(da, db)
}

// AmountDecimal scores two already parsed amounts.
func AmountDecimal(a, b decimal.Decimal) FieldScore {
	if !a.IsPositive() && !b.IsPositive() {
		return Indeterminate
	}

	diff := a.Sub(b).Abs().Div(decimal.Max(a, b)).Mul(decimal.NewFromInt(100))
	switch {
	case diff.LessThanOrEqual(decimal.NewFromInt(closeAmountPercent)):
		score := decimal.NewFromInt(100).Sub(diff.Mul(decimal.NewFromInt(3)))
		return Score(float64(score.Truncate(0).IntPart()))
	case diff.LessThanOrEqual(decimal.NewFromInt(nearAmountPercent)):
		return Score(nearAmountScore)
	default:
		return Score(0)
	}
}

// ParseDate parses a date in any of the supported layouts.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, v)
}

// Date scores two dates by the number of calendar days between them.
// A present but unparseable value yields ErrUnparseableDate.
func Date(a, b string) (FieldScore, error) {
	if value.IsMissing(a) || value.IsMissing(b) {
		return Indeterminate, nil
	}
	da, err := ParseDate(a)
	if err != nil {
		return Indeterminate, err
	}
	db, err := ParseDate(b)
	if err != nil {
		return Indeterminate, err
	}

	days := calendarDays(da, db)
	switch {
	case days == 0:
		return Score(100), nil
	case days <= nearDateDays:
		return Score(nearDateScore), nil
	default:
		return Score(0), nil
	}
}

func calendarDays(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// InvoiceNumber compares invoice numbers case-insensitively, allowing one to
// be embedded in the other.
func InvoiceNumber(a, b string) FieldScore {
	if value.IsMissing(a) || value.IsMissing(b) {
		return Indeterminate
	}
	return Score(float64(PartialRatio(strings.ToLower(a), strings.ToLower(b))))
}

// Text compares two free-text values (tax IDs, names) case-sensitively.
func Text(a, b string) FieldScore {
	if value.IsMissing(a) || value.IsMissing(b) {
		return Indeterminate
	}
	return Score(float64(Ratio(a, b)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
