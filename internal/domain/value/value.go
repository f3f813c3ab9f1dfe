// Package value holds the raw-value rules shared by the document model and
// the scorers: which placeholders count as absent and how monetary strings
// are read.
package value

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyAmount is returned when an amount is absent or a placeholder.
	ErrEmptyAmount = errors.New("amount is empty")
	// ErrUnparseableAmount is returned when a present amount is not numeric.
	ErrUnparseableAmount = errors.New("unparseable amount")
)

// IsMissing reports whether a raw value counts as absent.
func IsMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "N/A", "NaN", "nan", "null", "None":
		return true
	}
	return false
}

var amountCleaner = strings.NewReplacer(",", "", "₹", "", " ", "")

// ParseAmount parses a monetary value, ignoring thousands separators and the
// rupee sign.
func ParseAmount(v string) (decimal.Decimal, error) {
	if IsMissing(v) {
		return decimal.Zero, ErrEmptyAmount
	}
	d, err := decimal.NewFromString(amountCleaner.Replace(strings.TrimSpace(v)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q: %w", ErrUnparseableAmount, v, err)
	}
	return d, nil
}
