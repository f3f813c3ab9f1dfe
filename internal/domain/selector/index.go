package selector

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
)

// LedgerIndex keeps the ledger rows of a batch sorted by invoice value so
// amount windows can be found with a binary search. It is read-only after
// construction and safe for concurrent use.
type LedgerIndex struct {
	rows    []model.LedgerRow
	byValue []int
}

// NewLedgerIndex builds an index over rows. The slice must not be modified
// afterwards.
func NewLedgerIndex(rows []model.LedgerRow) *LedgerIndex {
	byValue := make([]int, len(rows))
	for i := range byValue {
		byValue[i] = i
	}
	sort.SliceStable(byValue, func(a, b int) bool {
		return rows[byValue[a]].Value.LessThan(rows[byValue[b]].Value)
	})
	return &LedgerIndex{rows: rows, byValue: byValue}
}

// Len returns the number of rows.
func (x *LedgerIndex) Len() int {
	return len(x.rows)
}

// Row returns row i in original ledger order.
func (x *LedgerIndex) Row(i int) model.LedgerRow {
	return x.rows[i]
}

// Window returns the positions of all rows with low <= value <= high, in
// original ledger order.
func (x *LedgerIndex) Window(low, high decimal.Decimal) []int {
	start := sort.Search(len(x.byValue), func(i int) bool {
		return x.rows[x.byValue[i]].Value.GreaterThanOrEqual(low)
	})

	var out []int
	for i := start; i < len(x.byValue); i++ {
		idx := x.byValue[i]
		if x.rows[idx].Value.GreaterThan(high) {
			break
		}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
