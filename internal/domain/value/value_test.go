package value

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMissing(t *testing.T) {
	for _, v := range []string{"", "  ", "N/A", "NaN", "nan", "null", "None"} {
		assert.True(t, IsMissing(v), "%q", v)
	}
	for _, v := range []string{"0", "n/a text", "H-001"} {
		assert.False(t, IsMissing(v), "%q", v)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1180", "1180"},
		{"1,180.50", "1180.5"},
		{"₹ 2,000", "2000"},
		{" -12.5 ", "-12.5"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseAmount_Errors(t *testing.T) {
	_, err := ParseAmount("N/A")
	assert.ErrorIs(t, err, ErrEmptyAmount)
	assert.NotErrorIs(t, err, ErrUnparseableAmount)

	_, err = ParseAmount("twelve")
	assert.ErrorIs(t, err, ErrUnparseableAmount)
	assert.NotErrorIs(t, err, ErrEmptyAmount)
	assert.ErrorContains(t, err, `"twelve"`)
}
