package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinor(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr error
	}{
		{"500.00", 50_000, nil},
		{"0.01", 1, nil},
		{"100", 10_000, nil},
		{"199999.99", 19_999_999, nil},
		{"12.345", 0, ErrPrecision},
		{"0", 0, ErrNotPositive},
		{"-10", 0, ErrNotPositive},
		{"500.100", 50_010, nil}, // trailing zero beyond two places is still exact paise
	}

	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.in)
		require.NoError(t, err, tc.in)

		got, err := ToMinor(d)
		if tc.wantErr != nil {
			assert.ErrorIs(t, err, tc.wantErr, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestFormatMinor(t *testing.T) {
	assert.Equal(t, "500.00", FormatMinor(50_000))
	assert.Equal(t, "0.05", FormatMinor(5))
	assert.Equal(t, "2000.50", FormatMinor(200_050))
}

func TestCheckBounds(t *testing.T) {
	minAmt, maxAmt := int64(10_000), int64(20_000_000)

	assert.NoError(t, CheckBounds(10_000, minAmt, maxAmt))
	assert.NoError(t, CheckBounds(20_000_000, minAmt, maxAmt))
	assert.ErrorIs(t, CheckBounds(9_999, minAmt, maxAmt), ErrOutOfBounds)
	assert.ErrorIs(t, CheckBounds(20_000_001, minAmt, maxAmt), ErrOutOfBounds)
}
