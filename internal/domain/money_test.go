package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMoneyConversions(t *testing.T) {
	m := NewMoney(123456, "INR")
	require.Equal(t, "1234.56", m.ToDecimal().StringFixed(2))
	require.Equal(t, "1234.56 INR", m.String())
	require.Equal(t, int64(123456), FromDecimal(m.ToDecimal()))
}

func TestProcessingFee(t *testing.T) {
	rate := decimal.NewFromFloat(0.02)
	minimum := int64(1_000) // ₹10

	cases := []struct {
		name   string
		amount int64
		want   int64
	}{
		{name: "minimum_applies_for_small_amounts", amount: 10_000, want: 1_000},
		{name: "minimum_exactly_at_crossover", amount: 50_000, want: 1_000},
		{name: "rate_applies_above_crossover", amount: 100_000, want: 2_000},
		{name: "rounds_to_whole_paise", amount: 100_025, want: 2_001},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ProcessingFee(tc.amount, rate, minimum))
		})
	}
}
