package sales

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineTotalDiscountBeforeTax(t *testing.T) {
	// 10 x 100,000 = 1,000,000; -10% = 900,000; +8% tax = 972,000
	require.InDelta(t, 972000.0, LineTotal(10, 100000, 10, 8), 0.001)
}

func TestLineTotalNoAdjustments(t *testing.T) {
	require.InDelta(t, 250000.0, LineTotal(5, 50000, 0, 0), 0.001)
}

func TestLineTotalRounding(t *testing.T) {
	// 3 x 9.99 = 29.97; -5% = 28.4715 -> rounds half-up to 28.47
	require.InDelta(t, 28.47, LineTotal(3, 9.99, 5, 0), 0.001)
}

func TestLineTotalFractionalQuantity(t *testing.T) {
	// 2.5 kg x 12.40 = 31.00; +10% tax = 34.10
	require.InDelta(t, 34.10, LineTotal(2.5, 12.40, 0, 10), 0.001)
}

func TestSumAvoidsFloatDrift(t *testing.T) {
	totals := make([]float64, 0, 10)
	for i := 0; i < 10; i++ {
		totals = append(totals, 0.1)
	}
	require.Equal(t, 1.0, Sum(totals))
}
