// Package sales holds pricing arithmetic shared by the order and customer
// modules. Money math runs on decimals and only converts back to float at
// the persistence boundary, so repeated discount/tax application cannot
// accumulate binary rounding drift.
package sales

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineTotal computes one order line: quantity times unit price, discount
// percent applied first, then tax percent on the discounted amount. The
// result is rounded to 2 decimal places.
func LineTotal(quantity, unitPrice, discountPercent, taxPercent float64) float64 {
	base := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice))
	discounted := base.Mul(hundred.Sub(decimal.NewFromFloat(discountPercent))).Div(hundred)
	taxed := discounted.Mul(hundred.Add(decimal.NewFromFloat(taxPercent))).Div(hundred)
	return taxed.Round(2).InexactFloat64()
}

// Sum adds already-rounded line totals without float error.
func Sum(lineTotals []float64) float64 {
	total := decimal.Zero
	for _, lt := range lineTotals {
		total = total.Add(decimal.NewFromFloat(lt))
	}
	return total.Round(2).InexactFloat64()
}
