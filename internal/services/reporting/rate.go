package reporting

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// successRatePct computes successful/total*100 rounded to two places.
// Zero total means zero rate.
func successRatePct(success, total int64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(success).Mul(oneHundred).Div(decimal.NewFromInt(total)).Round(2)
}
