package ordering

import "github.com/shopspring/decimal"

// Line is one priced position of an order
type Line struct {
	Quantity int
	Price    decimal.Decimal
}

// LineSum returns quantity × price for a single line
func LineSum(l Line) decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Total sums all lines, rounded to two fractional digits.
// It is computed on read and never persisted.
func Total(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineSum(l))
	}
	return sum.Round(2)
}
