package shared

import "github.com/shopspring/decimal"

// Round2 rounds to ledger precision.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// Equal2 compares two amounts at ledger precision.
func Equal2(a, b decimal.Decimal) bool {
	return a.Round(2).Equal(b.Round(2))
}

// Sum adds amounts together.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
