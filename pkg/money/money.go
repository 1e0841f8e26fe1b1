// Package money holds the fixed-point conventions for monetary values:
// two fractional digits in storage, float64 on the wire.
package money

import "github.com/shopspring/decimal"

const Scale = 2

func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Float converts d for JSON responses.
func Float(d decimal.Decimal) float64 {
	return d.Round(Scale).InexactFloat64()
}

// Times returns unit * quantity rounded to the storage scale.
func Times(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity))).Round(Scale)
}
