package models

import "github.com/shopspring/decimal"

// MoneyScale is the number of fractional digits every stored amount carries.
// Rounding happens at the point of computation, never at display time, so
// replayed history is bit-exact.
const MoneyScale = 3

func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}
