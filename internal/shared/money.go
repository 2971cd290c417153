package shared

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of fraction digits money values carry on output.
const MoneyPlaces = 2

// RoundMoney rounds an amount to MoneyPlaces fraction digits, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
