package utils

import (
	"github.com/shopspring/decimal"
)

// FormatMoney renders amount with two decimal places and a dollar sign.
// Example: 50 returns "$50.00", 12.345 returns "$12.35"
func FormatMoney(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
