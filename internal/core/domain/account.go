package domain

import (
	"github.com/shopspring/decimal"
)

// PINLength is the exact number of digits in an account PIN.
const PINLength = 4

// Account represents one ATM account within the core domain.
// AccountNumber, PIN and Name are plain text; Balance is never negative once committed.
type Account struct {
	AccountNumber string          `json:"accountNumber"` // Primary Key, caller generated
	PIN           string          `json:"-"`
	Name          string          `json:"name"`
	Balance       decimal.Decimal `json:"balance"`
}

// PINMatches reports whether pin is exactly the account's PIN.
func (a Account) PINMatches(pin string) bool {
	return a.PIN == pin
}

// CanDebit reports whether amount can leave the account without the balance going negative.
func (a Account) CanDebit(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
