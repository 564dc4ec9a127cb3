package domain

import (
	"github.com/SscSPs/atm_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.Rejected("amount must be positive")
	}
	return nil
}

// ValidatePIN checks that pin is exactly PINLength ASCII digits.
func ValidatePIN(pin string) error {
	if len(pin) != PINLength {
		return apperrors.Rejected("PIN must be %d digits", PINLength)
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return apperrors.Rejected("PIN must be %d digits", PINLength)
		}
	}
	return nil
}

// ValidateTransfer checks the rules shared by the session and the store for a transfer
// out of from. to is the target account number.
func ValidateTransfer(from Account, to string, amount decimal.Decimal) error {
	if from.AccountNumber == to {
		return apperrors.Rejected("cannot transfer to your own account")
	}
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if !from.CanDebit(amount) {
		return apperrors.Rejected("insufficient funds")
	}
	return nil
}
