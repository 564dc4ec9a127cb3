package dto

import (
	"github.com/SscSPs/atm_ledger/internal/core/domain"
	"github.com/SscSPs/atm_ledger/internal/utils"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the data needed to open a new account.
type CreateAccountRequest struct {
	Name           string          `validate:"required,max=100"`
	PIN            string          `validate:"required,len=4,number"`
	InitialDeposit decimal.Decimal // must be positive, checked by domain.ValidateAmount
}

// LoginRequest holds the credentials typed at the main menu.
type LoginRequest struct {
	AccountNumber string `validate:"required,number"`
	PIN           string `validate:"required,len=4,number"`
}

// AccountResponse is the printable view of an account. The PIN is never included.
type AccountResponse struct {
	AccountNumber string
	Name          string
	Balance       string
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountNumber: acc.AccountNumber,
		Name:          acc.Name,
		Balance:       utils.FormatMoney(acc.Balance),
	}
}
