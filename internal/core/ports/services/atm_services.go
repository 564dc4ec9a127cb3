package services

import (
	"context"

	"github.com/SscSPs/atm_ledger/internal/core/domain"
	"github.com/SscSPs/atm_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// ATMSvc defines the operations available before a customer is authenticated.
type ATMSvc interface {
	// CreateAccount opens a new account with a generated account number and an initial deposit.
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest) (*domain.Account, error)

	// Login verifies the PIN and returns a session bound to the account.
	// Returns apperrors.ErrNotFound or apperrors.ErrInvalidCredentials on failure.
	Login(ctx context.Context, accountNumber, pin string) (AccountSessionSvc, error)
}

// AccountSessionReaderSvc defines the read operations of an authenticated session.
type AccountSessionReaderSvc interface {
	AccountNumber() string
	Name() string
	SessionID() string

	// CheckBalance returns the cached balance without touching storage.
	CheckBalance() decimal.Decimal

	// TransactionHistory lists the account's records, newest first.
	TransactionHistory(ctx context.Context) ([]domain.TransactionRecord, error)
}

// AccountSessionWriterSvc defines the mutating operations of an authenticated session.
type AccountSessionWriterSvc interface {
	Withdraw(ctx context.Context, amount decimal.Decimal) error
	Deposit(ctx context.Context, amount decimal.Decimal) error
	Transfer(ctx context.Context, toAccount string, amount decimal.Decimal) error
	ChangePIN(ctx context.Context, newPIN, confirmPIN string) error

	// Refresh re-reads the account from storage, replacing the cached balance and PIN.
	Refresh(ctx context.Context) error
}

// AccountSessionSvc combines all session interfaces.
type AccountSessionSvc interface {
	AccountSessionReaderSvc
	AccountSessionWriterSvc
}
