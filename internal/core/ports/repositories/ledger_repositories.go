package repositories

import (
	"context"

	"github.com/SscSPs/atm_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SchemaInitializer prepares the durable schema.
type SchemaInitializer interface {
	// Initialize ensures the accounts and transactions tables exist. Repeated calls are no-ops.
	Initialize(ctx context.Context) error
}

// AccountReader defines read operations for account data
type AccountReader interface {
	// GetAccount retrieves an account by number. Returns apperrors.ErrNotFound if absent.
	GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error)
}

// AccountWriter defines single-row write operations for account data
type AccountWriter interface {
	// CreateAccount inserts the account together with its creation record.
	// Returns apperrors.ErrDuplicate if the account number is taken.
	CreateAccount(ctx context.Context, account domain.Account) error

	// SetBalance overwrites the balance. Business rules are the caller's responsibility.
	SetBalance(ctx context.Context, accountNumber string, newBalance decimal.Decimal) error

	// SetPIN overwrites the PIN.
	SetPIN(ctx context.Context, accountNumber string, newPIN string) error
}

// TransactionReader defines read operations for the audit log
type TransactionReader interface {
	// GetTransactions lists every record of the account, newest first. Never nil.
	GetTransactions(ctx context.Context, accountNumber string) ([]domain.TransactionRecord, error)
}

// TransactionWriter defines append operations for the audit log
type TransactionWriter interface {
	// AppendTransaction inserts one audit row with a store-assigned timestamp.
	AppendTransaction(ctx context.Context, accountNumber string, details string) error
}

// TransferExecutor defines the one multi-row atomic operation
type TransferExecutor interface {
	// Transfer moves amount from one account to another and records both legs, all or nothing.
	// Every failure matches apperrors.ErrTransferFailed plus its cause.
	Transfer(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal) error
}

// LedgerStore combines all ledger interfaces.
// It is the only component permitted to mutate durable state.
type LedgerStore interface {
	SchemaInitializer
	AccountReader
	AccountWriter
	TransactionReader
	TransactionWriter
	TransferExecutor

	// Close releases the underlying connections.
	Close() error
}
