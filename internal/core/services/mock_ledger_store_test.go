package services_test

import (
	"context"

	"github.com/SscSPs/atm_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/atm_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockLedgerStore is a mock type for the LedgerStore interface
type MockLedgerStore struct {
	mock.Mock
}

var _ portsrepo.LedgerStore = (*MockLedgerStore)(nil)

// --- Implement mock methods for LedgerStore ---

func (m *MockLedgerStore) Initialize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLedgerStore) CreateAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockLedgerStore) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	args := m.Called(ctx, accountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockLedgerStore) SetBalance(ctx context.Context, accountNumber string, newBalance decimal.Decimal) error {
	args := m.Called(ctx, accountNumber, newBalance)
	return args.Error(0)
}

func (m *MockLedgerStore) SetPIN(ctx context.Context, accountNumber string, newPIN string) error {
	args := m.Called(ctx, accountNumber, newPIN)
	return args.Error(0)
}

func (m *MockLedgerStore) AppendTransaction(ctx context.Context, accountNumber string, details string) error {
	args := m.Called(ctx, accountNumber, details)
	return args.Error(0)
}

func (m *MockLedgerStore) GetTransactions(ctx context.Context, accountNumber string) ([]domain.TransactionRecord, error) {
	args := m.Called(ctx, accountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TransactionRecord), args.Error(1)
}

func (m *MockLedgerStore) Transfer(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal) error {
	args := m.Called(ctx, fromAccount, toAccount, amount)
	return args.Error(0)
}

func (m *MockLedgerStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// decimalEq matches a decimal argument by value rather than by representation.
func decimalEq(want string) any {
	w := decimal.RequireFromString(want)
	return mock.MatchedBy(func(got decimal.Decimal) bool { return got.Equal(w) })
}
