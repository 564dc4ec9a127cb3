package pgsql

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/SscSPs/atm_ledger/internal/apperrors"
	"github.com/SscSPs/atm_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// LedgerStoreTestSuite runs against a live database named by PGSQL_URL.
type LedgerStoreTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *LedgerStore
}

func (suite *LedgerStoreTestSuite) SetupSuite() {
	url := os.Getenv("PGSQL_URL")
	if url == "" {
		suite.T().Skip("PGSQL_URL not set, skipping postgres ledger tests")
	}
	suite.ctx = context.Background()

	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store, err := Open(suite.ctx, url,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
	suite.Require().NoError(err)
	suite.Require().NoError(store.Initialize(suite.ctx))
	suite.store = store
}

func (suite *LedgerStoreTestSuite) TearDownSuite() {
	if suite.store != nil {
		suite.NoError(suite.store.Close())
	}
}

func (suite *LedgerStoreTestSuite) SetupTest() {
	_, err := suite.store.Pool.Exec(suite.ctx, `TRUNCATE transactions, accounts RESTART IDENTITY`)
	suite.Require().NoError(err)
	suite.store.faultAfterDebit = nil
}

func (suite *LedgerStoreTestSuite) createAccount(number, balance string) {
	suite.Require().NoError(suite.store.CreateAccount(suite.ctx, domain.Account{
		AccountNumber: number,
		PIN:           "1234",
		Name:          "Holder " + number,
		Balance:       decimal.RequireFromString(balance),
	}))
}

func (suite *LedgerStoreTestSuite) balanceOf(number string) decimal.Decimal {
	acc, err := suite.store.GetAccount(suite.ctx, number)
	suite.Require().NoError(err)
	return acc.Balance
}

func (suite *LedgerStoreTestSuite) historyLen(number string) int {
	records, err := suite.store.GetTransactions(suite.ctx, number)
	suite.Require().NoError(err)
	return len(records)
}

func (suite *LedgerStoreTestSuite) TestCreateAndGet() {
	suite.createAccount("1000000001", "100.00")

	acc, err := suite.store.GetAccount(suite.ctx, "1000000001")
	suite.Require().NoError(err)
	suite.Equal("Holder 1000000001", acc.Name)
	suite.True(decimal.NewFromInt(100).Equal(acc.Balance))

	records, err := suite.store.GetTransactions(suite.ctx, "1000000001")
	suite.Require().NoError(err)
	suite.Require().Len(records, 1)
	suite.Equal("Account created with balance $100.00", records[0].Details)
}

func (suite *LedgerStoreTestSuite) TestCreateAccount_Duplicate() {
	suite.createAccount("1000000001", "100")
	err := suite.store.CreateAccount(suite.ctx, domain.Account{AccountNumber: "1000000001", PIN: "0000", Name: "X", Balance: decimal.Zero})
	suite.ErrorIs(err, apperrors.ErrDuplicate)
	suite.Equal(1, suite.historyLen("1000000001"))
}

func (suite *LedgerStoreTestSuite) TestNotFound() {
	_, err := suite.store.GetAccount(suite.ctx, "missing")
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.ErrorIs(suite.store.SetBalance(suite.ctx, "missing", decimal.NewFromInt(1)), apperrors.ErrNotFound)
	suite.ErrorIs(suite.store.SetPIN(suite.ctx, "missing", "1111"), apperrors.ErrNotFound)
}

func (suite *LedgerStoreTestSuite) TestTransfer() {
	suite.createAccount("AAAAAAAAAA", "200")
	suite.createAccount("BBBBBBBBBB", "10")

	suite.Require().NoError(suite.store.Transfer(suite.ctx, "AAAAAAAAAA", "BBBBBBBBBB", decimal.NewFromInt(50)))
	suite.True(decimal.NewFromInt(150).Equal(suite.balanceOf("AAAAAAAAAA")))
	suite.True(decimal.NewFromInt(60).Equal(suite.balanceOf("BBBBBBBBBB")))
	suite.Equal(2, suite.historyLen("AAAAAAAAAA"))
	suite.Equal(2, suite.historyLen("BBBBBBBBBB"))

	err := suite.store.Transfer(suite.ctx, "BBBBBBBBBB", "AAAAAAAAAA", decimal.NewFromInt(1000))
	suite.ErrorIs(err, apperrors.ErrTransferFailed)
	suite.ErrorIs(err, apperrors.ErrValidation)

	err = suite.store.Transfer(suite.ctx, "AAAAAAAAAA", "CCCCCCCCCC", decimal.NewFromInt(1))
	suite.ErrorIs(err, apperrors.ErrTransferFailed)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *LedgerStoreTestSuite) TestTransfer_FailureBetweenDebitAndCreditRollsBack() {
	suite.createAccount("AAAAAAAAAA", "200")
	suite.createAccount("BBBBBBBBBB", "10")

	crash := errors.New("simulated crash after debit")
	suite.store.faultAfterDebit = func() error { return crash }

	err := suite.store.Transfer(suite.ctx, "AAAAAAAAAA", "BBBBBBBBBB", decimal.NewFromInt(50))
	suite.ErrorIs(err, apperrors.ErrTransferFailed)
	suite.ErrorIs(err, crash)

	suite.True(decimal.NewFromInt(200).Equal(suite.balanceOf("AAAAAAAAAA")))
	suite.True(decimal.NewFromInt(10).Equal(suite.balanceOf("BBBBBBBBBB")))
	suite.Equal(1, suite.historyLen("AAAAAAAAAA"))
	suite.Equal(1, suite.historyLen("BBBBBBBBBB"))
}

func TestLedgerStoreTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerStoreTestSuite))
}
