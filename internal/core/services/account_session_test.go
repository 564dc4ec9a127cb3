package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/SscSPs/atm_ledger/internal/apperrors"
	"github.com/SscSPs/atm_ledger/internal/core/domain"
	"github.com/SscSPs/atm_ledger/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	ownAccount   = "1000000001"
	otherAccount = "2000000002"
)

// --- Test Suite Setup ---

type AccountSessionTestSuite struct {
	suite.Suite
	ctx       context.Context
	mockStore *MockLedgerStore
	session   *services.AccountSession
}

func (suite *AccountSessionTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.mockStore = new(MockLedgerStore)
	suite.session = services.NewAccountSession(suite.mockStore, domain.Account{
		AccountNumber: ownAccount,
		PIN:           "1234",
		Name:          "Ada Lovelace",
		Balance:       decimal.NewFromInt(100),
	}, "session-1")
}

func (suite *AccountSessionTestSuite) TearDownTest() {
	suite.mockStore.AssertExpectations(suite.T())
}

func (suite *AccountSessionTestSuite) assertBalance(want string) {
	suite.True(decimal.RequireFromString(want).Equal(suite.session.CheckBalance()),
		"balance: want %s, got %s", want, suite.session.CheckBalance())
}

func (suite *AccountSessionTestSuite) storageErr(op string) error {
	return apperrors.NewStorageError(op, ownAccount, errors.New("disk I/O error"))
}

// --- Test Cases ---

func (suite *AccountSessionTestSuite) TestIdentityAndBalance() {
	suite.Equal(ownAccount, suite.session.AccountNumber())
	suite.Equal("Ada Lovelace", suite.session.Name())
	suite.Equal("session-1", suite.session.SessionID())
	suite.assertBalance("100")
	suite.mockStore.AssertNotCalled(suite.T(), "GetAccount", mock.Anything, mock.Anything)
}

func (suite *AccountSessionTestSuite) TestWithdraw_Success() {
	suite.mockStore.On("SetBalance", mock.Anything, ownAccount, decimalEq("70")).Return(nil).Once()
	suite.mockStore.On("AppendTransaction", mock.Anything, ownAccount, "Withdrawal: -$30.00").Return(nil).Once()

	suite.Require().NoError(suite.session.Withdraw(suite.ctx, decimal.NewFromInt(30)))
	suite.assertBalance("70")
}

func (suite *AccountSessionTestSuite) TestWithdraw_EntireBalance() {
	suite.mockStore.On("SetBalance", mock.Anything, ownAccount, decimalEq("0")).Return(nil).Once()
	suite.mockStore.On("AppendTransaction", mock.Anything, ownAccount, "Withdrawal: -$100.00").Return(nil).Once()

	suite.Require().NoError(suite.session.Withdraw(suite.ctx, decimal.NewFromInt(100)))
	suite.assertBalance("0")
}

func (suite *AccountSessionTestSuite) TestWithdraw_Rejected() {
	tests := []struct {
		name    string
		amount  decimal.Decimal
		wantMsg string
	}{
		{"zero", decimal.Zero, "amount must be positive"},
		{"negative", decimal.NewFromInt(-5), "amount must be positive"},
		{"exceeds balance", decimal.RequireFromString("100.01"), "insufficient funds"},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			err := suite.session.Withdraw(suite.ctx, tt.amount)
			suite.ErrorIs(err, apperrors.ErrValidation)
			suite.ErrorContains(err, tt.wantMsg)
			suite.assertBalance("100")
		})
	}
	suite.mockStore.AssertNotCalled(suite.T(), "SetBalance", mock.Anything, mock.Anything, mock.Anything)
	suite.mockStore.AssertNotCalled(suite.T(), "AppendTransaction", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AccountSessionTestSuite) TestWithdraw_StorageFailureLeavesCacheAndRefreshesNextTime() {
	suite.mockStore.On("SetBalance", mock.Anything, ownAccount, decimalEq("70")).Return(suite.storageErr("set_balance")).Once()

	err := suite.session.Withdraw(suite.ctx, decimal.NewFromInt(30))
	suite.ErrorIs(err, apperrors.ErrStorage)
	suite.assertBalance("100")

	// The next mutation re-reads the account before trusting the cache.
	suite.mockStore.On("GetAccount", mock.Anything, ownAccount).
		Return(&domain.Account{AccountNumber: ownAccount, PIN: "1234", Name: "Ada Lovelace", Balance: decimal.NewFromInt(95)}, nil).Once()
	suite.mockStore.On("SetBalance", mock.Anything, ownAccount, decimalEq("105")).Return(nil).Once()
	suite.mockStore.On("AppendTransaction", mock.Anything, ownAccount, "Deposit: +$10.00").Return(nil).Once()

	suite.Require().NoError(suite.session.Deposit(suite.ctx, decimal.NewFromInt(10)))
	suite.assertBalance("105")
}

func (suite *AccountSessionTestSuite) TestWithdraw_AppendFailureKeepsCommittedBalance() {
	suite.mockStore.On("SetBalance", mock.Anything, ownAccount, decimalEq("70")).Return(nil).Once()
	suite.mockStore.On("AppendTransaction", mock.Anything, ownAccount, "Withdrawal: -$30.00").
		Return(suite.storageErr("append_transaction")).Once()

	err := suite.session.Withdraw(suite.ctx, decimal.NewFromInt(30))
	suite.ErrorIs(err, apperrors.ErrStorage)
	suite.assertBalance("70")
}

func (suite *AccountSessionTestSuite) TestRefreshFailureBlocksMutation() {
	suite.mockStore.On("SetBalance", mock.Anything, ownAccount, mock.Anything).Return(suite.storageErr("set_balance")).Once()
	suite.Error(suite.session.Deposit(suite.ctx, decimal.NewFromInt(1)))

	suite.mockStore.On("GetAccount", mock.Anything, ownAccount).Return(nil, suite.storageErr("get_account")).Once()
	err := suite.session.Deposit(suite.ctx, decimal.NewFromInt(1))
	suite.ErrorIs(err, apperrors.ErrStorage)
	suite.assertBalance("100")
}

func (suite *AccountSessionTestSuite) TestDeposit_Success() {
	suite.mockStore.On("SetBalance", mock.Anything, ownAccount, decimalEq("150.25")).Return(nil).Once()
	suite.mockStore.On("AppendTransaction", mock.Anything, ownAccount, "Deposit: +$50.25").Return(nil).Once()

	suite.Require().NoError(suite.session.Deposit(suite.ctx, decimal.RequireFromString("50.25")))
	suite.assertBalance("150.25")
}

func (suite *AccountSessionTestSuite) TestDeposit_Rejected() {
	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-1)} {
		err := suite.session.Deposit(suite.ctx, amount)
		suite.ErrorIs(err, apperrors.ErrValidation)
	}
	suite.assertBalance("100")
	suite.mockStore.AssertNotCalled(suite.T(), "SetBalance", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AccountSessionTestSuite) TestDeposit_StorageFailure() {
	suite.mockStore.On("SetBalance", mock.Anything, ownAccount, decimalEq("150")).Return(suite.storageErr("set_balance")).Once()

	err := suite.session.Deposit(suite.ctx, decimal.NewFromInt(50))
	suite.ErrorIs(err, apperrors.ErrStorage)
	suite.assertBalance("100")
	suite.mockStore.AssertNotCalled(suite.T(), "AppendTransaction", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AccountSessionTestSuite) TestTransfer_Success() {
	suite.mockStore.On("GetAccount", mock.Anything, otherAccount).
		Return(&domain.Account{AccountNumber: otherAccount, Balance: decimal.NewFromInt(10)}, nil).Once()
	suite.mockStore.On("Transfer", mock.Anything, ownAccount, otherAccount, decimalEq("40")).Return(nil).Once()

	suite.Require().NoError(suite.session.Transfer(suite.ctx, otherAccount, decimal.NewFromInt(40)))
	suite.assertBalance("60")
}

func (suite *AccountSessionTestSuite) TestTransfer_ToSelf() {
	err := suite.session.Transfer(suite.ctx, ownAccount, decimal.NewFromInt(1))
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.ErrorContains(err, "cannot transfer to your own account")
	suite.mockStore.AssertNotCalled(suite.T(), "GetAccount", mock.Anything, mock.Anything)
	suite.mockStore.AssertNotCalled(suite.T(), "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AccountSessionTestSuite) TestTransfer_TargetMissing() {
	suite.mockStore.On("GetAccount", mock.Anything, otherAccount).Return(nil, apperrors.ErrNotFound).Once()

	err := suite.session.Transfer(suite.ctx, otherAccount, decimal.NewFromInt(1))
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.assertBalance("100")
	suite.mockStore.AssertNotCalled(suite.T(), "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AccountSessionTestSuite) TestTransfer_RejectedAmounts() {
	suite.mockStore.On("GetAccount", mock.Anything, otherAccount).
		Return(&domain.Account{AccountNumber: otherAccount}, nil)

	for _, amount := range []string{"0", "-3", "100.01"} {
		err := suite.session.Transfer(suite.ctx, otherAccount, decimal.RequireFromString(amount))
		suite.ErrorIs(err, apperrors.ErrValidation, amount)
	}
	suite.assertBalance("100")
	suite.mockStore.AssertNotCalled(suite.T(), "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AccountSessionTestSuite) TestTransfer_StoreFailureKeepsCache() {
	suite.mockStore.On("GetAccount", mock.Anything, otherAccount).
		Return(&domain.Account{AccountNumber: otherAccount}, nil).Once()
	suite.mockStore.On("Transfer", mock.Anything, ownAccount, otherAccount, decimalEq("40")).
		Return(apperrors.TransferFailed(suite.storageErr("transfer"))).Once()

	err := suite.session.Transfer(suite.ctx, otherAccount, decimal.NewFromInt(40))
	suite.ErrorIs(err, apperrors.ErrTransferFailed)
	suite.ErrorIs(err, apperrors.ErrStorage)
	suite.assertBalance("100")
}

func (suite *AccountSessionTestSuite) TestChangePIN_Success() {
	suite.mockStore.On("SetPIN", mock.Anything, ownAccount, "9876").Return(nil).Once()
	suite.mockStore.On("AppendTransaction", mock.Anything, ownAccount, "PIN changed").Return(nil).Once()

	suite.Require().NoError(suite.session.ChangePIN(suite.ctx, "9876", "9876"))
	suite.assertBalance("100")
}

func (suite *AccountSessionTestSuite) TestChangePIN_Rejected() {
	tests := []struct {
		name    string
		pin     string
		confirm string
	}{
		{"too short", "123", "123"},
		{"too long", "12345", "12345"},
		{"letters", "12a4", "12a4"},
		{"non ascii digits", "١٢٣٤", "١٢٣٤"},
		{"confirmation mismatch", "1111", "2222"},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.ErrorIs(suite.session.ChangePIN(suite.ctx, tt.pin, tt.confirm), apperrors.ErrValidation)
		})
	}
	suite.mockStore.AssertNotCalled(suite.T(), "SetPIN", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AccountSessionTestSuite) TestChangePIN_StorageFailure() {
	suite.mockStore.On("SetPIN", mock.Anything, ownAccount, "9876").Return(suite.storageErr("set_pin")).Once()

	suite.ErrorIs(suite.session.ChangePIN(suite.ctx, "9876", "9876"), apperrors.ErrStorage)
	suite.mockStore.AssertNotCalled(suite.T(), "AppendTransaction", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AccountSessionTestSuite) TestTransactionHistory() {
	records := []domain.TransactionRecord{{ID: 2, AccountNumber: ownAccount, Details: "Deposit: +$1.00"}}
	suite.mockStore.On("GetTransactions", mock.Anything, ownAccount).Return(records, nil).Once()

	got, err := suite.session.TransactionHistory(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(records, got)
}

func (suite *AccountSessionTestSuite) TestRefresh() {
	suite.mockStore.On("GetAccount", mock.Anything, ownAccount).
		Return(&domain.Account{AccountNumber: ownAccount, PIN: "1234", Balance: decimal.NewFromInt(7)}, nil).Once()

	suite.Require().NoError(suite.session.Refresh(suite.ctx))
	suite.assertBalance("7")
}

// --- Run Test Suite ---

func TestAccountSessionTestSuite(t *testing.T) {
	suite.Run(t, new(AccountSessionTestSuite))
}
