package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SscSPs/atm_ledger/internal/apperrors"
	"github.com/SscSPs/atm_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/atm_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/atm_ledger/internal/core/ports/services"
	"github.com/SscSPs/atm_ledger/internal/platform/logging"
	"github.com/SscSPs/atm_ledger/internal/utils"
	"github.com/shopspring/decimal"
)

// AccountSession is the in-memory view of one authenticated account.
// The cached balance and PIN change only after the store has confirmed the write.
// A session is used by one goroutine at a time.
type AccountSession struct {
	BaseService
	store     portsrepo.LedgerStore
	sessionID string

	accountNumber string
	name          string
	pin           string
	balance       decimal.Decimal

	// stale is set after a storage failure; the next mutation re-reads the account first.
	stale bool
}

// Ensure AccountSession implements the AccountSessionSvc interface
var _ portssvc.AccountSessionSvc = (*AccountSession)(nil)

// NewAccountSession binds a session to account as loaded from store.
func NewAccountSession(store portsrepo.LedgerStore, account domain.Account, sessionID string) *AccountSession {
	return &AccountSession{
		store:         store,
		sessionID:     sessionID,
		accountNumber: account.AccountNumber,
		name:          account.Name,
		pin:           account.PIN,
		balance:       account.Balance,
	}
}

func (s *AccountSession) AccountNumber() string { return s.accountNumber }

func (s *AccountSession) Name() string { return s.name }

func (s *AccountSession) SessionID() string { return s.sessionID }

// CheckBalance returns the cached balance. It never touches storage.
func (s *AccountSession) CheckBalance() decimal.Decimal {
	return s.balance
}

// Withdraw debits amount, then records the withdrawal.
func (s *AccountSession) Withdraw(ctx context.Context, amount decimal.Decimal) error {
	ctx = s.scoped(ctx)
	if err := s.ensureFresh(ctx); err != nil {
		return err
	}

	if err := domain.ValidateAmount(amount); err != nil {
		s.LogWarn(ctx, err, "Withdrawal rejected", slog.String("amount", amount.String()))
		return err
	}
	if !s.cachedAccount().CanDebit(amount) {
		err := apperrors.Rejected("insufficient funds: balance %s, requested %s",
			utils.FormatMoney(s.balance), utils.FormatMoney(amount))
		s.LogWarn(ctx, err, "Withdrawal rejected", slog.String("amount", amount.String()))
		return err
	}

	newBalance := s.balance.Sub(amount)
	if err := s.store.SetBalance(ctx, s.accountNumber, newBalance); err != nil {
		return s.storageFailure(ctx, err, "Failed to persist withdrawal")
	}
	s.balance = newBalance

	if err := s.store.AppendTransaction(ctx, s.accountNumber, "Withdrawal: -"+utils.FormatMoney(amount)); err != nil {
		return s.storageFailure(ctx, err, "Balance committed but withdrawal record was not written")
	}

	s.LogInfo(ctx, "Withdrawal completed",
		slog.String("amount", amount.String()),
		slog.String("balance", s.balance.String()))
	return nil
}

// Deposit credits amount, then records the deposit.
func (s *AccountSession) Deposit(ctx context.Context, amount decimal.Decimal) error {
	ctx = s.scoped(ctx)
	if err := s.ensureFresh(ctx); err != nil {
		return err
	}

	if err := domain.ValidateAmount(amount); err != nil {
		s.LogWarn(ctx, err, "Deposit rejected", slog.String("amount", amount.String()))
		return err
	}

	newBalance := s.balance.Add(amount)
	if err := s.store.SetBalance(ctx, s.accountNumber, newBalance); err != nil {
		return s.storageFailure(ctx, err, "Failed to persist deposit")
	}
	s.balance = newBalance

	if err := s.store.AppendTransaction(ctx, s.accountNumber, "Deposit: +"+utils.FormatMoney(amount)); err != nil {
		return s.storageFailure(ctx, err, "Balance committed but deposit record was not written")
	}

	s.LogInfo(ctx, "Deposit completed",
		slog.String("amount", amount.String()),
		slog.String("balance", s.balance.String()))
	return nil
}

// Transfer moves amount to toAccount through the store's atomic transfer.
// Only this session's cached balance is updated.
func (s *AccountSession) Transfer(ctx context.Context, toAccount string, amount decimal.Decimal) error {
	ctx = s.scoped(ctx)
	attrs := []any{slog.String("to_account", toAccount), slog.String("amount", amount.String())}
	if err := s.ensureFresh(ctx); err != nil {
		return err
	}

	if toAccount == s.accountNumber {
		err := apperrors.Rejected("cannot transfer to your own account")
		s.LogWarn(ctx, err, "Transfer rejected", attrs...)
		return err
	}
	if _, err := s.store.GetAccount(ctx, toAccount); err != nil {
		if errors.Is(err, apperrors.ErrStorage) {
			return s.storageFailure(ctx, err, "Failed to look up transfer target", attrs...)
		}
		s.LogWarn(ctx, err, "Transfer rejected", attrs...)
		return err
	}
	if err := domain.ValidateTransfer(s.cachedAccount(), toAccount, amount); err != nil {
		s.LogWarn(ctx, err, "Transfer rejected", attrs...)
		return err
	}

	if err := s.store.Transfer(ctx, s.accountNumber, toAccount, amount); err != nil {
		// The store re-checks against committed state, so the cache may be behind.
		s.stale = true
		s.LogError(ctx, err, "Transfer failed", attrs...)
		return err
	}
	s.balance = s.balance.Sub(amount)

	s.LogInfo(ctx, "Transfer completed", append(attrs, slog.String("balance", s.balance.String()))...)
	return nil
}

// ChangePIN replaces the PIN after checking its format and confirmation.
func (s *AccountSession) ChangePIN(ctx context.Context, newPIN, confirmPIN string) error {
	ctx = s.scoped(ctx)
	if err := s.ensureFresh(ctx); err != nil {
		return err
	}

	if err := domain.ValidatePIN(newPIN); err != nil {
		s.LogWarn(ctx, err, "PIN change rejected")
		return err
	}
	if newPIN != confirmPIN {
		err := apperrors.Rejected("PINs do not match")
		s.LogWarn(ctx, err, "PIN change rejected")
		return err
	}

	if err := s.store.SetPIN(ctx, s.accountNumber, newPIN); err != nil {
		return s.storageFailure(ctx, err, "Failed to persist PIN change")
	}
	s.pin = newPIN

	if err := s.store.AppendTransaction(ctx, s.accountNumber, "PIN changed"); err != nil {
		return s.storageFailure(ctx, err, "PIN committed but change record was not written")
	}

	s.LogInfo(ctx, "PIN changed")
	return nil
}

// TransactionHistory lists the account's records, newest first.
func (s *AccountSession) TransactionHistory(ctx context.Context) ([]domain.TransactionRecord, error) {
	ctx = s.scoped(ctx)
	records, err := s.store.GetTransactions(ctx, s.accountNumber)
	if err != nil {
		s.LogError(ctx, err, "Failed to load transaction history")
		return nil, err
	}
	s.LogDebug(ctx, "Transaction history loaded", slog.Int("count", len(records)))
	return records, nil
}

// Refresh re-reads the account and replaces the cached balance and PIN.
func (s *AccountSession) Refresh(ctx context.Context) error {
	return s.refresh(s.scoped(ctx))
}

func (s *AccountSession) refresh(ctx context.Context) error {
	acc, err := s.store.GetAccount(ctx, s.accountNumber)
	if err != nil {
		s.LogError(ctx, err, "Failed to refresh session")
		return err
	}
	s.balance = acc.Balance
	s.pin = acc.PIN
	s.stale = false
	s.LogDebug(ctx, "Session refreshed", slog.String("balance", s.balance.String()))
	return nil
}

func (s *AccountSession) ensureFresh(ctx context.Context) error {
	if !s.stale {
		return nil
	}
	return s.refresh(ctx)
}

// storageFailure logs err and marks the cache stale when err is a storage error.
func (s *AccountSession) storageFailure(ctx context.Context, err error, msg string, keyvals ...any) error {
	if errors.Is(err, apperrors.ErrStorage) {
		s.stale = true
	}
	s.LogError(ctx, err, msg, keyvals...)
	return err
}

func (s *AccountSession) cachedAccount() domain.Account {
	return domain.Account{
		AccountNumber: s.accountNumber,
		PIN:           s.pin,
		Name:          s.name,
		Balance:       s.balance,
	}
}

// scoped returns ctx carrying a logger tagged with this session.
func (s *AccountSession) scoped(ctx context.Context) context.Context {
	logger := s.GetLogger(ctx).With(
		slog.String("session_id", s.sessionID),
		slog.String("account_number", s.accountNumber),
	)
	return logging.WithLogger(ctx, logger)
}
