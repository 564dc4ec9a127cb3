package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/atm_ledger/internal/apperrors"
	"github.com/SscSPs/atm_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/atm_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/atm_ledger/internal/core/ports/services"
	"github.com/SscSPs/atm_ledger/internal/dto"
	"github.com/SscSPs/atm_ledger/internal/utils"
	"github.com/google/uuid"
)

const defaultAccountNumberAttempts = 5

// ATMService opens accounts and authenticates customers into sessions.
type ATMService struct {
	BaseService
	store portsrepo.LedgerStore

	accountNumberAttempts int
	accountNumberLength   int
	generateAccountNumber func(length int) (string, error)
	newSessionID          func() string
}

// ATMServiceOption is a functional option for configuring the ATM service
type ATMServiceOption func(*ATMService)

// WithAccountNumberAttempts bounds the retries on account number collisions.
func WithAccountNumberAttempts(n int) ATMServiceOption {
	return func(s *ATMService) {
		if n > 0 {
			s.accountNumberAttempts = n
		}
	}
}

// WithAccountNumberLength sets the number of digits of generated account numbers.
func WithAccountNumberLength(n int) ATMServiceOption {
	return func(s *ATMService) {
		if n > 0 {
			s.accountNumberLength = n
		}
	}
}

// WithAccountNumberGenerator replaces the random account number source.
func WithAccountNumberGenerator(gen func(length int) (string, error)) ATMServiceOption {
	return func(s *ATMService) {
		s.generateAccountNumber = gen
	}
}

// WithSessionIDGenerator replaces the session id source.
func WithSessionIDGenerator(gen func() string) ATMServiceOption {
	return func(s *ATMService) {
		s.newSessionID = gen
	}
}

// NewATMService creates a new ATM service over store with the provided options
func NewATMService(store portsrepo.LedgerStore, options ...ATMServiceOption) *ATMService {
	svc := &ATMService{
		store:                 store,
		accountNumberAttempts: defaultAccountNumberAttempts,
		accountNumberLength:   utils.DefaultAccountNumberLength,
		generateAccountNumber: utils.GenerateAccountNumber,
		newSessionID:          uuid.NewString,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure ATMService implements the ATMSvc interface
var _ portssvc.ATMSvc = (*ATMService)(nil)

// CreateAccount validates req, draws an account number and stores the account with its
// creation record. Collisions are retried with a fresh number.
func (s *ATMService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest) (*domain.Account, error) {
	if err := dto.Validate(req); err != nil {
		s.LogWarn(ctx, err, "Account creation rejected")
		return nil, err
	}
	if err := domain.ValidatePIN(req.PIN); err != nil {
		s.LogWarn(ctx, err, "Account creation rejected")
		return nil, err
	}
	if err := domain.ValidateAmount(req.InitialDeposit); err != nil {
		err = apperrors.Rejected("initial deposit must be positive")
		s.LogWarn(ctx, err, "Account creation rejected", slog.String("amount", req.InitialDeposit.String()))
		return nil, err
	}

	for attempt := 1; attempt <= s.accountNumberAttempts; attempt++ {
		number, err := s.generateAccountNumber(s.accountNumberLength)
		if err != nil {
			s.LogError(ctx, err, "Failed to generate account number")
			return nil, fmt.Errorf("failed to generate account number: %w", err)
		}

		account := domain.Account{
			AccountNumber: number,
			PIN:           req.PIN,
			Name:          req.Name,
			Balance:       req.InitialDeposit,
		}
		err = s.store.CreateAccount(ctx, account)
		if err == nil {
			s.LogInfo(ctx, "Account created",
				slog.String("account_number", number),
				slog.String("balance", account.Balance.String()))
			return &account, nil
		}
		if !errors.Is(err, apperrors.ErrDuplicate) {
			s.LogError(ctx, err, "Failed to create account", slog.String("account_number", number))
			return nil, err
		}
		s.LogDebug(ctx, "Account number collision, retrying",
			slog.String("account_number", number),
			slog.Int("attempt", attempt))
	}

	err := fmt.Errorf("%w: no free account number after %d attempts", apperrors.ErrDuplicate, s.accountNumberAttempts)
	s.LogError(ctx, err, "Failed to create account")
	return nil, err
}

// Login returns a new session when pin matches the stored PIN exactly.
func (s *ATMService) Login(ctx context.Context, accountNumber, pin string) (portssvc.AccountSessionSvc, error) {
	account, err := s.store.GetAccount(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogWarn(ctx, err, "Login failed", slog.String("account_number", accountNumber))
		} else {
			s.LogError(ctx, err, "Login failed", slog.String("account_number", accountNumber))
		}
		return nil, err
	}

	if !account.PINMatches(pin) {
		s.LogWarn(ctx, apperrors.ErrInvalidCredentials, "Login failed", slog.String("account_number", accountNumber))
		return nil, apperrors.ErrInvalidCredentials
	}

	session := NewAccountSession(s.store, *account, s.newSessionID())
	s.LogInfo(ctx, "Login succeeded",
		slog.String("account_number", accountNumber),
		slog.String("session_id", session.SessionID()))
	return session, nil
}
