package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested account could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that a caller-supplied value violates a business rule.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create an account that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrTransferFailed indicates that an atomic transfer did not commit. It is always
// joined with the underlying cause, so errors.Is also matches ErrValidation,
// ErrNotFound or ErrStorage.
var ErrTransferFailed = errors.New("transfer failed")

// ErrStorage is matched by every *StorageError.
var ErrStorage = errors.New("storage error")

// ErrInvalidCredentials indicates a login attempt with a PIN that does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// StorageError wraps an I/O or driver failure with the ledger operation and account involved.
type StorageError struct {
	Op            string
	AccountNumber string
	Err           error
}

func (e *StorageError) Error() string {
	if e.AccountNumber == "" {
		return fmt.Sprintf("%s: %s: %v", ErrStorage, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s (account %s): %v", ErrStorage, e.Op, e.AccountNumber, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports ErrStorage as a match so callers can test the category without errors.As.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError builds a StorageError for op on accountNumber.
func NewStorageError(op, accountNumber string, err error) error {
	return &StorageError{Op: op, AccountNumber: accountNumber, Err: err}
}

// Rejected returns an ErrValidation carrying the rule that failed.
func Rejected(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// TransferFailed joins ErrTransferFailed with cause.
func TransferFailed(cause error) error {
	return fmt.Errorf("%w: %w", ErrTransferFailed, cause)
}
