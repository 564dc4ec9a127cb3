package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/atm_ledger/internal/adapters/database/migrations"
	"github.com/SscSPs/atm_ledger/internal/apperrors"
	"github.com/SscSPs/atm_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/atm_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/atm_ledger/internal/models"
	"github.com/SscSPs/atm_ledger/internal/utils"
	"github.com/SscSPs/atm_ledger/internal/utils/mapping"
	"github.com/SscSPs/atm_ledger/pkg/database"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/shopspring/decimal"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// LedgerStore is the embedded, file-backed Ledger Store.
type LedgerStore struct {
	db     *sql.DB
	path   string
	now    func() time.Time
	logger *slog.Logger

	// faultAfterDebit runs inside Transfer between the debit and the credit.
	// Tests use it to simulate a crash mid-transfer.
	faultAfterDebit func() error
}

// Option configures a LedgerStore.
type Option func(*LedgerStore)

// WithClock overrides the clock used to timestamp transaction records.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerStore) {
		s.now = now
	}
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *LedgerStore) {
		s.logger = logger
	}
}

// Ensure LedgerStore implements portsrepo.LedgerStore
var _ portsrepo.LedgerStore = (*LedgerStore)(nil)

// Open opens (creating if needed) the ledger file at path. Call Initialize before use.
func Open(ctx context.Context, path string, opts ...Option) (*LedgerStore, error) {
	db, err := database.OpenSQLite(ctx, path)
	if err != nil {
		return nil, apperrors.NewStorageError("open", "", err)
	}

	s := &LedgerStore{
		db:     db,
		path:   path,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database handle.
func (s *LedgerStore) Close() error {
	return s.db.Close()
}

// Initialize applies the embedded sqlite migrations. It is safe to call repeatedly.
func (s *LedgerStore) Initialize(ctx context.Context) error {
	// golang-migrate closes the instance it is given, so migrate over a dedicated handle.
	migrationDB, err := database.OpenSQLite(ctx, s.path)
	if err != nil {
		return apperrors.NewStorageError("initialize", "", err)
	}
	defer migrationDB.Close()

	driver, err := migratesqlite.WithInstance(migrationDB, &migratesqlite.Config{})
	if err != nil {
		return apperrors.NewStorageError("initialize", "", fmt.Errorf("could not create sqlite driver instance for migrations: %w", err))
	}

	if err := database.RunMigrations(migrations.FS, migrations.SQLiteDir, "sqlite", driver, s.logger); err != nil {
		return apperrors.NewStorageError("initialize", "", err)
	}
	return nil
}

// CreateAccount inserts the account and its creation record in one transaction.
func (s *LedgerStore) CreateAccount(ctx context.Context, account domain.Account) (err error) {
	const op = "create_account"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError(op, account.AccountNumber, err)
	}
	defer rollback(tx, &err)

	row := mapping.ToModelAccount(account)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (account_number, pin, name, balance) VALUES (?, ?, ?, ?)`,
		row.AccountNumber, row.PIN, row.Name, row.Balance,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: account %s already exists", apperrors.ErrDuplicate, account.AccountNumber)
		}
		return apperrors.NewStorageError(op, account.AccountNumber, err)
	}

	details := "Account created with balance " + utils.FormatMoney(account.Balance)
	if err = s.insertRecord(ctx, tx, account.AccountNumber, details); err != nil {
		return apperrors.NewStorageError(op, account.AccountNumber, err)
	}

	if err = tx.Commit(); err != nil {
		return apperrors.NewStorageError(op, account.AccountNumber, err)
	}
	return nil
}

// GetAccount retrieves an account by its number.
func (s *LedgerStore) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	acc, err := scanAccount(s.db.QueryRowContext(ctx,
		`SELECT account_number, pin, name, balance FROM accounts WHERE account_number = ?`,
		accountNumber,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountNumber)
		}
		return nil, apperrors.NewStorageError("get_account", accountNumber, err)
	}
	return acc, nil
}

// SetBalance overwrites the balance of an existing account.
func (s *LedgerStore) SetBalance(ctx context.Context, accountNumber string, newBalance decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE account_number = ?`,
		newBalance.String(), accountNumber,
	)
	return checkSingleRow(res, err, "set_balance", accountNumber)
}

// SetPIN overwrites the PIN of an existing account.
func (s *LedgerStore) SetPIN(ctx context.Context, accountNumber string, newPIN string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET pin = ? WHERE account_number = ?`,
		newPIN, accountNumber,
	)
	return checkSingleRow(res, err, "set_pin", accountNumber)
}

// AppendTransaction inserts one audit record stamped with the store clock.
func (s *LedgerStore) AppendTransaction(ctx context.Context, accountNumber string, details string) error {
	if err := s.insertRecord(ctx, s.db, accountNumber, details); err != nil {
		return apperrors.NewStorageError("append_transaction", accountNumber, err)
	}
	return nil
}

// GetTransactions lists the account's records, newest first.
func (s *LedgerStore) GetTransactions(ctx context.Context, accountNumber string) ([]domain.TransactionRecord, error) {
	const op = "get_transactions"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_number, details, timestamp
		FROM transactions
		WHERE account_number = ?
		ORDER BY timestamp DESC, id DESC`,
		accountNumber,
	)
	if err != nil {
		return nil, apperrors.NewStorageError(op, accountNumber, err)
	}
	defer rows.Close()

	records := []domain.TransactionRecord{}
	for rows.Next() {
		var row models.Transaction
		if err := rows.Scan(&row.ID, &row.AccountNumber, &row.Details, &row.Timestamp); err != nil {
			return nil, apperrors.NewStorageError(op, accountNumber, err)
		}
		records = append(records, mapping.ToDomainTransactionRecord(row))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError(op, accountNumber, err)
	}
	return records, nil
}

// Transfer debits from, credits to and records both legs in a single transaction.
// The transaction is opened with BEGIN IMMEDIATE (see database.SQLiteDSN), so no other
// writer can touch either account until it commits or rolls back.
func (s *LedgerStore) Transfer(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal) error {
	if err := s.transfer(ctx, fromAccount, toAccount, amount); err != nil {
		s.logger.WarnContext(ctx, "Transfer rolled back",
			slog.String("from_account", fromAccount),
			slog.String("to_account", toAccount),
			slog.String("amount", amount.String()),
			slog.String("error", err.Error()))
		return apperrors.TransferFailed(err)
	}
	return nil
}

func (s *LedgerStore) transfer(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal) (err error) {
	const op = "transfer"

	// Reject what can be rejected without touching storage.
	if fromAccount == toAccount {
		return apperrors.Rejected("cannot transfer to your own account")
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError(op, fromAccount, err)
	}
	defer rollback(tx, &err)

	from, err := s.getAccountTx(ctx, tx, fromAccount)
	if err != nil {
		return err
	}
	to, err := s.getAccountTx(ctx, tx, toAccount)
	if err != nil {
		return err
	}
	if err = domain.ValidateTransfer(*from, to.AccountNumber, amount); err != nil {
		return err
	}

	if err = s.updateBalanceTx(ctx, tx, from.AccountNumber, from.Balance.Sub(amount)); err != nil {
		return err
	}

	if s.faultAfterDebit != nil {
		if err = s.faultAfterDebit(); err != nil {
			return apperrors.NewStorageError(op, fromAccount, err)
		}
	}

	if err = s.updateBalanceTx(ctx, tx, to.AccountNumber, to.Balance.Add(amount)); err != nil {
		return err
	}

	formatted := utils.FormatMoney(amount)
	if err = s.insertRecord(ctx, tx, from.AccountNumber, fmt.Sprintf("Transfer to %s: -%s", to.AccountNumber, formatted)); err != nil {
		return apperrors.NewStorageError(op, from.AccountNumber, err)
	}
	if err = s.insertRecord(ctx, tx, to.AccountNumber, fmt.Sprintf("Transfer from %s: +%s", from.AccountNumber, formatted)); err != nil {
		return apperrors.NewStorageError(op, to.AccountNumber, err)
	}

	if err = tx.Commit(); err != nil {
		return apperrors.NewStorageError(op, fromAccount, err)
	}
	return nil
}

func (s *LedgerStore) getAccountTx(ctx context.Context, tx *sql.Tx, accountNumber string) (*domain.Account, error) {
	acc, err := scanAccount(tx.QueryRowContext(ctx,
		`SELECT account_number, pin, name, balance FROM accounts WHERE account_number = ?`,
		accountNumber,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountNumber)
		}
		return nil, apperrors.NewStorageError("transfer", accountNumber, err)
	}
	return acc, nil
}

func (s *LedgerStore) updateBalanceTx(ctx context.Context, tx *sql.Tx, accountNumber string, balance decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE account_number = ?`,
		balance.String(), accountNumber,
	)
	return checkSingleRow(res, err, "transfer", accountNumber)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *LedgerStore) insertRecord(ctx context.Context, ex execer, accountNumber, details string) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO transactions (account_number, details, timestamp) VALUES (?, ?, ?)`,
		accountNumber, details, s.now().UTC().UnixNano(),
	)
	return err
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var m models.Account
	if err := row.Scan(&m.AccountNumber, &m.PIN, &m.Name, &m.Balance); err != nil {
		return nil, err
	}
	acc, err := mapping.ToDomainAccount(m)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func checkSingleRow(res sql.Result, err error, op, accountNumber string) error {
	if err != nil {
		return apperrors.NewStorageError(op, accountNumber, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError(op, accountNumber, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountNumber)
	}
	return nil
}

// rollback undoes tx when *errp is set. Used in a defer after BeginTx.
func rollback(tx *sql.Tx, errp *error) {
	if *errp == nil {
		return
	}
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		*errp = errors.Join(*errp, apperrors.NewStorageError("rollback", "", rbErr))
	}
}

func isConstraintViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// Extended codes (e.g. SQLITE_CONSTRAINT_PRIMARYKEY) keep the primary code in the low byte.
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
