package pgsql

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
	"github.com/SscSPs/atm_ledger/internal/utils"
	"github.com/SscSPs/atm_ledger/pkg/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" for the migration connection
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// LedgerStore is the PostgreSQL-backed Ledger Store.
type LedgerStore struct {
	BaseRepository
	databaseURL string
	now         func() time.Time
	logger      *slog.Logger

	// faultAfterDebit runs inside Transfer between the debit and the credit.
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

// Open connects a pool to databaseURL. Call Initialize before use.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*LedgerStore, error) {
	pool, err := database.NewPgxPool(ctx, databaseURL)
	if err != nil {
		return nil, apperrors.NewStorageError("open", "", err)
	}

	s := &LedgerStore{
		BaseRepository: BaseRepository{Pool: pool},
		databaseURL:    databaseURL,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the connection pool.
func (s *LedgerStore) Close() error {
	s.Pool.Close()
	return nil
}

// Initialize applies the embedded postgres migrations over a temporary database/sql connection.
func (s *LedgerStore) Initialize(ctx context.Context) error {
	migrationDB, err := sql.Open("pgx", s.databaseURL)
	if err != nil {
		return apperrors.NewStorageError("initialize", "", fmt.Errorf("failed to open database connection for migrations: %w", err))
	}
	defer migrationDB.Close()

	if err := migrationDB.PingContext(ctx); err != nil {
		return apperrors.NewStorageError("initialize", "", fmt.Errorf("failed to ping database for migrations: %w", err))
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return apperrors.NewStorageError("initialize", "", fmt.Errorf("could not create postgres driver instance for migrations: %w", err))
	}

	if err := database.RunMigrations(migrations.FS, migrations.PostgresDir, "postgres", driver, s.logger); err != nil {
		return apperrors.NewStorageError("initialize", "", err)
	}
	return nil
}

// CreateAccount inserts the account and its creation record in one transaction.
func (s *LedgerStore) CreateAccount(ctx context.Context, account domain.Account) error {
	const op = "create_account"

	tx, err := s.Begin(ctx, op)
	if err != nil {
		return err
	}
	// Will be ignored if the transaction is committed successfully
	defer s.Rollback(ctx, tx)

	_, err = tx.Exec(ctx,
		`INSERT INTO accounts (account_number, pin, name, balance) VALUES ($1, $2, $3, $4)`,
		account.AccountNumber, account.PIN, account.Name, account.Balance,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: account %s already exists", apperrors.ErrDuplicate, account.AccountNumber)
		}
		return apperrors.NewStorageError(op, account.AccountNumber, err)
	}

	details := "Account created with balance " + utils.FormatMoney(account.Balance)
	if err := s.insertRecord(ctx, tx, account.AccountNumber, details); err != nil {
		return apperrors.NewStorageError(op, account.AccountNumber, err)
	}

	return s.Commit(ctx, tx, op)
}

// GetAccount retrieves an account by its number.
func (s *LedgerStore) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	var acc domain.Account
	err := s.Pool.QueryRow(ctx,
		`SELECT account_number, pin, name, balance FROM accounts WHERE account_number = $1`,
		accountNumber,
	).Scan(&acc.AccountNumber, &acc.PIN, &acc.Name, &acc.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountNumber)
		}
		return nil, apperrors.NewStorageError("get_account", accountNumber, err)
	}
	return &acc, nil
}

// SetBalance overwrites the balance of an existing account.
func (s *LedgerStore) SetBalance(ctx context.Context, accountNumber string, newBalance decimal.Decimal) error {
	cmdTag, err := s.Pool.Exec(ctx,
		`UPDATE accounts SET balance = $2 WHERE account_number = $1`,
		accountNumber, newBalance,
	)
	return checkSingleRow(cmdTag, err, "set_balance", accountNumber)
}

// SetPIN overwrites the PIN of an existing account.
func (s *LedgerStore) SetPIN(ctx context.Context, accountNumber string, newPIN string) error {
	cmdTag, err := s.Pool.Exec(ctx,
		`UPDATE accounts SET pin = $2 WHERE account_number = $1`,
		accountNumber, newPIN,
	)
	return checkSingleRow(cmdTag, err, "set_pin", accountNumber)
}

// AppendTransaction inserts one audit record stamped with the store clock.
func (s *LedgerStore) AppendTransaction(ctx context.Context, accountNumber string, details string) error {
	if err := s.insertRecord(ctx, s.Pool, accountNumber, details); err != nil {
		return apperrors.NewStorageError("append_transaction", accountNumber, err)
	}
	return nil
}

// GetTransactions lists the account's records, newest first.
func (s *LedgerStore) GetTransactions(ctx context.Context, accountNumber string) ([]domain.TransactionRecord, error) {
	const op = "get_transactions"

	rows, err := s.Pool.Query(ctx, `
		SELECT id, account_number, details, timestamp
		FROM transactions
		WHERE account_number = $1
		ORDER BY timestamp DESC, id DESC`,
		accountNumber,
	)
	if err != nil {
		return nil, apperrors.NewStorageError(op, accountNumber, err)
	}
	defer rows.Close()

	records := []domain.TransactionRecord{}
	for rows.Next() {
		var rec domain.TransactionRecord
		if err := rows.Scan(&rec.ID, &rec.AccountNumber, &rec.Details, &rec.Timestamp); err != nil {
			return nil, apperrors.NewStorageError(op, accountNumber, err)
		}
		rec.Timestamp = rec.Timestamp.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError(op, accountNumber, err)
	}
	return records, nil
}

// Transfer debits from, credits to and records both legs in a single transaction.
// Both rows are locked FOR UPDATE in account-number order so concurrent transfers
// between the same pair cannot deadlock.
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

func (s *LedgerStore) transfer(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal) error {
	const op = "transfer"

	if fromAccount == toAccount {
		return apperrors.Rejected("cannot transfer to your own account")
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	tx, err := s.Begin(ctx, op)
	if err != nil {
		return err
	}
	defer s.Rollback(ctx, tx)

	locked, err := s.lockAccounts(ctx, tx, fromAccount, toAccount)
	if err != nil {
		return err
	}
	from, to := locked[fromAccount], locked[toAccount]
	if err := domain.ValidateTransfer(from, to.AccountNumber, amount); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	batch.Queue(`UPDATE accounts SET balance = $2 WHERE account_number = $1`, from.AccountNumber, from.Balance.Sub(amount))
	if err := s.sendBatch(ctx, tx, batch, from.AccountNumber); err != nil {
		return err
	}

	if s.faultAfterDebit != nil {
		if err := s.faultAfterDebit(); err != nil {
			return apperrors.NewStorageError(op, fromAccount, err)
		}
	}

	now := s.now().UTC()
	formatted := utils.FormatMoney(amount)
	batch = &pgx.Batch{}
	batch.Queue(`UPDATE accounts SET balance = $2 WHERE account_number = $1`, to.AccountNumber, to.Balance.Add(amount))
	batch.Queue(`INSERT INTO transactions (account_number, details, timestamp) VALUES ($1, $2, $3)`,
		from.AccountNumber, fmt.Sprintf("Transfer to %s: -%s", to.AccountNumber, formatted), now)
	batch.Queue(`INSERT INTO transactions (account_number, details, timestamp) VALUES ($1, $2, $3)`,
		to.AccountNumber, fmt.Sprintf("Transfer from %s: +%s", from.AccountNumber, formatted), now)
	if err := s.sendBatch(ctx, tx, batch, to.AccountNumber); err != nil {
		return err
	}

	return s.Commit(ctx, tx, op)
}

// lockAccounts selects both accounts FOR UPDATE and fails with ErrNotFound if either is missing.
func (s *LedgerStore) lockAccounts(ctx context.Context, tx pgx.Tx, accountNumbers ...string) (map[string]domain.Account, error) {
	rows, err := tx.Query(ctx, `
		SELECT account_number, pin, name, balance
		FROM accounts
		WHERE account_number = ANY($1)
		ORDER BY account_number
		FOR UPDATE`,
		accountNumbers,
	)
	if err != nil {
		return nil, apperrors.NewStorageError("transfer", accountNumbers[0], err)
	}
	defer rows.Close()

	locked := make(map[string]domain.Account, len(accountNumbers))
	for rows.Next() {
		var acc domain.Account
		if err := rows.Scan(&acc.AccountNumber, &acc.PIN, &acc.Name, &acc.Balance); err != nil {
			return nil, apperrors.NewStorageError("transfer", accountNumbers[0], err)
		}
		locked[acc.AccountNumber] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("transfer", accountNumbers[0], err)
	}

	for _, number := range accountNumbers {
		if _, ok := locked[number]; !ok {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, number)
		}
	}
	return locked, nil
}

// sendBatch runs every queued statement and requires each UPDATE to hit exactly one row.
func (s *LedgerStore) sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, accountNumber string) error {
	br := tx.SendBatch(ctx, batch)
	var batchErr error
	for i := 0; i < batch.Len(); i++ {
		ct, err := br.Exec()
		if err != nil {
			if batchErr == nil {
				batchErr = apperrors.NewStorageError("transfer", accountNumber, err)
			}
			continue
		}
		if ct.Update() && ct.RowsAffected() == 0 && batchErr == nil {
			batchErr = fmt.Errorf("%w: account %s not found during balance update", apperrors.ErrNotFound, accountNumber)
		}
	}
	if err := br.Close(); err != nil && batchErr == nil {
		batchErr = apperrors.NewStorageError("transfer", accountNumber, err)
	}
	return batchErr
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

var (
	_ querier = (*pgxpool.Pool)(nil)
	_ querier = (pgx.Tx)(nil)
)

func (s *LedgerStore) insertRecord(ctx context.Context, q querier, accountNumber, details string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO transactions (account_number, details, timestamp) VALUES ($1, $2, $3)`,
		accountNumber, details, s.now().UTC(),
	)
	return err
}

func checkSingleRow(cmdTag pgconn.CommandTag, err error, op, accountNumber string) error {
	if err != nil {
		return apperrors.NewStorageError(op, accountNumber, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountNumber)
	}
	return nil
}
