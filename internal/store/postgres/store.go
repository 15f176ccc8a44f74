// Package postgres implements the store contracts on PostgreSQL via
// database/sql and lib/pq.
//
// Expected tables:
//
//	accounts     (account_number TEXT PRIMARY KEY, account_type INT,
//	              balance NUMERIC, owner_ref TEXT, created_at TIMESTAMPTZ,
//	              updated_at TIMESTAMPTZ)
//	transactions (id TEXT PRIMARY KEY, account_number TEXT REFERENCES accounts,
//	              sequence BIGINT, kind TEXT, amount NUMERIC,
//	              balance_after NUMERIC, description TEXT,
//	              created_at TIMESTAMPTZ,
//	              UNIQUE (account_number, sequence))
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/bankdata/bankcore/internal/models"
	"github.com/bankdata/bankcore/internal/store"
)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// Store implements both AccountStore and TransactionLog against the
// same database so that an account and its log share one transactional
// scope.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (account_number, account_type, balance, owner_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		account.AccountNumber, account.AccountType, account.Balance,
		account.OwnerRef, account.CreatedAt, account.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return store.ErrDuplicateAccountNumber
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, accountNumber string) (*models.Account, error) {
	query := `
		SELECT account_number, account_type, balance, owner_ref, created_at, updated_at
		FROM accounts
		WHERE account_number = $1
	`
	var account models.Account
	err := s.db.QueryRowContext(ctx, query, accountNumber).Scan(
		&account.AccountNumber, &account.AccountType, &account.Balance,
		&account.OwnerRef, &account.CreatedAt, &account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (s *Store) ListAll(ctx context.Context) ([]models.Account, error) {
	query := `
		SELECT account_number, account_type, balance, owner_ref, created_at, updated_at
		FROM accounts
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(
			&account.AccountNumber, &account.AccountType, &account.Balance,
			&account.OwnerRef, &account.CreatedAt, &account.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *Store) UpdateType(ctx context.Context, accountNumber string, newType models.AccountType) error {
	query := `UPDATE accounts SET account_type = $2, updated_at = NOW() WHERE account_number = $1`
	result, err := s.db.ExecContext(ctx, query, accountNumber, newType)
	if err != nil {
		return fmt.Errorf("failed to update account type: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrAccountNotFound
	}
	return nil
}

// Delete removes the account and its transactions in one database
// transaction, so the cascade either fully happens or not at all.
func (s *Store) Delete(ctx context.Context, accountNumber string) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE account_number = $1`, accountNumber); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	result, err := dbTx.ExecContext(ctx, `DELETE FROM accounts WHERE account_number = $1`, accountNumber)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrAccountNotFound
	}
	return dbTx.Commit()
}

// CompareAndSwapBalance is a single conditional UPDATE: the balance
// predicate makes the write race-free without row locks.
func (s *Store) CompareAndSwapBalance(ctx context.Context, accountNumber string, expected, newBalance decimal.Decimal) error {
	query := `
		UPDATE accounts SET balance = $3, updated_at = NOW()
		WHERE account_number = $1 AND balance = $2
	`
	result, err := s.db.ExecContext(ctx, query, accountNumber, expected, newBalance)
	if err != nil {
		return fmt.Errorf("failed to swap balance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	// Zero rows is either a lost race or a missing account.
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE account_number = $1`, accountNumber).Scan(&exists)
	if err == sql.ErrNoRows {
		return store.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check account: %w", err)
	}
	return store.ErrConcurrencyConflict
}

// Append assigns the next per-account sequence number under a row lock
// on the owning account, so two appends can never claim the same slot.
func (s *Store) Append(ctx context.Context, accountNumber string, kind models.TransactionKind, amount, balanceAfter decimal.Decimal, description string) (*models.Transaction, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin append: %w", err)
	}
	defer dbTx.Rollback()

	var exists int
	err = dbTx.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE account_number = $1 FOR UPDATE`, accountNumber).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}

	var seq int64
	err = dbTx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM transactions WHERE account_number = $1`,
		accountNumber,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("failed to assign sequence: %w", err)
	}

	txn := models.Transaction{
		ID:            uuid.NewString(),
		AccountNumber: accountNumber,
		Sequence:      seq,
		Kind:          kind,
		Amount:        amount,
		BalanceAfter:  balanceAfter,
		Description:   description,
		CreatedAt:     time.Now().UTC(),
	}
	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO transactions (id, account_number, sequence, kind, amount, balance_after, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, txn.ID, txn.AccountNumber, txn.Sequence, txn.Kind, txn.Amount, txn.BalanceAfter,
		nullString(txn.Description), txn.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit append: %w", err)
	}
	return &txn, nil
}

func (s *Store) List(ctx context.Context, accountNumber string, limit int) ([]models.Transaction, error) {
	if _, err := s.Get(ctx, accountNumber); err != nil {
		return nil, err
	}
	query := `
		SELECT id, account_number, sequence, kind, amount, balance_after, description, created_at
		FROM transactions
		WHERE account_number = $1
		ORDER BY created_at DESC, sequence DESC
	`
	args := []any{accountNumber}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		var description sql.NullString
		if err := rows.Scan(
			&txn.ID, &txn.AccountNumber, &txn.Sequence, &txn.Kind,
			&txn.Amount, &txn.BalanceAfter, &description, &txn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Description = description.String
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Compile-time interface checks.
var (
	_ store.AccountStore   = (*Store)(nil)
	_ store.TransactionLog = (*Store)(nil)
)
