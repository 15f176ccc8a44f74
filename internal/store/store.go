// Package store defines the persistence contracts the ledger service is
// built against: a keyed account store and an append-only per-account
// transaction log. Implementations live in the memory and postgres
// subpackages; both must be safe for concurrent use.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bankdata/bankcore/internal/models"
)

// AccountStore is durable keyed storage of account records. Account
// numbers are unique; CompareAndSwapBalance is the primitive that makes
// balance updates race-free across writers.
type AccountStore interface {
	// CreateAccount persists a new account. Fails with
	// ErrDuplicateAccountNumber if the number is already taken.
	CreateAccount(ctx context.Context, account *models.Account) error

	// Get returns the current account state, or ErrAccountNotFound.
	Get(ctx context.Context, accountNumber string) (*models.Account, error)

	// ListAll returns every account. Order is unspecified.
	ListAll(ctx context.Context) ([]models.Account, error)

	// UpdateType changes the account's type tag.
	UpdateType(ctx context.Context, accountNumber string, newType models.AccountType) error

	// Delete removes the account and, as a cascade, every transaction it
	// owns. Fails with ErrAccountNotFound if the account does not exist.
	Delete(ctx context.Context, accountNumber string) error

	// CompareAndSwapBalance writes newBalance only if the stored balance
	// still equals expected at write time; otherwise it fails with
	// ErrConcurrencyConflict and leaves the account untouched.
	CompareAndSwapBalance(ctx context.Context, accountNumber string, expected, newBalance decimal.Decimal) error
}

// TransactionLog is an append-only per-account sequence of immutable
// transaction records. Entries are never updated or removed except by
// the cascade in AccountStore.Delete.
type TransactionLog interface {
	// Append records a transaction, assigning the next sequence number
	// for the account. Amount is signed; balanceAfter is the balance
	// snapshot the caller just committed.
	Append(ctx context.Context, accountNumber string, kind models.TransactionKind, amount, balanceAfter decimal.Decimal, description string) (*models.Transaction, error)

	// List returns up to limit transactions for the account, most recent
	// first. A limit <= 0 means no bound.
	List(ctx context.Context, accountNumber string, limit int) ([]models.Transaction, error)
}
