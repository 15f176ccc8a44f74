// Package memory provides an in-memory store implementation, used by
// tests and for running the server without Postgres.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bankdata/bankcore/internal/models"
	"github.com/bankdata/bankcore/internal/store"
)

type accountRecord struct {
	account models.Account
	nextSeq int64
	log     []models.Transaction
}

// Store keeps accounts and their transaction logs in a single map so
// that deleting an account drops its log with it. One mutex guards the
// whole map; every operation is atomic relative to every other.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*accountRecord
}

func NewStore() *Store {
	return &Store{accounts: make(map[string]*accountRecord)}
}

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.AccountNumber]; exists {
		return store.ErrDuplicateAccountNumber
	}
	s.accounts[account.AccountNumber] = &accountRecord{account: *account}
	return nil
}

func (s *Store) Get(ctx context.Context, accountNumber string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.accounts[accountNumber]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	cp := rec.account
	return &cp, nil
}

func (s *Store) ListAll(ctx context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Account, 0, len(s.accounts))
	for _, rec := range s.accounts {
		out = append(out, rec.account)
	}
	return out, nil
}

func (s *Store) UpdateType(ctx context.Context, accountNumber string, newType models.AccountType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.accounts[accountNumber]
	if !ok {
		return store.ErrAccountNotFound
	}
	rec.account.AccountType = newType
	rec.account.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes the account record; the transaction log lives inside
// the record, so the cascade is implicit.
func (s *Store) Delete(ctx context.Context, accountNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountNumber]; !ok {
		return store.ErrAccountNotFound
	}
	delete(s.accounts, accountNumber)
	return nil
}

func (s *Store) CompareAndSwapBalance(ctx context.Context, accountNumber string, expected, newBalance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.accounts[accountNumber]
	if !ok {
		return store.ErrAccountNotFound
	}
	if !rec.account.Balance.Equal(expected) {
		return store.ErrConcurrencyConflict
	}
	rec.account.Balance = newBalance
	rec.account.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) Append(ctx context.Context, accountNumber string, kind models.TransactionKind, amount, balanceAfter decimal.Decimal, description string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.accounts[accountNumber]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	rec.nextSeq++
	txn := models.Transaction{
		ID:            uuid.NewString(),
		AccountNumber: accountNumber,
		Sequence:      rec.nextSeq,
		Kind:          kind,
		Amount:        amount,
		BalanceAfter:  balanceAfter,
		Description:   description,
		CreatedAt:     time.Now().UTC(),
	}
	rec.log = append(rec.log, txn)
	cp := txn
	return &cp, nil
}

// List walks the log tail-first: entries are appended in commit order,
// so tail-first is most-recent-first.
func (s *Store) List(ctx context.Context, accountNumber string, limit int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.accounts[accountNumber]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	n := len(rec.log)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.Transaction, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, rec.log[i])
	}
	return out, nil
}

// Compile-time interface checks.
var (
	_ store.AccountStore   = (*Store)(nil)
	_ store.TransactionLog = (*Store)(nil)
)
