// Package ledger orchestrates account lifecycle and balance mutations.
// Every mutation follows the same discipline: take the per-account
// lock, read the balance, validate, write the new balance with a
// compare-and-swap against the balance just read, and append exactly
// one transaction record. A lost swap retries the whole cycle from the
// top; the retry budget is small and exhausting it surfaces a
// concurrency conflict instead of looping.
package ledger

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankdata/bankcore/internal/events"
	"github.com/bankdata/bankcore/internal/models"
	"github.com/bankdata/bankcore/internal/store"
)

// maxRetries bounds how many times a losing compare-and-swap is
// retried before the operation fails with ErrConcurrencyConflict.
const maxRetries = 3

// defaultTake bounds GetTransactions when the caller passes no limit.
const defaultTake = 100

// ViewCache is the query-side cache the ledger refreshes after every
// successful mutation.
type ViewCache interface {
	Put(ctx context.Context, view *models.AccountView)
	Invalidate(ctx context.Context, accountNumber string)
}

// Service is the ledger service. It owns the per-account locks and is
// the only component allowed to mutate balances.
type Service struct {
	accounts  store.AccountStore
	log       store.TransactionLog
	views     ViewCache
	publisher events.Publisher
	locks     *lockTable
}

func NewService(accounts store.AccountStore, txlog store.TransactionLog, views ViewCache, publisher events.Publisher) *Service {
	return &Service{
		accounts:  accounts,
		log:       txlog,
		views:     views,
		publisher: publisher,
		locks:     newLockTable(),
	}
}

// CreateAccount opens an account with the given opening balance. The
// opening balance is the replay base of the transaction log; no
// synthetic opening transaction is appended.
func (s *Service) CreateAccount(ctx context.Context, accountNumber string, accountType models.AccountType, ownerRef string, openingBalance decimal.Decimal) (*models.Account, error) {
	if openingBalance.IsNegative() {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	account := &models.Account{
		AccountNumber: accountNumber,
		AccountType:   accountType,
		Balance:       openingBalance,
		OwnerRef:      ownerRef,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	s.views.Put(ctx, account.ToView())
	s.publish(ctx, events.AccountCreated, events.AccountCreatedEvent{
		AccountNumber: account.AccountNumber,
		AccountType:   account.AccountType,
		OwnerRef:      account.OwnerRef,
	})
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, accountNumber string) (*models.Account, error) {
	return s.accounts.Get(ctx, accountNumber)
}

func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.accounts.ListAll(ctx)
}

// GetTransactions returns the account's most recent transactions,
// newest first, bounded by take (defaultTake when take <= 0).
func (s *Service) GetTransactions(ctx context.Context, accountNumber string, take int) ([]models.Transaction, error) {
	if take <= 0 {
		take = defaultTake
	}
	return s.log.List(ctx, accountNumber, take)
}

// UpdateAccountType changes the account's type tag. It takes the
// account lock so the update cannot interleave with a delete.
func (s *Service) UpdateAccountType(ctx context.Context, accountNumber string, newType models.AccountType) (*models.Account, error) {
	mu := s.locks.acquire(accountNumber)
	mu.Lock()
	defer mu.Unlock()

	if err := s.accounts.UpdateType(ctx, accountNumber, newType); err != nil {
		return nil, err
	}
	account, err := s.accounts.Get(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	s.views.Put(ctx, account.ToView())
	s.publish(ctx, events.AccountUpdated, events.AccountUpdatedEvent{
		AccountNumber: account.AccountNumber,
		AccountType:   account.AccountType,
	})
	return account, nil
}

// DeleteAccount removes the account and cascades its transaction log.
// It holds the same per-account lock as balance mutations, so a delete
// can never interleave with an in-flight deposit or withdrawal and
// leave an orphaned transaction. There is deliberately no nonzero-
// balance guard: deletion is allowed regardless of balance.
func (s *Service) DeleteAccount(ctx context.Context, accountNumber string) error {
	mu := s.locks.acquire(accountNumber)
	mu.Lock()
	defer mu.Unlock()

	if err := s.accounts.Delete(ctx, accountNumber); err != nil {
		return err
	}
	s.locks.release(accountNumber)
	s.views.Invalidate(ctx, accountNumber)
	s.publish(ctx, events.AccountDeleted, events.AccountDeletedEvent{AccountNumber: accountNumber})
	return nil
}

// Deposit credits amount to the account and appends exactly one
// deposit transaction carrying the post-deposit balance.
func (s *Service) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return nil, ErrInvalidAmount
	}
	mu := s.locks.acquire(accountNumber)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 0; attempt < maxRetries; attempt++ {
		account, err := s.accounts.Get(ctx, accountNumber)
		if err != nil {
			return nil, err
		}
		newBalance := account.Balance.Add(amount)
		if err := s.accounts.CompareAndSwapBalance(ctx, accountNumber, account.Balance, newBalance); err != nil {
			if errors.Is(err, store.ErrConcurrencyConflict) {
				continue
			}
			return nil, err
		}
		txn, err := s.log.Append(ctx, accountNumber, models.KindDeposit, amount, newBalance, description)
		if err != nil {
			// The swap is already committed; undo it so a failed append
			// leaves no balance that disagrees with the log.
			s.rollbackBalance(ctx, accountNumber, newBalance, account.Balance)
			return nil, err
		}
		account.Balance = newBalance
		s.afterMutation(ctx, account, txn, amount)
		return txn, nil
	}
	return nil, store.ErrConcurrencyConflict
}

// Withdraw debits amount from the account. Sufficiency is re-checked
// against the freshly read balance on every retry, so a withdrawal
// that lost a race to a concurrent debit fails with
// ErrInsufficientFunds rather than overdrawing.
func (s *Service) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return nil, ErrInvalidAmount
	}
	mu := s.locks.acquire(accountNumber)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 0; attempt < maxRetries; attempt++ {
		account, err := s.accounts.Get(ctx, accountNumber)
		if err != nil {
			return nil, err
		}
		if account.Balance.LessThan(amount) {
			return nil, ErrInsufficientFunds
		}
		newBalance := account.Balance.Sub(amount)
		if err := s.accounts.CompareAndSwapBalance(ctx, accountNumber, account.Balance, newBalance); err != nil {
			if errors.Is(err, store.ErrConcurrencyConflict) {
				continue
			}
			return nil, err
		}
		txn, err := s.log.Append(ctx, accountNumber, models.KindWithdrawal, amount.Neg(), newBalance, description)
		if err != nil {
			s.rollbackBalance(ctx, accountNumber, newBalance, account.Balance)
			return nil, err
		}
		account.Balance = newBalance
		s.afterMutation(ctx, account, txn, amount.Neg())
		return txn, nil
	}
	return nil, store.ErrConcurrencyConflict
}

// Transfer moves amount between two accounts as a compound atomic
// operation: both locks are taken in account-number order, the debit
// leg is validated like a withdrawal, and a credit leg that loses its
// swap rolls the debit back before retrying. Both legs commit or
// neither does.
func (s *Service) Transfer(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal, description string) (debit, credit *models.Transaction, err error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	if fromAccount == toAccount {
		return nil, nil, ErrInvalidTransfer
	}
	first, second := s.locks.orderedPair(fromAccount, toAccount)
	first.Lock()
	defer first.Unlock()
	second.Lock()
	defer second.Unlock()

	for attempt := 0; attempt < maxRetries; attempt++ {
		src, err := s.accounts.Get(ctx, fromAccount)
		if err != nil {
			return nil, nil, err
		}
		dst, err := s.accounts.Get(ctx, toAccount)
		if err != nil {
			return nil, nil, err
		}
		if src.Balance.LessThan(amount) {
			return nil, nil, ErrInsufficientFunds
		}
		srcAfter := src.Balance.Sub(amount)
		dstAfter := dst.Balance.Add(amount)

		if err := s.accounts.CompareAndSwapBalance(ctx, fromAccount, src.Balance, srcAfter); err != nil {
			if errors.Is(err, store.ErrConcurrencyConflict) {
				continue
			}
			return nil, nil, err
		}
		if err := s.accounts.CompareAndSwapBalance(ctx, toAccount, dst.Balance, dstAfter); err != nil {
			// Undo the debit leg so a failed credit leaves both
			// accounts untouched.
			s.rollbackBalance(ctx, fromAccount, srcAfter, src.Balance)
			if errors.Is(err, store.ErrConcurrencyConflict) {
				continue
			}
			return nil, nil, err
		}

		debit, err = s.log.Append(ctx, fromAccount, models.KindWithdrawal, amount.Neg(), srcAfter, description)
		if err != nil {
			// Neither leg is on the log yet; put both balances back.
			s.rollbackBalance(ctx, toAccount, dstAfter, dst.Balance)
			s.rollbackBalance(ctx, fromAccount, srcAfter, src.Balance)
			return nil, nil, err
		}
		credit, err = s.log.Append(ctx, toAccount, models.KindDeposit, amount, dstAfter, description)
		if err != nil {
			// The debit is already on the log, so it cannot be unwound
			// in place: restore both balances and record a reversing
			// credit so the source account still replays clean.
			s.rollbackBalance(ctx, toAccount, dstAfter, dst.Balance)
			s.rollbackBalance(ctx, fromAccount, srcAfter, src.Balance)
			if _, rbErr := s.log.Append(ctx, fromAccount, models.KindDeposit, amount, src.Balance, "transfer reversal"); rbErr != nil {
				log.Printf("Transfer: failed to append reversal on %s: %v", fromAccount, rbErr)
			}
			return nil, nil, err
		}
		src.Balance = srcAfter
		dst.Balance = dstAfter
		s.afterMutation(ctx, src, debit, amount.Neg())
		s.afterMutation(ctx, dst, credit, amount)
		return debit, credit, nil
	}
	return nil, nil, store.ErrConcurrencyConflict
}

// rollbackBalance undoes a committed balance swap after a later step of
// the same operation failed. Failure here means the balance moved again
// underneath us; it is logged, not propagated, because the original
// error is the one the caller must see.
func (s *Service) rollbackBalance(ctx context.Context, accountNumber string, from, to decimal.Decimal) {
	if err := s.accounts.CompareAndSwapBalance(ctx, accountNumber, from, to); err != nil {
		log.Printf("Failed to roll back balance on %s: %v", accountNumber, err)
	}
}

// afterMutation refreshes the read model and emits events for one
// committed leg. Both are best-effort: the mutation is durable by the
// time this runs.
func (s *Service) afterMutation(ctx context.Context, account *models.Account, txn *models.Transaction, change decimal.Decimal) {
	s.views.Put(ctx, account.ToView())
	s.publish(ctx, events.TransactionRecorded, events.TransactionRecordedEvent{
		TransactionID: txn.ID,
		AccountNumber: txn.AccountNumber,
		Sequence:      txn.Sequence,
		Kind:          txn.Kind,
		Amount:        txn.Amount,
		BalanceAfter:  txn.BalanceAfter,
	})
	s.publish(ctx, events.BalanceUpdated, events.BalanceUpdatedEvent{
		AccountNumber: account.AccountNumber,
		NewBalance:    account.Balance,
		Change:        change,
	})
}

func (s *Service) publish(ctx context.Context, eventType string, data any) {
	if err := s.publisher.Publish(ctx, events.LedgerEventsStream, eventType, data); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}
