package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the numeric type tag of an account.
type AccountType int

const (
	TypeChecking AccountType = 1
	TypeSavings  AccountType = 2
)

func (t AccountType) String() string {
	switch t {
	case TypeChecking:
		return "checking"
	case TypeSavings:
		return "savings"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the known type tags.
func (t AccountType) Valid() bool {
	return t == TypeChecking || t == TypeSavings
}

// TransactionKind tags a transaction as a deposit or a withdrawal.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
)

// Account is the balance-holding write model. Balance is a fixed-point
// decimal; it must always equal the opening balance plus the sum of the
// signed amounts of the account's transactions, in append order.
type Account struct {
	AccountNumber string          `json:"accountNumber"`
	AccountType   AccountType     `json:"accountType"`
	Balance       decimal.Decimal `json:"balance"`
	OwnerRef      string          `json:"ownerRef,omitempty"`
	CreatedAt     time.Time       `json:"createdTimestamp"`
	UpdatedAt     time.Time       `json:"updatedTimestamp"`
}

// Transaction is an immutable record of one balance mutation. Amount is
// signed (negative for withdrawals); BalanceAfter is the balance snapshot
// immediately after the mutation committed. Sequence increases by one per
// account and is never reused.
type Transaction struct {
	ID            string          `json:"id"`
	AccountNumber string          `json:"accountNumber"`
	Sequence      int64           `json:"sequence"`
	Kind          TransactionKind `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"createdTimestamp"`
}
