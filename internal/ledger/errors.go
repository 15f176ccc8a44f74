package ledger

import "errors"

var (
	// ErrInvalidAmount rejects any amount that is not strictly positive,
	// and negative opening balances.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInsufficientFunds rejects a withdrawal larger than the balance
	// at the moment of commit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidTransfer rejects a transfer whose two legs name the same
	// account.
	ErrInvalidTransfer = errors.New("transfer accounts must differ")
)
