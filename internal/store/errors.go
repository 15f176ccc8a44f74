package store

import "errors"

// Sentinel errors shared by every store implementation. Callers match
// them with errors.Is; implementations may wrap them with context.
var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrDuplicateAccountNumber = errors.New("duplicate account number")
	ErrConcurrencyConflict    = errors.New("concurrency conflict")
)
