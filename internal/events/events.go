package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankdata/bankcore/internal/models"
)

// Event types
const (
	AccountCreated = "account.created"
	AccountUpdated = "account.updated"
	AccountDeleted = "account.deleted"

	TransactionRecorded = "transaction.recorded"
	BalanceUpdated      = "balance.updated"
)

// Stream names
const (
	LedgerEventsStream = "ledger.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Publisher emits events to a stream. Implementations: the Redis
// Streams publisher in this package and the Kafka publisher in the
// kafka subpackage.
type Publisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

type AccountCreatedEvent struct {
	AccountNumber string             `json:"accountNumber"`
	AccountType   models.AccountType `json:"accountType"`
	OwnerRef      string             `json:"ownerRef,omitempty"`
}

type AccountUpdatedEvent struct {
	AccountNumber string             `json:"accountNumber"`
	AccountType   models.AccountType `json:"accountType"`
}

type AccountDeletedEvent struct {
	AccountNumber string `json:"accountNumber"`
}

type TransactionRecordedEvent struct {
	TransactionID string                 `json:"transactionId"`
	AccountNumber string                 `json:"accountNumber"`
	Sequence      int64                  `json:"sequence"`
	Kind          models.TransactionKind `json:"kind"`
	Amount        decimal.Decimal        `json:"amount"`
	BalanceAfter  decimal.Decimal        `json:"balanceAfter"`
}

type BalanceUpdatedEvent struct {
	AccountNumber string          `json:"accountNumber"`
	NewBalance    decimal.Decimal `json:"newBalance"`
	Change        decimal.Decimal `json:"change"`
}
