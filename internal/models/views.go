package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountView is the read-model projection of an Account served by the
// query side. It is what the Redis cache stores and what GET endpoints
// return; mutations never read from it.
type AccountView struct {
	AccountNumber string          `json:"accountNumber"`
	AccountType   AccountType     `json:"accountType"`
	Balance       decimal.Decimal `json:"balance"`
	OwnerRef      string          `json:"ownerRef,omitempty"`
	CreatedAt     time.Time       `json:"createdTimestamp"`
	UpdatedAt     time.Time       `json:"updatedTimestamp"`
}

// ToView converts the write model to its read-model projection.
func (a *Account) ToView() *AccountView {
	return &AccountView{
		AccountNumber: a.AccountNumber,
		AccountType:   a.AccountType,
		Balance:       a.Balance,
		OwnerRef:      a.OwnerRef,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}
