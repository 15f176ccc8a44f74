package readmodel

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bankdata/bankcore/internal/models"
	"github.com/bankdata/bankcore/internal/store"
)

const accountViewKeyPrefix = "account:view:"

// AccountViews is the query-side repository for accounts. Redis is the
// primary read store; the account store is the fallback, and every cold
// read warms the cache.
type AccountViews struct {
	accounts store.AccountStore
	cache    *ViewCache[models.AccountView]
}

func NewAccountViews(accounts store.AccountStore, redisClient *goredis.Client) *AccountViews {
	return &AccountViews{
		accounts: accounts,
		cache:    NewViewCache[models.AccountView](redisClient, 0),
	}
}

// GetByNumber returns an AccountView, trying Redis first then the store.
func (r *AccountViews) GetByNumber(ctx context.Context, accountNumber string) (*models.AccountView, error) {
	return r.cache.GetOrLoad(ctx, accountViewKeyPrefix+accountNumber, func() (*models.AccountView, error) {
		account, err := r.accounts.Get(ctx, accountNumber)
		if err != nil {
			return nil, err
		}
		return account.ToView(), nil
	})
}

// ListAll always reads the account store; the cache is keyed per
// account and cannot answer an unbounded listing.
func (r *AccountViews) ListAll(ctx context.Context) ([]models.AccountView, error) {
	accounts, err := r.accounts.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.AccountView, 0, len(accounts))
	for i := range accounts {
		views = append(views, *accounts[i].ToView())
	}
	return views, nil
}

// Put stores or refreshes the cached view for an account. Called by the
// ledger after every successful mutation.
func (r *AccountViews) Put(ctx context.Context, view *models.AccountView) {
	r.cache.Set(ctx, accountViewKeyPrefix+view.AccountNumber, view)
}

// Invalidate removes the cached view for a deleted account.
func (r *AccountViews) Invalidate(ctx context.Context, accountNumber string) {
	r.cache.Delete(ctx, accountViewKeyPrefix+accountNumber)
}
