package readmodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/bankdata/bankcore/internal/events"
	"github.com/bankdata/bankcore/internal/store"
)

// Projector keeps the account view cache in step with ledger events,
// so that a mutation committed by another writer (or another instance)
// is reflected here without waiting for a cold read. Handling is
// idempotent: re-projecting an account is a plain cache overwrite.
type Projector struct {
	views    *AccountViews
	accounts store.AccountStore
}

func NewProjector(views *AccountViews, accounts store.AccountStore) *Projector {
	return &Projector{views: views, accounts: accounts}
}

// HandleEvent is an events.Handler. Unknown event types are ignored.
func (p *Projector) HandleEvent(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.AccountDeleted:
		var data events.AccountDeletedEvent
		if err := decodeEventData(event.Data, &data); err != nil {
			return err
		}
		p.views.Invalidate(ctx, data.AccountNumber)
		return nil
	case events.AccountCreated, events.AccountUpdated, events.BalanceUpdated:
		return p.refresh(ctx, event)
	default:
		return nil
	}
}

func (p *Projector) refresh(ctx context.Context, event events.Event) error {
	var data struct {
		AccountNumber string `json:"accountNumber"`
	}
	if err := decodeEventData(event.Data, &data); err != nil {
		return err
	}
	account, err := p.accounts.Get(ctx, data.AccountNumber)
	if errors.Is(err, store.ErrAccountNotFound) {
		// Deleted between publish and projection; the delete event will
		// drop the cache entry.
		log.Printf("Projector: account %s gone before %s projection", data.AccountNumber, event.Type)
		return nil
	}
	if err != nil {
		return err
	}
	p.views.Put(ctx, account.ToView())
	return nil
}

// decodeEventData round-trips the generic event payload into a typed one.
func decodeEventData(data any, out any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal event data: %w", err)
	}
	return nil
}
