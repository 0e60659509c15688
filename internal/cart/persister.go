package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// Persister loads and saves a single visitor's cart state.
type Persister interface {
	Load(ctx context.Context) (domain.CartState, error)
	Save(ctx context.Context, state domain.CartState) error
	DeleteCart(ctx context.Context) error // Removes only the persisted cart entry
}

// SessionPersister stores cart state as JSON text under the "cart" and "wishlist"
// keys of a session in a store.SessionStorer.
type SessionPersister struct {
	values    store.SessionStorer
	sessionID string
}

// NewSessionPersister binds a persister to one session.
func NewSessionPersister(values store.SessionStorer, sessionID string) *SessionPersister {
	return &SessionPersister{values: values, sessionID: sessionID}
}

// Load returns the persisted state. Missing keys yield empty lists.
func (p *SessionPersister) Load(ctx context.Context) (domain.CartState, error) {
	state := domain.CartState{Cart: []domain.CartItem{}, Wishlist: []domain.Product{}}

	if err := p.loadKey(ctx, store.KeyCart, &state.Cart); err != nil {
		return domain.CartState{}, err
	}
	if err := p.loadKey(ctx, store.KeyWishlist, &state.Wishlist); err != nil {
		return domain.CartState{}, err
	}
	return state, nil
}

func (p *SessionPersister) loadKey(ctx context.Context, key string, dst any) error {
	raw, err := p.values.GetValue(ctx, p.sessionID, key)
	if err != nil {
		if errors.Is(err, store.ErrValueNotFound) {
			return nil
		}
		return fmt.Errorf("cart: load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("cart: decode %s: %w: %v", key, ErrCorruptState, err)
	}
	return nil
}

// Save writes both lists.
func (p *SessionPersister) Save(ctx context.Context, state domain.CartState) error {
	if err := p.saveKey(ctx, store.KeyCart, state.Cart); err != nil {
		return err
	}
	return p.saveKey(ctx, store.KeyWishlist, state.Wishlist)
}

func (p *SessionPersister) saveKey(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cart: encode %s: %w", key, err)
	}
	if err := p.values.PutValue(ctx, p.sessionID, key, string(raw)); err != nil {
		return fmt.Errorf("cart: save %s: %w", key, err)
	}
	return nil
}

func (p *SessionPersister) DeleteCart(ctx context.Context) error {
	if err := p.values.DeleteValues(ctx, p.sessionID, store.KeyCart); err != nil {
		return fmt.Errorf("cart: delete cart: %w", err)
	}
	return nil
}
