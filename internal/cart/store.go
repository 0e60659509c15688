package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"storefront-service/internal/domain"
)

// Predefined errors for cart operations
var (
	ErrMissingSlug     = errors.New("cart: product slug is required")
	ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")
	ErrVariationTaken  = errors.New("cart: another line already holds this variation")
	ErrItemNotFound    = errors.New("cart: no item with this slug")
	// ErrCorruptState marks persisted state that exists but cannot be decoded.
	ErrCorruptState = errors.New("cart: persisted state is corrupt")
	// ErrNotLoaded is returned by mutations on a store whose last load failed,
	// so the empty placeholder never overwrites persisted state.
	ErrNotLoaded = errors.New("cart: state not loaded")
)

// Snapshot is a read-only copy of a store's state with its derived counts.
type Snapshot struct {
	Cart          []domain.CartItem `json:"cart"`
	Wishlist      []domain.Product  `json:"wishlist"`
	CartCount     int               `json:"cartCount"`
	WishlistCount int               `json:"wishlistCount"`
}

// Store is the single source of truth for what one visitor intends to buy or save.
// Every mutation is applied under the store's lock, persisted, and then
// announced to subscribers in dispatch order.
type Store struct {
	mu          sync.Mutex
	state       domain.CartState
	loaded      bool
	persister   Persister
	log         logrus.FieldLogger
	subscribers map[int]func(Snapshot)
	nextSubID   int

	// pending holds notifications queued under mu; dispatchMu serialises their
	// delivery so subscribers run outside mu but still in mutation order.
	pending    []notification
	dispatchMu sync.Mutex
}

type notification struct {
	snap Snapshot
	fns  []func(Snapshot)
}

// NewStore creates an empty store. Call Rehydrate to load persisted state.
func NewStore(p Persister, log logrus.FieldLogger) *Store {
	return &Store{
		state:       emptyState(),
		loaded:      true,
		persister:   p,
		log:         log,
		subscribers: make(map[int]func(Snapshot)),
	}
}

func emptyState() domain.CartState {
	return domain.CartState{Cart: []domain.CartItem{}, Wishlist: []domain.Product{}}
}

// Rehydrate replaces the in-memory state with the persisted one.
// Corrupt state is logged and the store starts empty. Any other load error is
// returned and leaves the store unloaded: mutations fail with ErrNotLoaded
// until a later Rehydrate succeeds.
func (s *Store) Rehydrate(ctx context.Context) error {
	loaded, err := s.persister.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = emptyState()
		if errors.Is(err, ErrCorruptState) {
			s.log.WithError(err).Warn("persisted cart is corrupt, starting empty")
			s.loaded = true
			return nil
		}
		s.log.WithError(err).Warn("could not rehydrate cart")
		s.loaded = false
		return err
	}
	if loaded.Cart == nil {
		loaded.Cart = []domain.CartItem{}
	}
	if loaded.Wishlist == nil {
		loaded.Wishlist = []domain.Product{}
	}
	s.state = loaded
	s.loaded = true
	return nil
}

// Subscribe registers fn to receive a snapshot after every mutation.
// fn runs after the store's lock is released, so it may read the store, but it
// must not mutate it. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// mutate applies fn under the lock. When fn reports a change, the new state is
// persisted and a notification is queued before the lock is released, so
// subscribers observe mutations in the order they were dispatched.
func (s *Store) mutate(ctx context.Context, fn func(st *domain.CartState) (bool, error)) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	changed, err := fn(&s.state)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.persist(ctx)
	s.enqueueLocked()
	s.mu.Unlock()

	s.dispatch()
	return nil
}

func (s *Store) persist(ctx context.Context) {
	if err := s.persister.Save(ctx, s.state); err != nil {
		s.log.WithError(err).Warn("failed to persist cart state")
	}
}

func (s *Store) enqueueLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	fns := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.pending = append(s.pending, notification{snap: s.snapshotLocked(), fns: fns})
}

// dispatch delivers queued notifications in order. When it returns, every
// notification queued before the call has been delivered.
func (s *Store) dispatch() {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		n := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		for _, fn := range n.fns {
			fn(n.snap)
		}
	}
}

// AddToCart adds quantity units of product. An existing line with the same
// (slug, variation) has its quantity increased instead of being duplicated.
func (s *Store) AddToCart(ctx context.Context, product domain.Product, quantity int, variation string) error {
	if product.Slug == "" {
		s.log.WithField("product_id", product.ID).Error("invalid product provided to AddToCart: missing slug")
		return ErrMissingSlug
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	return s.mutate(ctx, func(st *domain.CartState) (bool, error) {
		for i := range st.Cart {
			if st.Cart[i].Slug == product.Slug && st.Cart[i].Variation == variation {
				st.Cart[i].Quantity += quantity
				return true, nil
			}
		}
		st.Cart = append(st.Cart, newItem(product, quantity, variation))
		return true, nil
	})
}

func newItem(p domain.Product, quantity int, variation string) domain.CartItem {
	item := domain.CartItem{
		ID:        p.ID,
		Slug:      p.Slug,
		Name:      p.Name,
		Quantity:  quantity,
		Image:     p.FirstImageURL(),
		Variation: variation,
	}
	if price, ok := p.EffectivePrice(); ok {
		item.Price = price
	}
	switch {
	case p.RegularPrice != nil:
		item.RegularPrice = *p.RegularPrice
	case p.SalePrice != nil:
		item.RegularPrice = *p.SalePrice
	}
	if p.SalePrice != nil {
		sale := *p.SalePrice
		item.SalePrice = &sale
	}
	return item
}

// RemoveFromCart removes every line for slug, whatever its variation.
func (s *Store) RemoveFromCart(ctx context.Context, slug string) error {
	return s.mutate(ctx, func(st *domain.CartState) (bool, error) {
		kept := st.Cart[:0:0]
		for _, item := range st.Cart {
			if item.Slug != slug {
				kept = append(kept, item)
			}
		}
		changed := len(kept) != len(st.Cart)
		st.Cart = kept
		return changed, nil
	})
}

// RemoveVariation removes only the (slug, variation) line.
func (s *Store) RemoveVariation(ctx context.Context, slug, variation string) error {
	return s.mutate(ctx, func(st *domain.CartState) (bool, error) {
		for i, item := range st.Cart {
			if item.Slug == slug && item.Variation == variation {
				st.Cart = append(st.Cart[:i:i], st.Cart[i+1:]...)
				return true, nil
			}
		}
		return false, nil
	})
}

// UpdateQuantity sets the quantity of every line for slug. Values below 1 are
// clamped to 1; use RemoveFromCart to drop a line.
func (s *Store) UpdateQuantity(ctx context.Context, slug string, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}
	return s.mutate(ctx, func(st *domain.CartState) (bool, error) {
		found := false
		for i := range st.Cart {
			if st.Cart[i].Slug == slug {
				st.Cart[i].Quantity = quantity
				found = true
			}
		}
		if !found {
			return false, ErrItemNotFound
		}
		return true, nil
	})
}

// UpdateSize overwrites the variation of the line(s) for slug in place.
// It refuses with ErrVariationTaken when the result would hold two lines
// with the same (slug, variation) key.
func (s *Store) UpdateSize(ctx context.Context, slug, newVariation string) error {
	return s.mutate(ctx, func(st *domain.CartState) (bool, error) {
		matches := 0
		for _, item := range st.Cart {
			if item.Slug == slug {
				matches++
			}
		}
		switch {
		case matches == 0:
			return false, ErrItemNotFound
		case matches > 1:
			return false, ErrVariationTaken
		}
		for i := range st.Cart {
			if st.Cart[i].Slug == slug {
				if st.Cart[i].Variation == newVariation {
					return false, nil
				}
				st.Cart[i].Variation = newVariation
			}
		}
		return true, nil
	})
}

// AddToWishlist saves a product snapshot. Adding a slug twice is a no-op.
func (s *Store) AddToWishlist(ctx context.Context, product domain.Product) error {
	if product.Slug == "" {
		return ErrMissingSlug
	}
	return s.mutate(ctx, func(st *domain.CartState) (bool, error) {
		for _, p := range st.Wishlist {
			if p.Slug == product.Slug {
				return false, nil
			}
		}
		st.Wishlist = append(st.Wishlist, product)
		return true, nil
	})
}

// RemoveFromWishlist drops the product with slug. Removing an absent slug is a no-op.
func (s *Store) RemoveFromWishlist(ctx context.Context, slug string) error {
	return s.mutate(ctx, func(st *domain.CartState) (bool, error) {
		for i, p := range st.Wishlist {
			if p.Slug == slug {
				st.Wishlist = append(st.Wishlist[:i:i], st.Wishlist[i+1:]...)
				return true, nil
			}
		}
		return false, nil
	})
}

// ClearCart empties the cart and removes its persisted entry. The wishlist is kept.
func (s *Store) ClearCart(ctx context.Context) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return
	}
	s.state.Cart = []domain.CartItem{}
	if err := s.persister.DeleteCart(ctx); err != nil {
		s.log.WithError(err).Warn("failed to delete persisted cart")
	}
	s.enqueueLocked()
	s.mu.Unlock()

	s.dispatch()
}

// RemoveOrdered subtracts ordered lines from the cart by (slug, variation).
// Lines added or topped up after the order was taken keep what was not ordered.
// When nothing is left the persisted cart entry is removed, as with ClearCart.
func (s *Store) RemoveOrdered(ctx context.Context, ordered []domain.CartItem) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	changed := false
	kept := make([]domain.CartItem, 0, len(s.state.Cart))
	for _, item := range s.state.Cart {
		for _, o := range ordered {
			if o.Slug == item.Slug && o.Variation == item.Variation {
				item.Quantity -= o.Quantity
				changed = true
			}
		}
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	if !changed {
		s.mu.Unlock()
		return nil
	}
	s.state.Cart = kept
	if len(kept) == 0 {
		if err := s.persister.DeleteCart(ctx); err != nil {
			s.log.WithError(err).Warn("failed to delete persisted cart")
		}
	} else {
		s.persist(ctx)
	}
	s.enqueueLocked()
	s.mu.Unlock()

	s.dispatch()
	return nil
}

// CartCount is the sum of quantities across all lines.
func (s *Store) CartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cartCount(s.state.Cart)
}

func (s *Store) WishlistCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Wishlist)
}

// Items returns a copy of the cart lines.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartItem{}, s.state.Cart...)
}

// Snapshot returns copies of both lists plus the derived counts.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Cart:          append([]domain.CartItem{}, s.state.Cart...),
		Wishlist:      append([]domain.Product{}, s.state.Wishlist...),
		CartCount:     cartCount(s.state.Cart),
		WishlistCount: len(s.state.Wishlist),
	}
}

func cartCount(items []domain.CartItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
