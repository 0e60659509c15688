package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
)

// MockPersister is a mock implementation of Persister
type MockPersister struct {
	mock.Mock
}

func (m *MockPersister) Load(ctx context.Context) (domain.CartState, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.CartState), args.Error(1)
}

func (m *MockPersister) Save(ctx context.Context, state domain.CartState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockPersister) DeleteCart(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func PtrTo[T any](v T) *T {
	return &v
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestStore(t *testing.T) (*Store, *MockPersister) {
	p := new(MockPersister)
	p.On("Save", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("DeleteCart", mock.Anything).Return(nil).Maybe()
	return NewStore(p, quietLogger()), p
}

func tee() domain.Product {
	return domain.Product{
		ID:           "11",
		Slug:         "oversized-tee",
		Name:         "Oversized Tee",
		RegularPrice: PtrTo(100.0),
		Images:       []domain.ProductImage{{URL: "https://cdn.example/tee.jpg", Alt: "Tee"}},
	}
}

func hoodie() domain.Product {
	return domain.Product{
		ID:           "12",
		Slug:         "zip-hoodie",
		Name:         "Zip Hoodie",
		RegularPrice: PtrTo(300.0),
		SalePrice:    PtrTo(250.0),
	}
}

func TestStore_AddToCart_MergesSameKey(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)

	require.NoError(t, s.AddToCart(ctx, tee(), 1, "M"))
	require.NoError(t, s.AddToCart(ctx, tee(), 2, "M"))
	require.NoError(t, s.AddToCart(ctx, tee(), 1, "M"))

	items := s.Items()
	require.Len(t, items, 1, "same (slug, variation) must collapse into one line")
	assert.Equal(t, 4, items[0].Quantity)
	assert.Equal(t, 100.0, items[0].Price)
	assert.Equal(t, "https://cdn.example/tee.jpg", items[0].Image)
	assert.Equal(t, 4, s.CartCount())
	p.AssertNumberOfCalls(t, "Save", 3)
}

func TestStore_AddToCart_DifferentVariationsAreSeparateLines(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.AddToCart(ctx, tee(), 1, "M"))
	require.NoError(t, s.AddToCart(ctx, tee(), 1, "L"))

	assert.Len(t, s.Items(), 2)
	assert.Equal(t, 2, s.CartCount())
}

func TestStore_AddToCart_UsesSalePrice(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.AddToCart(context.Background(), hoodie(), 1, ""))

	item := s.Items()[0]
	assert.Equal(t, 250.0, item.Price)
	assert.Equal(t, 300.0, item.RegularPrice)
	require.NotNil(t, item.SalePrice)
	assert.Equal(t, 250.0, *item.SalePrice)
}

func TestStore_AddToCart_NoPriceDefaultsToZero(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.AddToCart(context.Background(), domain.Product{ID: "1", Slug: "free"}, 1, ""))

	item := s.Items()[0]
	assert.Zero(t, item.Price)
	assert.Zero(t, item.RegularPrice)
}

func TestStore_AddToCart_InvalidInput(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)

	err := s.AddToCart(ctx, domain.Product{ID: "1", Name: "No slug"}, 1, "")
	assert.ErrorIs(t, err, ErrMissingSlug)

	err = s.AddToCart(ctx, tee(), 0, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	assert.Empty(t, s.Items())
	p.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestStore_RemoveFromCart_RemovesAllVariations(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.AddToCart(ctx, tee(), 1, "M"))
	require.NoError(t, s.AddToCart(ctx, tee(), 1, "L"))
	require.NoError(t, s.AddToCart(ctx, hoodie(), 1, ""))

	require.NoError(t, s.RemoveFromCart(ctx, "oversized-tee"))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "zip-hoodie", items[0].Slug)
}

func TestStore_RemoveVariation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.AddToCart(ctx, tee(), 1, "M"))
	require.NoError(t, s.AddToCart(ctx, tee(), 3, "L"))

	require.NoError(t, s.RemoveVariation(ctx, "oversized-tee", "M"))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "L", items[0].Variation)
	assert.Equal(t, 3, s.CartCount())
}

func TestStore_UpdateQuantity_ClampsToOne(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.AddToCart(ctx, tee(), 3, ""))

	require.NoError(t, s.UpdateQuantity(ctx, "oversized-tee", 5))
	assert.Equal(t, 5, s.CartCount())

	require.NoError(t, s.UpdateQuantity(ctx, "oversized-tee", -2))
	assert.Equal(t, 1, s.CartCount())

	assert.ErrorIs(t, s.UpdateQuantity(ctx, "missing", 2), ErrItemNotFound)
}

func TestStore_UpdateSize(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.AddToCart(ctx, tee(), 2, "M"))

	require.NoError(t, s.UpdateSize(ctx, "oversized-tee", "XL"))
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "XL", items[0].Variation)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestStore_UpdateSize_CollisionLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.AddToCart(ctx, tee(), 1, "M"))
	require.NoError(t, s.AddToCart(ctx, tee(), 2, "L"))
	before := s.Snapshot()

	err := s.UpdateSize(ctx, "oversized-tee", "L")
	assert.ErrorIs(t, err, ErrVariationTaken)
	assert.Equal(t, before, s.Snapshot())
}

func TestStore_Wishlist_IdempotentSetSemantics(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.AddToWishlist(ctx, tee()))
	require.NoError(t, s.AddToWishlist(ctx, tee()))
	assert.Equal(t, 1, s.WishlistCount())

	require.NoError(t, s.RemoveFromWishlist(ctx, "oversized-tee"))
	require.NoError(t, s.RemoveFromWishlist(ctx, "oversized-tee"))
	assert.Equal(t, 0, s.WishlistCount())

	assert.ErrorIs(t, s.AddToWishlist(ctx, domain.Product{ID: "9"}), ErrMissingSlug)
}

func TestStore_ClearCart_KeepsWishlist(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)
	require.NoError(t, s.AddToCart(ctx, tee(), 2, ""))
	require.NoError(t, s.AddToWishlist(ctx, hoodie()))

	s.ClearCart(ctx)

	assert.Empty(t, s.Items())
	assert.Equal(t, 0, s.CartCount())
	assert.Equal(t, 1, s.WishlistCount())
	p.AssertCalled(t, "DeleteCart", mock.Anything)
}

func TestStore_CountsForExampleCart(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	b := domain.Product{ID: "2", Slug: "b", RegularPrice: PtrTo(250.0)}
	a := domain.Product{ID: "1", Slug: "a", RegularPrice: PtrTo(100.0)}
	require.NoError(t, s.AddToCart(ctx, a, 2, ""))
	require.NoError(t, s.AddToCart(ctx, b, 1, ""))

	snap := s.Snapshot()
	assert.Equal(t, 3, snap.CartCount)
	assert.Equal(t, 0, snap.WishlistCount)
	assert.Len(t, snap.Cart, 2)
}

func TestStore_PersistFailureIsNotReturned(t *testing.T) {
	p := new(MockPersister)
	p.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	s := NewStore(p, quietLogger())

	err := s.AddToCart(context.Background(), tee(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, 1, s.CartCount(), "in-memory state stays authoritative")
}

func TestStore_Rehydrate(t *testing.T) {
	persisted := domain.CartState{
		Cart: []domain.CartItem{{ID: "1", Slug: "a", Price: 10, Quantity: 3}},
	}
	p := new(MockPersister)
	p.On("Load", mock.Anything).Return(persisted, nil)
	s := NewStore(p, quietLogger())

	require.NoError(t, s.Rehydrate(context.Background()))
	assert.Equal(t, 3, s.CartCount())
	assert.NotNil(t, s.Snapshot().Wishlist)
}

func TestStore_Rehydrate_CorruptStateStartsEmpty(t *testing.T) {
	p := new(MockPersister)
	p.On("Load", mock.Anything).Return(domain.CartState{}, fmt.Errorf("cart: decode cart: %w: bad json", ErrCorruptState))
	p.On("Save", mock.Anything, mock.Anything).Return(nil)
	s := NewStore(p, quietLogger())

	require.NoError(t, s.Rehydrate(context.Background()))
	assert.Equal(t, 0, s.CartCount())
	assert.NotNil(t, s.Items())
	require.NoError(t, s.AddToCart(context.Background(), tee(), 1, ""))
}

func TestStore_Rehydrate_LoadFailureBlocksMutations(t *testing.T) {
	ctx := context.Background()
	p := new(MockPersister)
	p.On("Load", mock.Anything).Return(domain.CartState{}, errors.New("connection refused"))
	s := NewStore(p, quietLogger())

	assert.Error(t, s.Rehydrate(ctx))
	assert.ErrorIs(t, s.AddToCart(ctx, tee(), 1, ""), ErrNotLoaded)
	assert.ErrorIs(t, s.RemoveOrdered(ctx, []domain.CartItem{{Slug: "oversized-tee", Quantity: 1}}), ErrNotLoaded)
	s.ClearCart(ctx)

	p.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	p.AssertNotCalled(t, "DeleteCart", mock.Anything)
}

func TestStore_SubscriberMayReadStore(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var seen []int
	s.Subscribe(func(snap Snapshot) {
		seen = append(seen, s.CartCount())
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.AddToCart(ctx, tee(), 2, "")
		s.ClearCart(ctx)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber reading the store blocked the mutation")
	}
	assert.Equal(t, []int{2, 0}, seen)
}

func TestStore_RemoveOrdered_KeepsLinesAddedLater(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)

	require.NoError(t, s.AddToCart(ctx, tee(), 2, "M"))
	ordered := s.Items()

	require.NoError(t, s.AddToCart(ctx, tee(), 1, "M"))
	require.NoError(t, s.AddToCart(ctx, hoodie(), 1, "L"))

	require.NoError(t, s.RemoveOrdered(ctx, ordered))

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "oversized-tee", items[0].Slug)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, "zip-hoodie", items[1].Slug)
	p.AssertNotCalled(t, "DeleteCart", mock.Anything)
}

func TestStore_RemoveOrdered_EmptiesCart(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)

	require.NoError(t, s.AddToCart(ctx, tee(), 2, "M"))
	require.NoError(t, s.AddToWishlist(ctx, hoodie()))

	require.NoError(t, s.RemoveOrdered(ctx, s.Items()))

	assert.Equal(t, 0, s.CartCount())
	assert.Equal(t, 1, s.WishlistCount())
	p.AssertCalled(t, "DeleteCart", mock.Anything)
}

func TestStore_SubscribersSeeMutationsInOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var counts []int
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		counts = append(counts, snap.CartCount)
	})

	require.NoError(t, s.AddToCart(ctx, tee(), 1, ""))
	require.NoError(t, s.AddToCart(ctx, tee(), 2, ""))
	require.NoError(t, s.RemoveFromCart(ctx, "oversized-tee"))
	unsubscribe()
	require.NoError(t, s.AddToCart(ctx, tee(), 1, ""))

	assert.Equal(t, []int{1, 3, 0}, counts)
}

func TestStore_NoOpMutationsDoNotPersist(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)

	require.NoError(t, s.RemoveFromCart(ctx, "nothing"))
	require.NoError(t, s.RemoveFromWishlist(ctx, "nothing"))

	p.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
