package store

import (
	"context"
)

// Session value keys. They mirror the keys the storefront used to keep in browser storage.
const (
	KeyCart         = "cart"
	KeyWishlist     = "wishlist"
	KeyUser         = "user"
	KeyAuthToken    = "authToken"
	KeyRefreshToken = "refreshToken"
)

// SessionStorer defines the key-value operations backing a visitor session.
// Values are serialized text; the store does not interpret them.
type SessionStorer interface {
	GetValue(ctx context.Context, sessionID, key string) (string, error) // Returns ErrValueNotFound if the key is absent
	PutValue(ctx context.Context, sessionID, key, value string) error
	DeleteValues(ctx context.Context, sessionID string, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}
