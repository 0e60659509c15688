package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront-service/internal/cart"
	"storefront-service/internal/checkout"
	"storefront-service/internal/domain"
)

// CartItemInput is the body of POST /api/cart/items.
type CartItemInput struct {
	Product   domain.Product `json:"product" validate:"required"`
	Quantity  *int           `json:"quantity" validate:"omitempty,gte=1,lte=99"`
	Variation string         `json:"variation" validate:"max=50"`
}

// CartItemUpdateInput is the body of PATCH /api/cart/items/{slug}.
type CartItemUpdateInput struct {
	Quantity  *int    `json:"quantity" validate:"omitempty,lte=99"`
	Variation *string `json:"variation" validate:"omitempty,max=50"`
}

type WishlistInput struct {
	Product domain.Product `json:"product" validate:"required"`
}

// CartSummary feeds the header badges.
type CartSummary struct {
	CartCount     int    `json:"cartCount"`
	WishlistCount int    `json:"wishlistCount"`
	Subtotal      string `json:"subtotal"`
}

type CouponInput struct {
	Code string `json:"code" validate:"required,max=50"`
}

func respondWithCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrMissingSlug), errors.Is(err, cart.ErrInvalidQuantity):
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
	case errors.Is(err, cart.ErrItemNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrVariationTaken):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, cart.ErrNotLoaded):
		respondWithError(w, http.StatusServiceUnavailable, "Cart temporarily unavailable")
	default:
		respondWithError(w, http.StatusInternalServerError, "Failed to update cart")
	}
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, c.Snapshot())
}

func (h *HTTPHandler) GetCartSummary(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	snap := c.Snapshot()
	respondWithJSON(w, http.StatusOK, CartSummary{
		CartCount:     snap.CartCount,
		WishlistCount: snap.WishlistCount,
		Subtotal:      checkout.Subtotal(snap.Cart).StringFixed(2),
	})
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var input CartItemInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	qty := 1
	if input.Quantity != nil {
		qty = *input.Quantity
	}

	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	if err := c.AddToCart(r.Context(), input.Product, qty, input.Variation); err != nil {
		respondWithCartError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c.Snapshot())
}

// UpdateCartItem changes the quantity and/or the selected size of a cart line.
func (h *HTTPHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	var input CartItemUpdateInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	if input.Quantity == nil && input.Variation == nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: quantity or variation is required")
		return
	}

	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	if input.Variation != nil {
		if err := c.UpdateSize(r.Context(), slug, *input.Variation); err != nil {
			respondWithCartError(w, err)
			return
		}
	}
	if input.Quantity != nil {
		if err := c.UpdateQuantity(r.Context(), slug, *input.Quantity); err != nil {
			respondWithCartError(w, err)
			return
		}
	}
	respondWithJSON(w, http.StatusOK, c.Snapshot())
}

// RemoveCartItem drops a product, or just one of its sizes when ?variation= is given.
func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}

	var err error
	if variation, ok := r.URL.Query()["variation"]; ok {
		err = c.RemoveVariation(r.Context(), slug, variation[0])
	} else {
		err = c.RemoveFromCart(r.Context(), slug)
	}
	if err != nil {
		respondWithCartError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c.Snapshot())
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	c.ClearCart(r.Context())
	respondWithJSON(w, http.StatusOK, c.Snapshot())
}

func (h *HTTPHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, c.Snapshot().Wishlist)
}

func (h *HTTPHandler) AddWishlistItem(w http.ResponseWriter, r *http.Request) {
	var input WishlistInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	if err := c.AddToWishlist(r.Context(), input.Product); err != nil {
		respondWithCartError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c.Snapshot().Wishlist)
}

func (h *HTTPHandler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	if err := c.RemoveFromWishlist(r.Context(), chi.URLParam(r, "slug")); err != nil {
		respondWithCartError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c.Snapshot().Wishlist)
}

// ApplyCoupon prices a coupon against the session's cart.
func (h *HTTPHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var input CouponInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	subtotal := checkout.Subtotal(c.Items())
	respondWithJSON(w, http.StatusOK, checkout.ApplyCoupon(input.Code, subtotal))
}
