package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tidwall/gjson"

	"storefront-service/internal/checkout"
)

// OrderPlacedResponse is returned after a successful checkout.
type OrderPlacedResponse struct {
	OrderID string          `json:"orderId"`
	Order   json.RawMessage `json:"order"`
}

// PlaceOrder turns the session's cart into a cash-on-delivery order. Once the
// commerce backend accepts it, the ordered lines are taken out of the cart;
// anything added while the order was in flight stays.
func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var form checkout.OrderForm
	if !h.decodeAndValidate(w, r, &form) {
		return
	}

	c, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	items := c.Items()
	order, err := checkout.BuildOrder(form, items)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to build order")
		return
	}

	created, err := h.Commerce.CreateOrder(r.Context(), order)
	if err != nil {
		h.respondWithUpstreamError(w, r, err, "Failed to create order")
		return
	}

	orderID := gjson.GetBytes(created, "id").String()
	if err := c.RemoveOrdered(r.Context(), items); err != nil {
		requestLogger(r).WithError(err).WithField("order_id", orderID).Warn("Failed to remove ordered items from cart")
	}
	h.Events.OrderPlaced(r.Context(), sessionID(r), orderID)
	requestLogger(r).WithField("order_id", orderID).Info("Order created")

	respondWithJSON(w, http.StatusCreated, OrderPlacedResponse{OrderID: orderID, Order: created})
}
