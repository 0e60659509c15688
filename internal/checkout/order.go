package checkout

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"storefront-service/internal/domain"
)

var ErrEmptyCart = errors.New("checkout: cart is empty")

const (
	paymentMethod      = "cod"
	paymentMethodTitle = "Cash on Delivery"
	shippingCountry    = "IN"
)

// OrderForm is the shipping and contact data collected on the checkout page.
type OrderForm struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Address string `json:"address" validate:"required,max=500"`
	City    string `json:"city" validate:"required,max=100"`
	Pincode string `json:"pincode" validate:"required,numeric,len=6"`
	Phone   string `json:"phone" validate:"required,min=10,max=15"`
	Coupon  string `json:"coupon,omitempty" validate:"omitempty,max=50"`
}

// Address is the billing/shipping block of a WooCommerce order.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type LineItem struct {
	ProductID   int64 `json:"product_id"`
	Quantity    int   `json:"quantity"`
	VariationID int64 `json:"variation_id"`
}

type ShippingLine struct {
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

type MetaData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Order is the payload posted to the commerce backend's orders endpoint.
type Order struct {
	PaymentMethod      string         `json:"payment_method"`
	PaymentMethodTitle string         `json:"payment_method_title"`
	SetPaid            bool           `json:"set_paid"`
	Billing            Address        `json:"billing"`
	Shipping           Address        `json:"shipping"`
	LineItems          []LineItem     `json:"line_items"`
	ShippingLines      []ShippingLine `json:"shipping_lines"`
	MetaData           []MetaData     `json:"meta_data,omitempty"`
}

// BuildOrder turns the checkout form and cart lines into a cash-on-delivery order
// with free shipping. Items whose id is not numeric are sent with product id 0.
func BuildOrder(form OrderForm, items []domain.CartItem) (Order, error) {
	if len(items) == 0 {
		return Order{}, ErrEmptyCart
	}

	first, last := splitName(form.Name)
	billing := Address{
		FirstName: first,
		LastName:  last,
		Address1:  form.Address,
		City:      form.City,
		Postcode:  form.Pincode,
		Country:   shippingCountry,
		Email:     form.Email,
		Phone:     form.Phone,
	}
	shipping := billing
	shipping.Email, shipping.Phone = "", ""

	order := Order{
		PaymentMethod:      paymentMethod,
		PaymentMethodTitle: paymentMethodTitle,
		Billing:            billing,
		Shipping:           shipping,
		LineItems:          make([]LineItem, 0, len(items)),
		ShippingLines: []ShippingLine{
			{MethodID: "flat_rate", MethodTitle: "Free Shipping", Total: "0.00"},
		},
	}
	for _, item := range items {
		id, _ := strconv.ParseInt(item.ID, 10, 64)
		order.LineItems = append(order.LineItems, LineItem{ProductID: id, Quantity: item.Quantity})
	}

	if code := NormalizeCoupon(form.Coupon); code != "" {
		if res := ApplyCoupon(code, Subtotal(items)); res.Valid {
			order.MetaData = append(order.MetaData, MetaData{Key: "storefront_coupon", Value: res.Code})
		}
	}
	return order, nil
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// FilterOrdersByEmail keeps the orders whose billing email matches email,
// ignoring case. An empty email keeps everything.
func FilterOrdersByEmail(orders []json.RawMessage, email string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(orders))
	for _, o := range orders {
		if email == "" || strings.EqualFold(gjson.GetBytes(o, "billing.email").String(), email) {
			out = append(out, o)
		}
	}
	return out
}
