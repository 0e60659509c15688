// Package checkout prices a cart and turns it into a cash-on-delivery order
// for the commerce backend.
package checkout

import (
	"strings"

	"github.com/shopspring/decimal"

	"storefront-service/internal/domain"
)

// Coupon codes honoured at checkout.
const (
	CouponSave10   = "SAVE10"
	CouponFreeShip = "FREESHIP"
)

const (
	msgSave10   = "Coupon applied! You saved 10%"
	msgFreeShip = "Free shipping applied!"
	msgInvalid  = "Invalid coupon code"
)

var tenPercent = decimal.RequireFromString("0.10")

// CouponResult is the priced outcome of applying a coupon to a subtotal.
type CouponResult struct {
	Code     string          `json:"code"`
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Message  string          `json:"message"`
}

// Subtotal is the sum of unit price times quantity, rounded to 2 places.
func Subtotal(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	return total.Round(2)
}

// NormalizeCoupon trims and upper-cases a user-entered code.
func NormalizeCoupon(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ApplyCoupon prices code against subtotal. Unknown codes give no discount and
// an error message; they are not an error.
func ApplyCoupon(code string, subtotal decimal.Decimal) CouponResult {
	res := CouponResult{Code: NormalizeCoupon(code), Total: subtotal.Round(2)}

	switch res.Code {
	case CouponSave10:
		res.Valid = true
		res.Discount = subtotal.Mul(tenPercent).Round(2)
		res.Message = msgSave10
	case CouponFreeShip:
		res.Valid = true
		res.Message = msgFreeShip
	default:
		res.Message = msgInvalid
	}
	res.Total = subtotal.Sub(res.Discount).Round(2)
	return res
}
