package domain

// CartItem is one line of a visitor's cart.
// At most one CartItem exists per (Slug, Variation) pair.
type CartItem struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"` // Unit price: sale price if present, else regular price
	RegularPrice float64  `json:"regularPrice"`
	SalePrice    *float64 `json:"salePrice,omitempty"`
	Quantity     int      `json:"quantity"`
	Image        string   `json:"image,omitempty"`
	Variation    string   `json:"variation,omitempty"` // Selected size; "" means no variation
}

// CartState is everything persisted for a visitor: cart lines and wishlist snapshots.
type CartState struct {
	Cart     []CartItem `json:"cart"`
	Wishlist []Product  `json:"wishlist"`
}
