package domain

// ProductImage is one entry of a product's ordered gallery.
type ProductImage struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ProductCategory is the category reference embedded in a product.
type ProductCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// AttributeValue is a single selectable option of a product attribute (e.g. "XL").
type AttributeValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// ProductAttribute is a named facet such as size, colors, sleeves or fit.
type ProductAttribute struct {
	Name   string           `json:"name"`
	Values []AttributeValue `json:"values"`
}

// Product is the normalized, read-only catalogue product served to the storefront.
// The json tags follow the names the storefront UI already consumes.
type Product struct {
	ID           string             `json:"id"`
	Slug         string             `json:"slug"`
	Name         string             `json:"name"`
	RegularPrice *float64           `json:"regularPrice,omitempty"`
	SalePrice    *float64           `json:"salePrice,omitempty"` // Pointer: absent when the product is not on sale
	Description  string             `json:"description,omitempty"`
	Images       []ProductImage     `json:"images,omitempty"`
	Categories   []ProductCategory  `json:"categories,omitempty"`
	Attributes   []ProductAttribute `json:"attributes,omitempty"`
}

// EffectivePrice returns the sale price if set, else the regular price.
// The boolean is false when neither is known.
func (p Product) EffectivePrice() (float64, bool) {
	if p.SalePrice != nil {
		return *p.SalePrice, true
	}
	if p.RegularPrice != nil {
		return *p.RegularPrice, true
	}
	return 0, false
}

// FirstImageURL returns the url of the first gallery image, or "".
func (p Product) FirstImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// CategorySummary is a category as listed by the categories route.
type CategorySummary struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Slug  string  `json:"slug"`
	Count int     `json:"count"`
	Image *string `json:"image"` // Pointer: serialized as null when the category has no image
}
