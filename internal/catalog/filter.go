// Package catalog narrows and orders product lists for the storefront's
// category, search and collection pages.
package catalog

import (
	"errors"
	"strings"

	"storefront-service/internal/domain"
)

var ErrInvalidPriceRange = errors.New("catalog: price range must satisfy 0 <= min <= max")

// FilterState holds the shopper's current facet selections.
// The zero value selects everything.
type FilterState struct {
	Categories map[string]struct{}
	Attributes map[string][]string // Lower-cased attribute name -> selected values
	MinPrice   float64
	MaxPrice   *float64 // nil means no upper bound
}

// NewFilterState returns the default full-range state.
func NewFilterState() FilterState {
	return FilterState{
		Categories: make(map[string]struct{}),
		Attributes: make(map[string][]string),
	}
}

// ToggleCategory selects id, or deselects it when already selected.
func (f *FilterState) ToggleCategory(id string) {
	if f.Categories == nil {
		f.Categories = make(map[string]struct{})
	}
	if _, ok := f.Categories[id]; ok {
		delete(f.Categories, id)
		return
	}
	f.Categories[id] = struct{}{}
}

// ToggleValue selects value for attr, or deselects it when already selected.
func (f *FilterState) ToggleValue(attr, value string) {
	if f.Attributes == nil {
		f.Attributes = make(map[string][]string)
	}
	key := strings.ToLower(attr)
	values := f.Attributes[key]
	for i, v := range values {
		if v == value {
			f.Attributes[key] = append(values[:i:i], values[i+1:]...)
			return
		}
	}
	f.Attributes[key] = append(values, value)
}

// SetPriceRange constrains the effective price to [minPrice, maxPrice].
func (f *FilterState) SetPriceRange(minPrice, maxPrice float64) error {
	if minPrice < 0 || maxPrice < minPrice {
		return ErrInvalidPriceRange
	}
	f.MinPrice = minPrice
	f.MaxPrice = &maxPrice
	return nil
}

// Clear resets every selection and the price range.
func (f *FilterState) Clear() {
	*f = NewFilterState()
}

func (f FilterState) priceConstrained() bool {
	return f.MaxPrice != nil || f.MinPrice > 0
}

// Apply returns the products that satisfy every facet of f, in input order.
// Facets are AND-ed and values within a facet are OR-ed.
func Apply(products []domain.Product, f FilterState) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if matchesCategories(p, f.Categories) && matchesPrice(p, f) && matchesAttributes(p, f.Attributes) {
			out = append(out, p)
		}
	}
	return out
}

func matchesCategories(p domain.Product, selected map[string]struct{}) bool {
	if len(selected) == 0 {
		return true
	}
	for _, c := range p.Categories {
		if _, ok := selected[c.ID]; ok {
			return true
		}
	}
	return false
}

func matchesPrice(p domain.Product, f FilterState) bool {
	if !f.priceConstrained() {
		return true
	}
	price, ok := p.EffectivePrice()
	if !ok {
		return false
	}
	if price < f.MinPrice {
		return false
	}
	return f.MaxPrice == nil || price <= *f.MaxPrice
}

func matchesAttributes(p domain.Product, selected map[string][]string) bool {
	for name, values := range selected {
		if len(values) == 0 {
			continue
		}
		attr, ok := findAttribute(p, name)
		if !ok || !intersects(attr.Values, values) {
			return false
		}
	}
	return true
}

func findAttribute(p domain.Product, name string) (domain.ProductAttribute, bool) {
	for _, a := range p.Attributes {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return domain.ProductAttribute{}, false
}

func intersects(have []domain.AttributeValue, want []string) bool {
	for _, h := range have {
		v := strings.TrimSpace(h.Value)
		for _, w := range want {
			if strings.EqualFold(v, w) {
				return true
			}
		}
	}
	return false
}
