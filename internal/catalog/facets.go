package catalog

import (
	"sort"
	"strings"

	"storefront-service/internal/domain"
)

// Facet is one attribute offered in the filter sidebar.
type Facet struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Facets collects the distinct attribute values across products. Attribute
// names keep the order in which they are first seen and are matched case-insensitively.
func Facets(products []domain.Product) []Facet {
	facets := []Facet{}
	index := make(map[string]int)
	seen := make(map[string]map[string]struct{})

	for _, p := range products {
		for _, a := range p.Attributes {
			key := strings.ToLower(a.Name)
			i, ok := index[key]
			if !ok {
				i = len(facets)
				index[key] = i
				facets = append(facets, Facet{Name: a.Name, Values: []string{}})
				seen[key] = make(map[string]struct{})
			}
			for _, v := range a.Values {
				value := strings.TrimSpace(v.Value)
				if value == "" {
					continue
				}
				if _, dup := seen[key][strings.ToLower(value)]; dup {
					continue
				}
				seen[key][strings.ToLower(value)] = struct{}{}
				facets[i].Values = append(facets[i].Values, value)
			}
		}
	}
	return facets
}

// WithAttributeValue keeps the products whose attr includes value, e.g. every
// product available in "Black".
func WithAttributeValue(products []domain.Product, attr, value string) []domain.Product {
	f := NewFilterState()
	f.ToggleValue(attr, value)
	return Apply(products, f)
}

// TopCategories drops empty categories and returns the n largest by product count.
func TopCategories(categories []domain.CategorySummary, n int) []domain.CategorySummary {
	out := make([]domain.CategorySummary, 0, len(categories))
	for _, c := range categories {
		if c.Count > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
