package catalog

import (
	"fmt"
	"sort"

	"storefront-service/internal/domain"
)

// SortOrder is the ordering requested through the sort query parameter.
type SortOrder string

const (
	SortNone      SortOrder = ""
	SortPriceAsc  SortOrder = "priceAsc"
	SortPriceDesc SortOrder = "priceDesc"
)

// ParseSortOrder validates a raw sort value. An empty string means input order.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case SortNone, SortPriceAsc, SortPriceDesc:
		return o, nil
	default:
		return SortNone, fmt.Errorf("catalog: unknown sort order %q", s)
	}
}

// Sort returns a copy of products ordered by effective price. Products with no
// price sort as 0 and ties keep their input order.
func Sort(products []domain.Product, order SortOrder) []domain.Product {
	out := append([]domain.Product{}, products...)
	if order == SortNone {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, _ := out[i].EffectivePrice()
		pj, _ := out[j].EffectivePrice()
		if order == SortPriceDesc {
			return pi > pj
		}
		return pi < pj
	})
	return out
}
