package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront-service/internal/domain"
)

func TestFacets(t *testing.T) {
	facets := Facets(sampleCatalog())

	assert.Equal(t, []Facet{
		{Name: "Size", Values: []string{"S", "M", "L", "XL"}},
		{Name: "colors", Values: []string{"Black", "Grey"}},
	}, facets)
}

func TestWithAttributeValue(t *testing.T) {
	assert.Equal(t, []string{"tee", "hoodie"}, slugs(WithAttributeValue(sampleCatalog(), "colors", "black")))
	assert.Empty(t, WithAttributeValue(sampleCatalog(), "colors", "red"))
}

func TestTopCategories(t *testing.T) {
	categories := []domain.CategorySummary{
		{ID: 1, Name: "Uncategorized", Count: 0},
		{ID: 2, Name: "Tees", Count: 12},
		{ID: 3, Name: "Hoodies", Count: 30},
		{ID: 4, Name: "Caps", Count: 12},
	}

	top := TopCategories(categories, 2)
	assert.Len(t, top, 2)
	assert.Equal(t, int64(3), top[0].ID)
	assert.Equal(t, int64(2), top[1].ID, "ties keep upstream order")

	all := TopCategories(categories, 10)
	assert.Len(t, all, 3, "empty categories are dropped")
}
