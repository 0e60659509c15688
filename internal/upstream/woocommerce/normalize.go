package woocommerce

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"storefront-service/internal/domain"
)

const defaultImageAlt = "Product image"

type wcImage struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

type wcCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type wcAttribute struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

type wcProduct struct {
	ID               int64         `json:"id"`
	Slug             string        `json:"slug"`
	Name             string        `json:"name"`
	Price            string        `json:"price"`
	RegularPrice     string        `json:"regular_price"`
	SalePrice        string        `json:"sale_price"`
	Description      string        `json:"description"`
	ShortDescription string        `json:"short_description"`
	Images           []wcImage     `json:"images"`
	Categories       []wcCategory  `json:"categories"`
	Attributes       []wcAttribute `json:"attributes"`
}

type wcProductCategory struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
	Image *struct {
		Src string `json:"src"`
	} `json:"image"`
}

// parsePrice reads a WooCommerce price string. Unparseable input yields 0.
func parsePrice(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func normalizeProduct(p wcProduct) domain.Product {
	regular := parsePrice(firstNonEmpty(p.Price, p.RegularPrice, "0"))
	out := domain.Product{
		ID:           strconv.FormatInt(p.ID, 10),
		Slug:         p.Slug,
		Name:         p.Name,
		RegularPrice: &regular,
		Description:  firstNonEmpty(p.Description, p.ShortDescription),
		Images:       make([]domain.ProductImage, 0, len(p.Images)),
		Categories:   make([]domain.ProductCategory, 0, len(p.Categories)),
		Attributes:   make([]domain.ProductAttribute, 0, len(p.Attributes)),
	}
	if p.SalePrice != "" {
		sale := parsePrice(p.SalePrice)
		out.SalePrice = &sale
	}

	for _, img := range p.Images {
		out.Images = append(out.Images, domain.ProductImage{
			URL: img.Src,
			Alt: firstNonEmpty(img.Alt, p.Name, defaultImageAlt),
		})
	}
	for _, c := range p.Categories {
		out.Categories = append(out.Categories, domain.ProductCategory{
			ID:   strconv.FormatInt(c.ID, 10),
			Name: c.Name,
			Slug: c.Slug,
		})
	}
	for _, a := range p.Attributes {
		attr := domain.ProductAttribute{Name: a.Name, Values: make([]domain.AttributeValue, 0, len(a.Options))}
		for i, opt := range a.Options {
			attr.Values = append(attr.Values, domain.AttributeValue{ID: fmt.Sprintf("%d-%d", a.ID, i), Value: opt})
		}
		out.Attributes = append(out.Attributes, attr)
	}
	return out
}

func normalizeCategory(c wcProductCategory) domain.CategorySummary {
	out := domain.CategorySummary{ID: c.ID, Name: c.Name, Slug: c.Slug, Count: c.Count}
	if c.Image != nil && c.Image.Src != "" {
		src := c.Image.Src
		out.Image = &src
	}
	return out
}
