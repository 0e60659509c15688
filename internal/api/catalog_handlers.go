package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"storefront-service/internal/catalog"
	"storefront-service/internal/checkout"
	"storefront-service/internal/domain"
	"storefront-service/internal/upstream"
	"storefront-service/internal/upstream/woocommerce"
)

const attrParamPrefix = "attr."

// parseProductFilter builds a FilterState and sort order from query parameters:
// category (repeatable), min_price, max_price, attr.<name> (repeatable) and sort.
func parseProductFilter(q url.Values) (catalog.FilterState, catalog.SortOrder, bool, error) {
	f := catalog.NewFilterState()
	active := false

	for _, id := range q["category"] {
		if id = strings.TrimSpace(id); id != "" {
			f.ToggleCategory(id)
			active = true
		}
	}

	minRaw, maxRaw := q.Get("min_price"), q.Get("max_price")
	if minRaw != "" || maxRaw != "" {
		var minPrice float64
		if minRaw != "" {
			v, err := strconv.ParseFloat(minRaw, 64)
			if err != nil {
				return f, "", false, fmt.Errorf("min_price: %w", err)
			}
			minPrice = v
		}
		if maxRaw != "" {
			maxPrice, err := strconv.ParseFloat(maxRaw, 64)
			if err != nil {
				return f, "", false, fmt.Errorf("max_price: %w", err)
			}
			if err := f.SetPriceRange(minPrice, maxPrice); err != nil {
				return f, "", false, err
			}
		} else {
			if minPrice < 0 {
				return f, "", false, catalog.ErrInvalidPriceRange
			}
			f.MinPrice = minPrice
		}
		active = true
	}

	for key, values := range q {
		name, ok := strings.CutPrefix(key, attrParamPrefix)
		if !ok || name == "" {
			continue
		}
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				f.ToggleValue(name, v)
				active = true
			}
		}
	}

	order, err := catalog.ParseSortOrder(q.Get("sort"))
	if err != nil {
		return f, "", false, err
	}
	return f, order, active || order != catalog.SortNone, nil
}

// ListProducts proxies the published catalogue, optionally narrowed and sorted.
func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	q := r.URL.Query()

	filter, order, filtered, err := parseProductFilter(q)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 || limit > woocommerce.MaxPerPage {
		limit = woocommerce.MaxPerPage
	}

	products, err := h.Commerce.ListProducts(r.Context(), woocommerce.ProductQuery{Slug: q.Get("slug"), Limit: limit})
	if err != nil {
		log.WithError(err).Error("ListProducts upstream call failed")
		respondWithJSON(w, http.StatusOK, []domain.Product{})
		return
	}
	if filtered {
		products = catalog.Sort(catalog.Apply(products, filter), order)
	}
	if products == nil {
		products = []domain.Product{}
	}
	log.WithField("count", len(products)).Debug("Returning published products")
	respondWithJSON(w, http.StatusOK, products)
}

// ListProductFacets returns the attribute facets of the published catalogue.
func (h *HTTPHandler) ListProductFacets(w http.ResponseWriter, r *http.Request) {
	products, err := h.Commerce.ListProducts(r.Context(), woocommerce.ProductQuery{})
	if err != nil {
		requestLogger(r).WithError(err).Error("ListProductFacets upstream call failed")
		respondWithJSON(w, http.StatusOK, []catalog.Facet{})
		return
	}
	respondWithJSON(w, http.StatusOK, catalog.Facets(products))
}

// ListProductsByColor backs the colour collection page.
func (h *HTTPHandler) ListProductsByColor(w http.ResponseWriter, r *http.Request) {
	color := strings.TrimSpace(chi.URLParam(r, "color"))
	if decoded, err := url.PathUnescape(color); err == nil {
		color = decoded
	}
	if color == "" {
		respondWithError(w, http.StatusBadRequest, "Validation failed: color is required")
		return
	}

	products, err := h.Commerce.ListProducts(r.Context(), woocommerce.ProductQuery{})
	if err != nil {
		requestLogger(r).WithError(err).Error("ListProductsByColor upstream call failed")
		respondWithJSON(w, http.StatusOK, []domain.Product{})
		return
	}
	respondWithJSON(w, http.StatusOK, catalog.WithAttributeValue(products, "colors", color))
}

// ListCategories returns the largest non-empty categories.
func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Commerce.ListCategories(r.Context())
	if err != nil {
		requestLogger(r).WithError(err).Error("ListCategories upstream call failed")
		respondWithJSON(w, http.StatusOK, []domain.CategorySummary{})
		return
	}
	respondWithJSON(w, http.StatusOK, catalog.TopCategories(categories, h.TopCategories))
}

// ListOrders returns recent orders, narrowed to one customer when email is given.
func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))

	orders, err := h.Commerce.ListOrders(r.Context())
	if err != nil {
		requestLogger(r).WithError(err).Error("ListOrders upstream call failed")
		respondWithJSON(w, http.StatusOK, []json.RawMessage{})
		return
	}
	respondWithJSON(w, http.StatusOK, checkout.FilterOrdersByEmail(orders, email))
}

// CreateOrder forwards an order payload as-is.
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	created, err := h.Commerce.CreateOrder(r.Context(), json.RawMessage(body))
	if err != nil {
		h.respondWithUpstreamError(w, r, err, "Failed to create order")
		return
	}
	respondWithJSON(w, http.StatusOK, created)
}

// respondWithUpstreamError forwards an upstream rejection with its status as
// {error, details}. Transport failures become a 500.
func (h *HTTPHandler) respondWithUpstreamError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	log := requestLogger(r)
	var se *upstream.StatusError
	if errors.As(err, &se) {
		log.WithError(err).WithField("status", se.StatusCode).Warn("Upstream rejected request")
		msg := se.Message()
		if msg == "" {
			msg = fallback
		}
		var details any
		switch {
		case json.Valid(se.Body):
			details = json.RawMessage(se.Body)
		case len(se.Body) > 0:
			details = string(se.Body)
		}
		respondWithJSON(w, se.StatusCode, ErrorResponse{Error: msg, Details: details})
		return
	}
	log.WithError(err).Error("Upstream call failed")
	respondWithError(w, http.StatusInternalServerError, "Internal server error")
}
