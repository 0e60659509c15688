// Package woocommerce is a client for the commerce backend's REST API
// (wp-json/wc/v3). Credentials travel as consumer_key/consumer_secret query
// parameters and never leave the server.
package woocommerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"storefront-service/internal/domain"
	"storefront-service/internal/upstream"
)

const (
	serviceName    = "woocommerce"
	apiPrefix      = "/wp-json/wc/v3"
	MaxPerPage     = 100
	defaultPerPage = 100
)

// Config holds the commerce backend location and API credentials.
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config, httpClient *http.Client) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient}
}

// ProductQuery narrows the product listing. Zero values mean "all published".
type ProductQuery struct {
	Slug  string
	Limit int
}

func (c *Client) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("consumer_key", c.cfg.ConsumerKey)
	params.Set("consumer_secret", c.cfg.ConsumerSecret)
	return c.cfg.BaseURL + apiPrefix + path + "?" + params.Encode()
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := upstream.NewJSONRequest(ctx, http.MethodGet, c.endpoint(path, params), nil)
	if err != nil {
		return err
	}
	return upstream.Do(c.http, serviceName, req, out)
}

// ListProducts returns published products, normalized for the storefront.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) ([]domain.Product, error) {
	perPage := q.Limit
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = defaultPerPage
	}
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("status", "publish")
	if q.Slug != "" {
		params.Set("slug", q.Slug)
	}

	var raw []wcProduct
	if err := c.get(ctx, "/products", params, &raw); err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	products := make([]domain.Product, 0, len(raw))
	for _, p := range raw {
		products = append(products, normalizeProduct(p))
	}
	return products, nil
}

// ListCategories returns every non-hidden product category.
func (c *Client) ListCategories(ctx context.Context) ([]domain.CategorySummary, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(MaxPerPage))
	params.Set("hide_empty", "true")

	var raw []wcProductCategory
	if err := c.get(ctx, "/products/categories", params, &raw); err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	out := make([]domain.CategorySummary, 0, len(raw))
	for _, cat := range raw {
		out = append(out, normalizeCategory(cat))
	}
	return out, nil
}

// ListOrders returns the most recent orders, newest first, as raw JSON objects.
func (c *Client) ListOrders(ctx context.Context) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(MaxPerPage))
	params.Set("orderby", "date")
	params.Set("order", "desc")

	var orders []json.RawMessage
	if err := c.get(ctx, "/orders", params, &orders); err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if orders == nil {
		orders = []json.RawMessage{}
	}
	return orders, nil
}

// CreateOrder posts an order payload and returns the created order.
// A rejected order surfaces as *upstream.StatusError (use errors.As).
func (c *Client) CreateOrder(ctx context.Context, order any) (json.RawMessage, error) {
	req, err := upstream.NewJSONRequest(ctx, http.MethodPost, c.endpoint("/orders", nil), order)
	if err != nil {
		return nil, err
	}
	var created json.RawMessage
	if err := upstream.Do(c.http, serviceName, req, &created); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return created, nil
}
