// Package cms talks to the headless content backend that stores reviews,
// saved addresses and user details.
package cms

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"storefront-service/internal/domain"
	"storefront-service/internal/upstream"
)

const (
	serviceName        = "cms"
	DefaultReviewLimit = 10
)

// Config locates the content backend.
type Config struct {
	BaseURL string
	APIKey  string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config, httpClient *http.Client) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient}
}

// list is the paginated envelope the content backend wraps collections in.
type list[T any] struct {
	Docs       []T `json:"docs"`
	TotalDocs  int `json:"totalDocs"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// where adds an equality filter in the backend's where[field][equals]=value syntax.
func where(params url.Values, field, value string) {
	params.Set("where["+field+"][equals]", value)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u := c.cfg.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := upstream.NewJSONRequest(ctx, method, u, body)
	if err != nil {
		return err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	return upstream.Do(c.http, serviceName, req, out)
}

// ListApprovedReviews returns up to limit approved reviews for a product.
func (c *Client) ListApprovedReviews(ctx context.Context, productID string, limit int) ([]domain.Review, error) {
	if limit <= 0 {
		limit = DefaultReviewLimit
	}
	params := url.Values{}
	where(params, "product", productID)
	where(params, "status", domain.ReviewStatusApproved)
	params.Set("limit", strconv.Itoa(limit))

	var resp list[domain.Review]
	if err := c.do(ctx, http.MethodGet, "/api/reviews", params, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}
	return nonNil(resp.Docs), nil
}

// UpsertReview creates the user's review for a product, or updates the one
// they already wrote. Either way the review goes back to pending moderation.
func (c *Client) UpsertReview(ctx context.Context, r domain.Review) (domain.Review, error) {
	params := url.Values{}
	where(params, "product", r.Product)
	where(params, "user", r.User)
	params.Set("limit", "1")

	var existing list[domain.Review]
	if err := c.do(ctx, http.MethodGet, "/api/reviews", params, nil, &existing); err != nil {
		return domain.Review{}, errors.Wrap(err, "find review")
	}

	r.Status = domain.ReviewStatusPending
	r.CreatedAt = nil

	var saved struct {
		Doc domain.Review `json:"doc"`
	}
	if len(existing.Docs) > 0 {
		id := existing.Docs[0].ID
		r.ID = ""
		if err := c.do(ctx, http.MethodPatch, "/api/reviews/"+url.PathEscape(id), nil, r, &saved); err != nil {
			return domain.Review{}, errors.Wrap(err, "update review")
		}
		if saved.Doc.ID == "" {
			saved.Doc = r
			saved.Doc.ID = id
		}
		return saved.Doc, nil
	}

	if err := c.do(ctx, http.MethodPost, "/api/reviews", nil, r, &saved); err != nil {
		return domain.Review{}, errors.Wrap(err, "create review")
	}
	if saved.Doc.ID == "" {
		saved.Doc = r
	}
	return saved.Doc, nil
}

// ListAddresses returns the saved addresses of a user.
func (c *Client) ListAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	params := url.Values{}
	where(params, "user", userID)

	var resp list[domain.Address]
	if err := c.do(ctx, http.MethodGet, "/api/addresses", params, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "list addresses")
	}
	return nonNil(resp.Docs), nil
}

// CreateAddress saves a new address and returns it as stored.
func (c *Client) CreateAddress(ctx context.Context, a domain.Address) (domain.Address, error) {
	var resp struct {
		Message string          `json:"message"`
		Address *domain.Address `json:"address"`
		Doc     *domain.Address `json:"doc"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/addresses", nil, a, &resp); err != nil {
		return domain.Address{}, errors.Wrap(err, "create address")
	}
	switch {
	case resp.Address != nil:
		return *resp.Address, nil
	case resp.Doc != nil:
		return *resp.Doc, nil
	}
	return a, nil
}

// SaveUserDetails stores the name and address entered after the first sign-in.
func (c *Client) SaveUserDetails(ctx context.Context, phone, name, address string) (domain.UserProfile, error) {
	body := map[string]string{"phone": phone, "name": name, "address": address}
	var resp struct {
		Message string              `json:"message"`
		User    *domain.UserProfile `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/saveUserDetails", nil, body, &resp); err != nil {
		return domain.UserProfile{}, errors.Wrap(err, "save user details")
	}
	if resp.User == nil {
		return domain.UserProfile{Phone: phone, Name: name, Address: address}, nil
	}
	return *resp.User, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
