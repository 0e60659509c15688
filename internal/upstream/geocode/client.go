// Package geocode resolves free-text searches and map pins through a
// Nominatim-compatible geocoder for the address picker.
package geocode

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

const serviceName = "geocoder"

type Config struct {
	BaseURL string
	// UserAgent identifies the application as the public instance's usage policy requires.
	UserAgent string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config, httpClient *http.Client) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient}
}

type place struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func (p place) location() (domain.Location, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.Location{}, errors.Wrapf(err, "parse lat %q", p.Lat)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.Location{}, errors.Wrapf(err, "parse lon %q", p.Lon)
	}
	return domain.Location{DisplayName: p.DisplayName, Lat: lat, Lng: lng}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	req, err := upstream.NewJSONRequest(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	return upstream.Do(c.http, serviceName, req, out)
}

// Search returns the places matching a free-text query. Results with
// unreadable coordinates are skipped.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Location, error) {
	params := url.Values{}
	params.Set("q", query)

	var places []place
	if err := c.get(ctx, "/search", params, &places); err != nil {
		return nil, errors.Wrap(err, "search")
	}
	out := make([]domain.Location, 0, len(places))
	for _, p := range places {
		loc, err := p.location()
		if err != nil {
			continue
		}
		out = append(out, loc)
	}
	return out, nil
}

// Reverse names the place at a coordinate.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (domain.Location, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	var p place
	if err := c.get(ctx, "/reverse", params, &p); err != nil {
		return domain.Location{}, errors.Wrap(err, "reverse")
	}
	loc, err := p.location()
	if err != nil {
		return domain.Location{}, errors.Wrap(err, "reverse")
	}
	return loc, nil
}
