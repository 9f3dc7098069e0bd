package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mealroute/lunchbox-backend/pkg/config"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

// Client wraps a Nominatim-compatible geocoding API. It resolves free-form
// addresses to coordinates so routes can be priced by distance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	country    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a geocoding client from configuration.
func NewClient(cfg config.GeocoderConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("geocoder base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  cfg.UserAgent,
		country:    cfg.Country,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Geocode resolves a free-form address to coordinates. It returns the first
// match or a NOT_FOUND error when the address cannot be resolved.
func (c *Client) Geocode(ctx context.Context, address string) (*LatLng, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "geocoder client not configured")
	}
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}

	query := url.Values{}
	query.Set("q", trimmed)
	query.Set("format", "jsonv2")
	query.Set("limit", "1")
	if c.country != "" {
		query.Set("countrycodes", c.country)
	}

	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build geocode request")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute geocode request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"geocode request failed",
		)
	}

	var apiResp []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode geocode response")
	}
	if len(apiResp) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address could not be geocoded")
	}

	lat, err := strconv.ParseFloat(apiResp[0].Lat, 64)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse geocode latitude")
	}
	lng, err := strconv.ParseFloat(apiResp[0].Lon, 64)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse geocode longitude")
	}

	return &LatLng{Latitude: lat, Longitude: lng}, nil
}
