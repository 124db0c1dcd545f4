// Package nominatim geocodes place names against an OpenStreetMap Nominatim
// server. The public instance requires a descriptive User-Agent and at most
// one request per second; the caller enforces the rate.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
	"github.com/couchcryptid/geomonitor-etl/internal/geocode"
)

const providerName = "nominatim"

// Client implements geocode.Provider.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a Nominatim client rooted at baseURL
// (e.g. https://nominatim.openstreetmap.org).
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return providerName }

// Geocode returns the top search hit for query.
func (c *Client) Geocode(ctx context.Context, query string) (*domain.GeoPoint, error) {
	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &geocode.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(places) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lat %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lon %q: %w", places[0].Lon, err)
	}
	return &domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

// Nominatim returns coordinates as decimal strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
