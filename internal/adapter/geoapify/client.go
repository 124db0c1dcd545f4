// Package geoapify geocodes place names with the Geoapify search API.
package geoapify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
	"github.com/couchcryptid/geomonitor-etl/internal/geocode"
)

const providerName = "geoapify"

// Client implements geocode.Provider.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Geoapify client.
func NewClient(apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    "https://api.geoapify.com/v1/geocode/search",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return providerName }

// Geocode returns the best match for query.
func (c *Client) Geocode(ctx context.Context, query string) (*domain.GeoPoint, error) {
	params := url.Values{
		"text":   {query},
		"limit":  {"1"},
		"format": {"json"},
		"apiKey": {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geoapify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &geocode.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Results) == 0 {
		return nil, nil
	}
	r := out.Results[0]
	return &domain.GeoPoint{Lat: r.Lat, Lon: r.Lon}, nil
}

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Formatted string  `json:"formatted"`
}
