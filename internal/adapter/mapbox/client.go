package mapbox

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

const providerName = "mapbox"

// Client implements geocode.Provider using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return providerName }

// Geocode converts a place name to coordinates.
func (c *Client) Geocode(ctx context.Context, query string) (*domain.GeoPoint, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(query))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"country,region,place,locality"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapbox geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &geocode.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 || len(mapboxResp.Features[0].Center) != 2 {
		return nil, nil
	}

	center := mapboxResp.Features[0].Center
	return &domain.GeoPoint{Lat: center[1], Lon: center[0]}, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
}
