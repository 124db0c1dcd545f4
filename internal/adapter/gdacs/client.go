// Package gdacs reads tropical cyclone alerts from the Global Disaster Alert
// and Coordination System. Both the GeoJSON event API and the RSS feed are
// understood; the format is detected from the response body.
package gdacs

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

// DefaultURL is the GDACS GeoJSON endpoint filtered to tropical cyclones.
const DefaultURL = "https://www.gdacs.org/gdacsapi/api/eventsgeojson?eventtype=TC"

// Alert is one active cyclone.
type Alert struct {
	ID         string
	Name       string
	AlertLevel string
	FromDate   string
	ToDate     string
	Link       string
	Lat        float64
	Lon        float64
}

// Client fetches the current alert list.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a GDACS client for url.
func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{url: url, httpClient: &http.Client{Timeout: timeout}}
}

// Fetch returns every alert that carries coordinates.
func (c *Client) Fetch(ctx context.Context) ([]Alert, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/rss+xml;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gdacs request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gdacs error: status %d: %s", resp.StatusCode, truncate(body, 512))
	}

	return Parse(body)
}

// FetchEvents fetches the feed and maps it with [ToEvents].
func (c *Client) FetchEvents(ctx context.Context, runAt time.Time) (domain.EventSet, error) {
	alerts, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return ToEvents(alerts, runAt), nil
}

// Parse decodes a GeoJSON FeatureCollection or an RSS document.
func Parse(body []byte) ([]Alert, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '<' {
		return parseRSS(trimmed)
	}
	return parseGeoJSON(trimmed)
}

type featureCollection struct {
	Features []struct {
		Geometry struct {
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			EventID    json.Number `json:"eventid"`
			EventName  string      `json:"eventname"`
			Name       string      `json:"name"`
			AlertLevel string      `json:"alertlevel"`
			FromDate   string      `json:"fromdate"`
			ToDate     string      `json:"todate"`
			URL        struct {
				Report string `json:"report"`
			} `json:"url"`
		} `json:"properties"`
	} `json:"features"`
}

func parseGeoJSON(body []byte) ([]Alert, error) {
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	alerts := make([]Alert, 0, len(fc.Features))
	for _, f := range fc.Features {
		// Point geometries only; polygons and lines are skipped.
		var coords []float64
		if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil || len(coords) < 2 {
			continue
		}
		p := f.Properties
		name := p.EventName
		if name == "" {
			name = p.Name
		}
		alerts = append(alerts, Alert{
			ID:         p.EventID.String(),
			Name:       name,
			AlertLevel: p.AlertLevel,
			FromDate:   p.FromDate,
			ToDate:     p.ToDate,
			Link:       p.URL.Report,
			Lon:        coords[0],
			Lat:        coords[1],
		})
	}
	return alerts, nil
}

type rss struct {
	Items []rssItem `xml:"channel>item"`
}

// Tags without a namespace match the local name in any namespace, so
// gdacs:eventid and geo:lat both decode.
type rssItem struct {
	Title      string `xml:"title"`
	Link       string `xml:"link"`
	EventID    string `xml:"eventid"`
	EventName  string `xml:"eventname"`
	AlertLevel string `xml:"alertlevel"`
	FromDate   string `xml:"fromdate"`
	ToDate     string `xml:"todate"`
	Lat        string `xml:"lat"`
	Long       string `xml:"long"`
	Point      struct {
		Lat  string `xml:"lat"`
		Long string `xml:"long"`
	} `xml:"Point"`
}

func parseRSS(body []byte) ([]Alert, error) {
	var doc rss
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}

	alerts := make([]Alert, 0, len(doc.Items))
	for _, it := range doc.Items {
		latStr, lonStr := it.Lat, it.Long
		if latStr == "" || lonStr == "" {
			latStr, lonStr = it.Point.Lat, it.Point.Long
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if errLat != nil || errLon != nil {
			continue
		}

		name := strings.TrimSpace(it.EventName)
		if name == "" {
			name = strings.TrimSpace(it.Title)
		}
		alerts = append(alerts, Alert{
			ID:         strings.TrimSpace(it.EventID),
			Name:       name,
			AlertLevel: strings.TrimSpace(it.AlertLevel),
			FromDate:   strings.TrimSpace(it.FromDate),
			ToDate:     strings.TrimSpace(it.ToDate),
			Link:       strings.TrimSpace(it.Link),
			Lat:        lat,
			Lon:        lon,
		})
	}
	return alerts, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
