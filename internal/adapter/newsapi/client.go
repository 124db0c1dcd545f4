// Package newsapi fetches recent English-language articles from the NewsAPI
// "everything" endpoint.
package newsapi

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

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

// DefaultURL is the NewsAPI search endpoint.
const DefaultURL = "https://newsapi.org/v2/everything"

// DefaultTopics are OR-ed together into the search query.
var DefaultTopics = []string{
	"geopolitics", "international relations", "war", "conflict",
	"finance", "economic crisis", "stock market",
	"technology", "AI", "semiconductor", "cyber attack",
	"natural disaster", "earthquake", "hurricane",
}

// DefaultQuery is the search expression built from DefaultTopics.
var DefaultQuery = strings.Join(DefaultTopics, " OR ")

// Client fetches one page of articles per call.
type Client struct {
	apiKey     string
	baseURL    string
	query      string
	pageSize   int
	httpClient *http.Client
}

// NewClient creates a NewsAPI client.
func NewClient(apiKey, baseURL, query string, pageSize int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if query == "" {
		query = DefaultQuery
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		query:      query,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the newest articles matching the configured query, with
// HTML removed from descriptions.
func (c *Client) Fetch(ctx context.Context) ([]domain.Article, error) {
	params := url.Values{
		"q":        {c.query},
		"language": {"en"},
		"sortBy":   {"publishedAt"},
		"pageSize": {strconv.Itoa(c.pageSize)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("newsapi error: status %d: %s", resp.StatusCode, body)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Status == "error" {
		return nil, fmt.Errorf("newsapi error: %s: %s", out.Code, out.Message)
	}

	articles := make([]domain.Article, 0, len(out.Articles))
	for _, a := range out.Articles {
		articles = append(articles, domain.Article{
			Title:       strings.TrimSpace(a.Title),
			Description: PlainText(a.Description),
			SourceName:  strings.TrimSpace(a.Source.Name),
			PublishedAt: strings.TrimSpace(a.PublishedAt),
			URL:         a.URL,
		})
	}
	return articles, nil
}

type response struct {
	Status   string    `json:"status"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

// Nullable fields decode to "".
type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}
