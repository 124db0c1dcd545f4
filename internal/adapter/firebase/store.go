// Package firebase stores event collections in a Firebase Realtime Database
// (or any server with the same REST shape). Each collection is a single JSON
// document at {base}/{collection}.json that is read and replaced whole.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

// Store implements retention.Store over HTTP GET and PUT.
type Store struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewStore creates a store rooted at baseURL.
func NewStore(baseURL string, timeout time.Duration, logger *slog.Logger) *Store {
	return &Store{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (s *Store) url(collection string) string {
	return fmt.Sprintf("%s/%s.json", s.baseURL, collection)
}

// Fetch reads a collection. A missing collection (JSON null) is empty.
func (s *Store) Fetch(ctx context.Context, collection string) (domain.EventSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url(collection), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", collection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d: %s", collection, resp.StatusCode, body)
	}

	events, dropped, err := domain.DecodeEventSet(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", collection, err)
	}
	if dropped > 0 {
		s.logger.Warn("dropped malformed stored events", "collection", collection, "dropped", dropped)
	}
	return events, nil
}

// Replace overwrites a collection with events.
func (s *Store) Replace(ctx context.Context, collection string, events domain.EventSet) error {
	body, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.url(collection), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("replace %s: %w", collection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("replace %s: status %d: %s", collection, resp.StatusCode, msg)
	}
	return nil
}
