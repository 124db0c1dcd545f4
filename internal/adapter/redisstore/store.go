// Package redisstore keeps each event collection as one JSON string value in
// Redis, mirroring the whole-document semantics of the HTTP store.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

// KeyPrefix namespaces collection keys.
const KeyPrefix = "geomonitor:"

// Store implements retention.Store on a Redis client.
type Store struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewStore wraps an existing client.
func NewStore(client redis.UniversalClient, logger *slog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// Open parses a redis:// URL and returns a connected store.
func Open(rawURL string, logger *slog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewStore(redis.NewClient(opts), logger), nil
}

// Fetch reads a collection. A missing key is an empty collection.
func (s *Store) Fetch(ctx context.Context, collection string) (domain.EventSet, error) {
	data, err := s.client.Get(ctx, KeyPrefix+collection).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.EventSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", collection, err)
	}

	events, dropped, err := domain.DecodeEventSet(data)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", collection, err)
	}
	if dropped > 0 {
		s.logger.Warn("dropped malformed stored events", "collection", collection, "dropped", dropped)
	}
	return events, nil
}

// Replace overwrites a collection with events.
func (s *Store) Replace(ctx context.Context, collection string, events domain.EventSet) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	if err := s.client.Set(ctx, KeyPrefix+collection, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", collection, err)
	}
	return nil
}

// Close releases the client connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// CheckReadiness pings the server.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
