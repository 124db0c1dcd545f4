// Package geocode turns place names into coordinates through a persistent
// cache and an ordered list of providers.
package geocode

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
	"github.com/couchcryptid/geomonitor-etl/internal/observability"
)

// Provider is a single geocoding backend. A nil point with a nil error means
// the provider found nothing.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*domain.GeoPoint, error)
}

// Client resolves names against the cache first and the providers second.
// The first provider is called only after a fixed delay, which keeps the
// public Nominatim instance within its one-request-per-second policy.
type Client struct {
	cache     *Cache
	providers []Provider
	delay     time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithClock replaces the clock used for the pre-call delay.
func WithClock(c clockwork.Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

// NewClient creates a geocoder. Providers are tried in the order given.
func NewClient(cache *Cache, providers []Provider, delay time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Client {
	c := &Client{
		cache:     cache,
		providers: providers,
		delay:     delay,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode returns coordinates for name, or nil when every provider fails.
// Failures are not cached, so a later run will try again.
func (c *Client) Geocode(ctx context.Context, name string) *domain.GeoPoint {
	if domain.NormalizeName(name) == "" {
		return nil
	}

	if p, ok := c.cache.Get(name); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return &p
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	if len(c.providers) == 0 {
		return nil
	}
	if !c.wait(ctx) {
		return nil
	}

	for _, provider := range c.providers {
		point := c.try(ctx, provider, name)
		if point == nil {
			continue
		}
		c.cache.Put(name, *point)
		c.logger.Debug("geocoded", "name", name, "provider", provider.Name(), "lat", point.Lat, "lon", point.Lon)
		return point
	}

	c.logger.Info("geocode failed", "name", name, "status", "skip")
	return nil
}

func (c *Client) try(ctx context.Context, provider Provider, name string) *domain.GeoPoint {
	start := time.Now()
	point, err := provider.Geocode(ctx, name)
	c.metrics.GeocodeAPIDuration.WithLabelValues(provider.Name()).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues(provider.Name(), "error").Inc()
		c.logger.Warn("geocode provider failed", "provider", provider.Name(), "name", name, "error", err)
		return nil
	case point == nil || !point.Valid():
		c.metrics.GeocodeRequests.WithLabelValues(provider.Name(), "empty").Inc()
		return nil
	}
	c.metrics.GeocodeRequests.WithLabelValues(provider.Name(), "success").Inc()
	return point
}

// wait blocks for the configured delay. It reports false if ctx ends first.
func (c *Client) wait(ctx context.Context) bool {
	if c.delay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(c.delay):
		return true
	}
}
