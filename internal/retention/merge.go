// Package retention reconciles a fresh batch of events with the collection
// already in the datastore. Stored events older than the retention window are
// dropped, fresh events are added, and the result replaces the collection.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
	"github.com/couchcryptid/geomonitor-etl/internal/observability"
)

// Store reads and writes whole collections.
type Store interface {
	Fetch(ctx context.Context, collection string) (domain.EventSet, error)
	Replace(ctx context.Context, collection string, events domain.EventSet) error
}

// Stats describes one merge.
type Stats struct {
	Existing int // entries read from the store
	Kept     int // existing entries inside the window
	Expired  int // existing entries dropped as old or unparseable
	Fresh    int
	Total    int
}

// Merge keeps the existing events whose timestamp parses and is no older
// than window relative to now, then overlays fresh. Fresh events win on key
// collisions. Events stamped in the future are kept.
func Merge(existing, fresh domain.EventSet, window time.Duration, now time.Time) domain.EventSet {
	merged, _ := merge(existing, fresh, window, now)
	return merged
}

func merge(existing, fresh domain.EventSet, window time.Duration, now time.Time) (domain.EventSet, Stats) {
	stats := Stats{Existing: len(existing), Fresh: len(fresh)}
	merged := make(domain.EventSet, len(existing)+len(fresh))

	for key, evt := range existing {
		ts, err := evt.Time()
		if err != nil || now.Sub(ts) > window {
			stats.Expired++
			continue
		}
		merged[key] = evt
		stats.Kept++
	}
	for key, evt := range fresh {
		merged[key] = evt
	}
	stats.Total = len(merged)
	return merged, stats
}

// Result is the outcome of a Push.
type Result struct {
	Stats
	Written bool
}

// Merger runs the fetch, merge, replace cycle against a Store.
type Merger struct {
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewMerger creates a Merger.
func NewMerger(store Store, logger *slog.Logger, metrics *observability.Metrics) *Merger {
	return &Merger{store: store, logger: logger, metrics: metrics}
}

// Push merges fresh into the stored collection and writes the result back.
// A failed read is treated as an empty collection and a failed write is
// logged; neither is returned to the caller and neither is retried.
func (m *Merger) Push(ctx context.Context, collection string, fresh domain.EventSet, window time.Duration) Result {
	existing, err := m.store.Fetch(ctx, collection)
	if err != nil {
		m.logger.Warn("could not read stored events, starting from empty", "collection", collection, "error", err)
		existing = domain.EventSet{}
	}

	merged, stats := merge(existing, fresh, window, domain.Now())
	result := Result{Stats: stats}

	if err := m.store.Replace(ctx, collection, merged); err != nil {
		m.metrics.StoreWrites.WithLabelValues(collection, "error").Inc()
		m.logger.Error("could not write merged events", "collection", collection,
			"total", stats.Total, "error", err, "status", "fail")
		return result
	}

	result.Written = true
	m.metrics.StoreWrites.WithLabelValues(collection, "success").Inc()
	m.metrics.StoredEvents.WithLabelValues(collection).Set(float64(stats.Total))
	m.logger.Info("events merged",
		"collection", collection,
		"existing", stats.Existing,
		"kept", stats.Kept,
		"expired", stats.Expired,
		"fresh", stats.Fresh,
		"total", stats.Total,
		"status", "ok",
	)
	return result
}
