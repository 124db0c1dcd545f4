package geocode

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
	"github.com/couchcryptid/geomonitor-etl/internal/statefile"
)

// Cache maps normalized place names to coordinates. Entries are never evicted
// and every insert is flushed to the backing file.
type Cache struct {
	entries *statefile.Map[domain.GeoPoint]
	logger  *slog.Logger
}

// OpenCache loads the cache at path. A missing or unreadable file starts an
// empty cache; the latter is logged.
func OpenCache(path string, logger *slog.Logger) *Cache {
	entries, err := statefile.Open[domain.GeoPoint](path)
	if err != nil {
		logger.Warn("geocode cache unreadable, starting empty", "path", path, "error", err)
	}
	return NewCache(entries, logger)
}

// NewCache wraps an already opened map.
func NewCache(entries *statefile.Map[domain.GeoPoint], logger *slog.Logger) *Cache {
	return &Cache{entries: entries, logger: logger}
}

// NewMemoryCache returns a cache that is never written to disk.
func NewMemoryCache(logger *slog.Logger) *Cache {
	return &Cache{entries: statefile.NewMemory[domain.GeoPoint](), logger: logger}
}

// Get looks up a place name after normalization.
func (c *Cache) Get(name string) (domain.GeoPoint, bool) {
	return c.entries.Get(domain.NormalizeName(name))
}

// Put stores a point under the normalized name and flushes the cache. A
// failed flush is logged; the entry stays available for the rest of the run.
func (c *Cache) Put(name string, p domain.GeoPoint) {
	if err := c.entries.Put(domain.NormalizeName(name), p); err != nil {
		c.logger.Error("geocode cache write failed", "path", c.entries.Path(), "error", err)
	}
}

// Len returns the number of cached places.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Problems lists entries that are not usable coordinates.
func (c *Cache) Problems() []string {
	snap := c.entries.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var problems []string
	for _, k := range keys {
		p := snap[k]
		switch {
		case math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0):
			problems = append(problems, fmt.Sprintf("%q: non-finite point", k))
		case !p.Valid():
			problems = append(problems, fmt.Sprintf("%q: point out of bounds (%g, %g)", k, p.Lat, p.Lon))
		}
		if domain.NormalizeName(k) != k {
			problems = append(problems, fmt.Sprintf("%q: key is not normalized", k))
		}
	}
	return problems
}
