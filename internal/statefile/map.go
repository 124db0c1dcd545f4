package statefile

import (
	"maps"
	"sync"
)

// Map is a string-keyed map backed by a file. Every Put is written through
// to disk before it returns. A Map with an empty path lives only in memory.
type Map[V any] struct {
	mu      sync.Mutex
	path    string
	entries map[string]V
}

// Open loads the map stored at path. A missing file yields an empty map and
// no error; a malformed file yields an empty map and the decode error, so
// callers can warn and carry on.
func Open[V any](path string) (*Map[V], error) {
	m := &Map[V]{path: path, entries: make(map[string]V)}
	if path == "" {
		return m, nil
	}

	loaded := make(map[string]V)
	if err := Load(path, &loaded); err != nil {
		if IsNotExist(err) {
			return m, nil
		}
		return m, err
	}
	if loaded != nil {
		m.entries = loaded
	}
	return m, nil
}

// NewMemory returns a Map that is never persisted.
func NewMemory[V any]() *Map[V] {
	return &Map[V]{entries: make(map[string]V)}
}

// Get returns the value stored under key.
func (m *Map[V]) Get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok
}

// Put stores value under key and persists the whole map. The in-memory entry
// is kept even when the write fails.
func (m *Map[V]) Put(key string, value V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	if m.path == "" {
		return nil
	}
	return Save(m.path, m.entries)
}

// Len returns the number of entries.
func (m *Map[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Snapshot returns a copy of all entries.
func (m *Map[V]) Snapshot() map[string]V {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.entries)
}

// Path returns the backing file, or "" for memory-only maps.
func (m *Map[V]) Path() string {
	return m.path
}
