package job

import (
	"context"
	"errors"
	"maps"
	"sync"
	"sync/atomic"
)

var errNoRunYet = errors.New("no run has completed yet")

// Readiness tracks the last summary of each job. The service counts as ready
// once any run has completed, whatever its status.
type Readiness struct {
	ready atomic.Bool
	mu    sync.Mutex
	last  map[string]Summary
}

// NewReadiness creates an empty tracker.
func NewReadiness() *Readiness {
	return &Readiness{last: make(map[string]Summary)}
}

// Record stores s as the latest run of its job.
func (r *Readiness) Record(s Summary) {
	r.mu.Lock()
	r.last[s.Job] = s
	r.mu.Unlock()
	r.ready.Store(true)
}

// CheckReadiness implements the readiness probe.
func (r *Readiness) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errNoRunYet
	}
	return nil
}

// LastRuns returns a copy of the latest summary per job.
func (r *Readiness) LastRuns() map[string]Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.last)
}
