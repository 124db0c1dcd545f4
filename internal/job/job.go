// Package job runs the two batch passes: news ingestion and disaster
// alerts. Each run fetches, builds a fresh event set, merges it into the
// stored collection, and then hands the fresh events to any configured
// publishers.
package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
	"github.com/couchcryptid/geomonitor-etl/internal/observability"
	"github.com/couchcryptid/geomonitor-etl/internal/retention"
)

// Run status markers, also used as the "status" log attribute.
const (
	StatusOK   = "ok"
	StatusSkip = "skip"
	StatusFail = "fail"
)

// Job is one schedulable batch pass.
type Job interface {
	Name() string
	Run(ctx context.Context) Summary
}

// Merger writes fresh events into a stored collection.
type Merger interface {
	Push(ctx context.Context, collection string, fresh domain.EventSet, window time.Duration) retention.Result
}

// Publisher forwards freshly stored events to a downstream consumer.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, collection string, events domain.EventSet) error
}

// Summary describes a finished run.
type Summary struct {
	Job        string           `json:"job"`
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration"`
	Fetched    int              `json:"fetched"`
	Produced   int              `json:"produced"`
	Stored     retention.Result `json:"stored"`
	Published  []string         `json:"published,omitempty"`
	Status     string           `json:"status"`
	FetchError string           `json:"fetch_error,omitempty"`
}

// Deps are the collaborators shared by both jobs.
type Deps struct {
	Merger     Merger
	Publishers []Publisher
	Readiness  *Readiness
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

// runner holds the merge and publish half of a job.
type runner struct {
	name       string
	collection string
	window     time.Duration
	Deps
}

func newRunner(name, collection string, window time.Duration, deps Deps) runner {
	if deps.Readiness == nil {
		deps.Readiness = NewReadiness()
	}
	return runner{name: name, collection: collection, window: window, Deps: deps}
}

func (r *runner) begin() (Summary, *slog.Logger) {
	s := Summary{Job: r.name, RunID: uuid.New().String(), StartedAt: domain.Now()}
	r.Metrics.JobRunning.WithLabelValues(r.name).Set(1)
	logger := r.Logger.With("job", r.name, "run_id", s.RunID)
	logger.Info("run started")
	return s, logger
}

func (r *runner) end(s *Summary, logger *slog.Logger) {
	finished := domain.Now()
	s.Duration = finished.Sub(s.StartedAt)

	r.Metrics.JobRunning.WithLabelValues(r.name).Set(0)
	r.Metrics.RunDuration.WithLabelValues(r.name).Observe(s.Duration.Seconds())
	r.Metrics.LastRunTimestamp.WithLabelValues(r.name).Set(float64(finished.Unix()))
	r.Readiness.Record(*s)

	logger.Info("run finished",
		"fetched", s.Fetched,
		"produced", s.Produced,
		"stored", s.Stored.Total,
		"published", len(s.Published),
		"duration", s.Duration,
		"status", s.Status,
	)
}

// deliver merges fresh into the collection and, once the write succeeded,
// publishes it. An empty batch leaves the store untouched.
func (r *runner) deliver(ctx context.Context, logger *slog.Logger, fresh domain.EventSet, s *Summary) {
	s.Produced = len(fresh)
	r.Metrics.EventsProduced.WithLabelValues(r.collection).Add(float64(len(fresh)))

	if len(fresh) == 0 {
		logger.Info("no new events to push", "collection", r.collection, "status", StatusSkip)
		s.Status = StatusSkip
		return
	}

	s.Stored = r.Merger.Push(ctx, r.collection, fresh, r.window)
	if !s.Stored.Written {
		s.Status = StatusFail
		return
	}
	s.Status = StatusOK

	for _, p := range r.Publishers {
		if err := p.Publish(ctx, r.collection, fresh); err != nil {
			r.Metrics.Published.WithLabelValues(p.Name(), "error").Inc()
			logger.Error("publish failed", "publisher", p.Name(), "error", err, "status", StatusFail)
			continue
		}
		r.Metrics.Published.WithLabelValues(p.Name(), "success").Inc()
		s.Published = append(s.Published, p.Name())
		logger.Debug("events published", "publisher", p.Name(), "count", len(fresh))
	}
}

func (r *runner) fetchFailed(logger *slog.Logger, s *Summary, err error) {
	s.Status = StatusFail
	s.FetchError = err.Error()
	logger.Error("fetch failed", "error", err, "status", StatusFail)
}
