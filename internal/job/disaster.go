package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

// DisasterSource returns the active disaster alerts as events stamped runAt.
type DisasterSource interface {
	FetchEvents(ctx context.Context, runAt time.Time) (domain.EventSet, error)
}

// DisasterJob imports active tropical cyclones into the hurricane collection.
type DisasterJob struct {
	runner
	source DisasterSource
}

// NewDisasterJob creates the disaster job with the given retention window.
func NewDisasterJob(source DisasterSource, window time.Duration, deps Deps) *DisasterJob {
	return &DisasterJob{
		runner: newRunner("disasters", domain.DisasterCollection, window, deps),
		source: source,
	}
}

// Name returns "disasters".
func (j *DisasterJob) Name() string { return j.name }

// Run performs one pass.
func (j *DisasterJob) Run(ctx context.Context) Summary {
	s, logger := j.begin()
	j.run(ctx, logger, &s)
	j.end(&s, logger)
	return s
}

func (j *DisasterJob) run(ctx context.Context, logger *slog.Logger, s *Summary) {
	fresh, err := j.source.FetchEvents(ctx, s.StartedAt)
	if err != nil {
		j.fetchFailed(logger, s, err)
		return
	}
	s.Fetched = len(fresh)
	logger.Info("alerts fetched", "count", len(fresh))

	j.deliver(ctx, logger, fresh, s)
}
