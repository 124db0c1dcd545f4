package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

// ArticleSource returns the current batch of news articles.
type ArticleSource interface {
	Fetch(ctx context.Context) ([]domain.Article, error)
}

// Processor turns articles into keyed events.
type Processor interface {
	Process(ctx context.Context, articles []domain.Article) domain.EventSet
}

// NewsJob fetches articles, runs them through the pipeline, and merges the
// result into the news collection.
type NewsJob struct {
	runner
	source    ArticleSource
	processor Processor
}

// NewNewsJob creates the news job with the given retention window.
func NewNewsJob(source ArticleSource, processor Processor, window time.Duration, deps Deps) *NewsJob {
	return &NewsJob{
		runner:    newRunner("news", domain.NewsCollection, window, deps),
		source:    source,
		processor: processor,
	}
}

// Name returns "news".
func (j *NewsJob) Name() string { return j.name }

// Run performs one pass. It never fails the process; problems are logged
// and reflected in the summary status.
func (j *NewsJob) Run(ctx context.Context) Summary {
	s, logger := j.begin()
	j.run(ctx, logger, &s)
	j.end(&s, logger)
	return s
}

func (j *NewsJob) run(ctx context.Context, logger *slog.Logger, s *Summary) {
	articles, err := j.source.Fetch(ctx)
	if err != nil {
		j.fetchFailed(logger, s, err)
		return
	}
	s.Fetched = len(articles)
	j.Metrics.ArticlesFetched.Add(float64(len(articles)))
	logger.Info("articles fetched", "count", len(articles))

	fresh := j.processor.Process(ctx, articles)
	j.deliver(ctx, logger, fresh, s)
}
