package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
	"github.com/couchcryptid/geomonitor-etl/internal/location"
	"github.com/couchcryptid/geomonitor-etl/internal/observability"
)

// Classifier judges whether and how an article should be shown.
type Classifier interface {
	Classify(ctx context.Context, a domain.Article) domain.Classification
}

// Resolver extracts a place name from an article.
type Resolver interface {
	Resolve(ctx context.Context, a domain.Article) (location.Resolution, bool)
}

// Geocoder turns a place name into coordinates, or nil.
type Geocoder interface {
	Geocode(ctx context.Context, name string) *domain.GeoPoint
}

// Skip reasons, also used as metric labels.
const (
	SkipDenylist   = "denylist"
	SkipHidden     = "hidden"
	SkipNoLocation = "no_location"
	SkipNoGeocode  = "no_geocode"
)

// Pipeline turns fetched articles into geolocated events. Articles are
// handled one at a time; a failure on one never stops the batch.
type Pipeline struct {
	classifier Classifier
	resolver   Resolver
	geocoder   Geocoder
	denylist   []string
	progress   io.Writer
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDenylist replaces the default denylist.
func WithDenylist(terms []string) Option {
	return func(p *Pipeline) { p.denylist = terms }
}

// WithProgress renders a progress bar to w while a batch is processed.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) { p.progress = w }
}

// New creates a Pipeline with the given stages and observability.
func New(c Classifier, r Resolver, g Geocoder, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: c,
		resolver:   r,
		geocoder:   g,
		denylist:   DefaultDenylist,
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs every article through denylist, classification, location
// resolution, and geocoding, returning the events that survived keyed by
// "news_<run seconds>_<index in batch>".
func (p *Pipeline) Process(ctx context.Context, articles []domain.Article) domain.EventSet {
	runAt := domain.Now()
	events := make(domain.EventSet, len(articles))
	bar := p.newBar(len(articles))

	for i, article := range articles {
		if ctx.Err() != nil {
			p.logger.Warn("batch interrupted", "processed", i, "total", len(articles), "reason", ctx.Err())
			break
		}

		evt, reason := p.processArticle(ctx, article, runAt)
		if bar != nil {
			_ = bar.Add(1)
		}
		if reason != "" {
			p.metrics.ArticlesSkipped.WithLabelValues(reason).Inc()
			p.logger.Debug("article skipped", "title", article.Title, "reason", reason, "status", "skip")
			continue
		}

		key := domain.EventKey(domain.NewsPrefix, runAt, i)
		events[key] = evt
		p.logger.Info("event created", "key", key, "title", article.Title,
			"topic", evt.Topic, "importance", evt.Importance, "status", "ok")
	}

	if bar != nil {
		_ = bar.Finish()
	}
	return events
}

// processArticle returns the event for one article, or the reason it was
// skipped.
func (p *Pipeline) processArticle(ctx context.Context, article domain.Article, runAt time.Time) (domain.Event, string) {
	if term, hit := Denied(article, p.denylist); hit {
		p.logger.Debug("denylisted", "title", article.Title, "term", term)
		return domain.Event{}, SkipDenylist
	}

	cls := p.classifier.Classify(ctx, article)
	if !cls.Show {
		return domain.Event{}, SkipHidden
	}

	res, ok := p.resolver.Resolve(ctx, article)
	if !ok {
		return domain.Event{}, SkipNoLocation
	}
	p.metrics.LocationResolved.WithLabelValues(res.Strategy).Inc()

	point := p.geocoder.Geocode(ctx, res.Name)
	if point == nil {
		return domain.Event{}, SkipNoGeocode
	}

	return NewEvent(article, cls, *point, runAt), ""
}

func (p *Pipeline) newBar(n int) *progressbar.ProgressBar {
	if p.progress == nil || n == 0 {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(p.progress),
		progressbar.OptionSetDescription("articles"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
