package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/couchcryptid/geomonitor-etl/internal/adapter/firebase"
	"github.com/couchcryptid/geomonitor-etl/internal/adapter/gdacs"
	"github.com/couchcryptid/geomonitor-etl/internal/adapter/geoapify"
	kafkaadapter "github.com/couchcryptid/geomonitor-etl/internal/adapter/kafka"
	"github.com/couchcryptid/geomonitor-etl/internal/adapter/mapbox"
	natsadapter "github.com/couchcryptid/geomonitor-etl/internal/adapter/nats"
	"github.com/couchcryptid/geomonitor-etl/internal/adapter/newsapi"
	"github.com/couchcryptid/geomonitor-etl/internal/adapter/nominatim"
	"github.com/couchcryptid/geomonitor-etl/internal/adapter/openrouter"
	"github.com/couchcryptid/geomonitor-etl/internal/adapter/redisstore"
	"github.com/couchcryptid/geomonitor-etl/internal/classify"
	"github.com/couchcryptid/geomonitor-etl/internal/config"
	"github.com/couchcryptid/geomonitor-etl/internal/geocode"
	"github.com/couchcryptid/geomonitor-etl/internal/job"
	"github.com/couchcryptid/geomonitor-etl/internal/location"
	"github.com/couchcryptid/geomonitor-etl/internal/observability"
	"github.com/couchcryptid/geomonitor-etl/internal/pipeline"
	"github.com/couchcryptid/geomonitor-etl/internal/retention"
)

// app holds everything the commands share. Close releases connections in
// reverse order of creation.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	readiness *job.Readiness
	deps      job.Deps
	closers   []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// newApp opens the store and publishers. Only an unusable DATASTORE_URL is
// an error; an unreachable publisher is logged and left out.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   observability.NewMetrics(),
		readiness: job.NewReadiness(),
	}

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}

	a.deps = job.Deps{
		Merger:     retention.NewMerger(store, logger, a.metrics),
		Publishers: a.openPublishers(),
		Readiness:  a.readiness,
		Logger:     logger,
		Metrics:    a.metrics,
	}
	return a, nil
}

func (a *app) openStore() (retention.Store, error) {
	u, err := url.Parse(a.cfg.DatastoreURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATASTORE_URL: %w", err)
	}
	switch u.Scheme {
	case "redis", "rediss":
		s, err := redisstore.Open(a.cfg.DatastoreURL, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, namedCloser{"redis store", s})
		a.logger.Info("datastore", "kind", "redis", "host", u.Host)
		return s, nil
	case "http", "https":
		a.logger.Info("datastore", "kind", "http", "host", u.Host)
		return firebase.NewStore(a.cfg.DatastoreURL, a.cfg.StoreTimeout, a.logger), nil
	default:
		return nil, fmt.Errorf("invalid DATASTORE_URL: unsupported scheme %q", u.Scheme)
	}
}

func (a *app) openPublishers() []job.Publisher {
	var pubs []job.Publisher
	if len(a.cfg.KafkaBrokers) > 0 {
		w := kafkaadapter.NewWriter(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, a.logger)
		a.closers = append(a.closers, namedCloser{"kafka writer", w})
		pubs = append(pubs, w)
		a.logger.Info("kafka publishing enabled", "brokers", a.cfg.KafkaBrokers, "topic", a.cfg.KafkaTopic)
	}
	if a.cfg.NATSURL != "" {
		p, err := natsadapter.Connect(a.cfg.NATSURL, a.cfg.NATSSubject, a.logger)
		if err != nil {
			a.logger.Error("nats publishing disabled", "error", err)
		} else {
			a.closers = append(a.closers, namedCloser{"nats publisher", p})
			pubs = append(pubs, p)
			a.logger.Info("nats publishing enabled", "subject", a.cfg.NATSSubject)
		}
	}
	return pubs
}

// newsJob builds the full news chain: gazetteer, caches, providers,
// classifier, resolver and pipeline.
func (a *app) newsJob() (*job.NewsJob, error) {
	cfg := a.cfg
	if err := cfg.RequireNewsAPIKey(); err != nil {
		return nil, err
	}

	gazetteer, err := location.LoadGazetteer(cfg.GazetteerPath)
	if err != nil {
		a.logger.Warn("gazetteer unavailable, keyword strategies disabled", "path", cfg.GazetteerPath, "error", err)
		gazetteer = location.NewGazetteer(nil)
	} else {
		a.logger.Info("gazetteer loaded", "path", cfg.GazetteerPath, "entries", gazetteer.Len())
	}

	var oracle classify.Oracle
	if cfg.OpenRouterKey != "" {
		oracle = openrouter.NewClient(cfg.OpenRouterKey, cfg.OpenRouterModel, cfg.OpenRouterURL, cfg.ClassifyTimeout)
	}
	classifier := classify.New(oracle, classify.OpenCache(cfg.ClassifyCachePath, a.logger), classify.Options{
		ClassifyEnabled: cfg.ClassifyEnabled(),
		LocationEnabled: cfg.LocationFallbackEnabled(),
		ClassifyTimeout: cfg.ClassifyTimeout,
		LocationTimeout: cfg.LocationTimeout,
	}, a.logger, a.metrics)

	geocoder := geocode.NewClient(
		geocode.OpenCache(cfg.GeocachePath, a.logger),
		a.providers(),
		cfg.GeocodeDelay,
		a.logger,
		a.metrics,
	)

	opts := []pipeline.Option{}
	if flags.progress && isatty.IsTerminal(os.Stderr.Fd()) {
		opts = append(opts, pipeline.WithProgress(os.Stderr))
	}
	p := pipeline.New(
		classifier,
		location.NewResolver(gazetteer, classifier, a.logger),
		geocoder,
		a.logger,
		a.metrics,
		opts...,
	)

	source := newsapi.NewClient(cfg.NewsAPIKey, cfg.NewsAPIURL, cfg.NewsQuery, cfg.NewsPageSize, cfg.FetchTimeout)
	return job.NewNewsJob(source, p, cfg.EventRetention, a.deps), nil
}

func (a *app) providers() []geocode.Provider {
	cfg := a.cfg
	providers := []geocode.Provider{
		nominatim.NewClient(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.GeocodeTimeout),
	}
	if cfg.GeoapifyKey != "" {
		providers = append(providers, geoapify.NewClient(cfg.GeoapifyKey, cfg.GeocodeTimeout))
	}
	if cfg.MapboxToken != "" {
		providers = append(providers, mapbox.NewClient(cfg.MapboxToken, cfg.GeocodeTimeout))
	}
	return providers
}

func (a *app) disasterJob() *job.DisasterJob {
	source := gdacs.NewClient(a.cfg.GDACSURL, a.cfg.FetchTimeout)
	return job.NewDisasterJob(source, a.cfg.DisasterRetention, a.deps)
}

// pushMetrics sends the run's metrics to the Pushgateway when one is set.
func (a *app) pushMetrics(ctx context.Context, command string) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	if err := observability.Push(ctx, a.cfg.PushgatewayURL, command, nil); err != nil {
		a.logger.Warn("metrics push failed", "error", err)
		return
	}
	a.logger.Debug("metrics pushed", "url", a.cfg.PushgatewayURL)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.c.Close(); err != nil {
			a.logger.Error("close error", "component", c.name, "error", err)
		}
	}
}
