package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geomonitor"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// geomonitor jobs.
type Metrics struct {
	ArticlesFetched prometheus.Counter
	ArticlesSkipped *prometheus.CounterVec // labels: reason={denylist,hidden,no_location,no_geocode}
	EventsProduced  *prometheus.CounterVec // labels: collection

	LocationResolved *prometheus.CounterVec // labels: strategy

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: provider, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider

	// Classification metrics.
	ClassifyRequests *prometheus.CounterVec // labels: outcome={success,error,disabled}
	ClassifyCache    *prometheus.CounterVec // labels: result={hit,miss}

	// Store metrics.
	StoredEvents *prometheus.GaugeVec   // labels: collection
	StoreWrites  *prometheus.CounterVec // labels: collection, outcome={success,error}
	Published    *prometheus.CounterVec // labels: publisher, outcome={success,error}

	// Run metrics.
	JobRunning       *prometheus.GaugeVec     // labels: job
	RunDuration      *prometheus.HistogramVec // labels: job
	LastRunTimestamp *prometheus.GaugeVec     // labels: job
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ArticlesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_fetched_total",
			Help:      "Total articles returned by the news source.",
		}),
		ArticlesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_skipped_total",
			Help:      "Articles dropped by the pipeline, by reason.",
		}, []string{"reason"}),
		EventsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_produced_total",
			Help:      "Fresh events produced per collection.",
		}, []string{"collection"}),
		LocationResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_resolved_total",
			Help:      "Articles located, by winning strategy.",
		}, []string{"strategy"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		ClassifyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classify_requests_total",
			Help:      "Classification attempts by outcome.",
		}, []string{"outcome"}),
		ClassifyCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classify_cache_total",
			Help:      "Classification cache lookups by result.",
		}, []string{"result"}),
		StoredEvents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_events",
			Help:      "Events in the collection after the last merge.",
		}, []string{"collection"}),
		StoreWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Whole-document writes to the datastore by outcome.",
		}, []string{"collection", "outcome"}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_batches_total",
			Help:      "Event batches handed to downstream publishers by outcome.",
		}, []string{"publisher", "outcome"}),
		JobRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_running",
			Help:      "1 while a job run is in progress.",
		}, []string{"job"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete job run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"job"}),
		LastRunTimestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the job last finished.",
		}, []string{"job"}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ArticlesFetched,
		m.ArticlesSkipped,
		m.EventsProduced,
		m.LocationResolved,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.ClassifyRequests,
		m.ClassifyCache,
		m.StoredEvents,
		m.StoreWrites,
		m.Published,
		m.JobRunning,
		m.RunDuration,
		m.LastRunTimestamp,
	}
}
