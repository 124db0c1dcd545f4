package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	NewsAPIKey   string
	NewsAPIURL   string
	NewsQuery    string
	NewsPageSize int
	GDACSURL     string

	DatastoreURL string

	// OpenRouter classifier and location oracle.
	OpenRouterKey             string
	OpenRouterURL             string
	OpenRouterModel           string
	AIEnabled                 bool
	AIClassifyEnabled         bool
	AILocationFallbackEnabled bool

	// Geocoding providers, tried in order: Nominatim, Geoapify, Mapbox.
	NominatimURL       string
	NominatimUserAgent string
	GeoapifyKey        string
	MapboxToken        string
	GeocodeDelay       time.Duration

	GeocodeTimeout  time.Duration
	ClassifyTimeout time.Duration
	LocationTimeout time.Duration
	FetchTimeout    time.Duration
	StoreTimeout    time.Duration

	EventRetention    time.Duration
	DisasterRetention time.Duration

	StatePaths

	KafkaBrokers []string
	KafkaTopic   string
	NATSURL      string
	NATSSubject  string

	PushgatewayURL string

	HTTPAddr        string
	Schedule        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// StatePaths locates the local state files.
type StatePaths struct {
	GazetteerPath     string
	GeocachePath      string
	ClassifyCachePath string
}

// LoadStatePaths reads only the state file locations. Commands that never
// touch the datastore use it instead of Load.
func LoadStatePaths() StatePaths {
	return StatePaths{
		GazetteerPath:     sharedcfg.EnvOrDefault("GAZETTEER_PATH", "dictionary.json"),
		GeocachePath:      sharedcfg.EnvOrDefault("GEOCACHE_PATH", "geocache.json"),
		ClassifyCachePath: sharedcfg.EnvOrDefault("CLASSIFY_CACHE_PATH", "classify_cache.json"),
	}
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	pageSize, err := parsePageSize()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		NewsAPIKey:   os.Getenv("NEWS_API_KEY"),
		NewsAPIURL:   sharedcfg.EnvOrDefault("NEWS_API_URL", "https://newsapi.org/v2/everything"),
		NewsQuery:    os.Getenv("NEWS_QUERY"),
		NewsPageSize: pageSize,
		GDACSURL:     sharedcfg.EnvOrDefault("GDACS_URL", "https://www.gdacs.org/gdacsapi/api/eventsgeojson?eventtype=TC"),

		DatastoreURL: sharedcfg.EnvOrDefault("DATASTORE_URL", os.Getenv("FIREBASE_URL")),

		OpenRouterKey:   os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterURL:   sharedcfg.EnvOrDefault("OPENROUTER_URL", "https://openrouter.ai/api/v1/chat/completions"),
		OpenRouterModel: sharedcfg.EnvOrDefault("OPENROUTER_MODEL", "mistralai/mistral-7b-instruct"),

		NominatimURL:       sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent: sharedcfg.EnvOrDefault("NOMINATIM_USER_AGENT", "geomonitor_news_app"),
		GeoapifyKey:        os.Getenv("GEOAPIFY_KEY"),
		MapboxToken:        os.Getenv("MAPBOX_TOKEN"),

		KafkaTopic:  sharedcfg.EnvOrDefault("KAFKA_TOPIC", "geomonitor-events"),
		NATSURL:     os.Getenv("NATS_URL"),
		NATSSubject: sharedcfg.EnvOrDefault("NATS_SUBJECT", "geomonitor.events"),

		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		Schedule:        sharedcfg.EnvOrDefault("SCHEDULE", "@every 1h"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	cfg.StatePaths = LoadStatePaths()

	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(raw)
	}

	toggles := []struct {
		key string
		dst *bool
	}{
		{"AI_ENABLED", &cfg.AIEnabled},
		{"AI_CLASSIFY_ENABLED", &cfg.AIClassifyEnabled},
		{"AI_LOCATION_FALLBACK_ENABLED", &cfg.AILocationFallbackEnabled},
	}
	for _, t := range toggles {
		v, err := parseBool(t.key, true)
		if err != nil {
			return nil, err
		}
		*t.dst = v
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"GEOCODE_DELAY", "1.2s", &cfg.GeocodeDelay},
		{"GEOCODE_TIMEOUT", "10s", &cfg.GeocodeTimeout},
		{"CLASSIFY_TIMEOUT", "25s", &cfg.ClassifyTimeout},
		{"LOCATION_TIMEOUT", "20s", &cfg.LocationTimeout},
		{"FETCH_TIMEOUT", "20s", &cfg.FetchTimeout},
		{"STORE_TIMEOUT", "15s", &cfg.StoreTimeout},
		{"EVENT_RETENTION", "48h", &cfg.EventRetention},
		{"DISASTER_RETENTION", "168h", &cfg.DisasterRetention},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.fallback)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if cfg.DatastoreURL == "" {
		return nil, errors.New("DATASTORE_URL is required")
	}

	return cfg, nil
}

// RequireNewsAPIKey reports a configuration error when the news job cannot run.
func (c *Config) RequireNewsAPIKey() error {
	if c.NewsAPIKey == "" {
		return errors.New("NEWS_API_KEY is required")
	}
	return nil
}

// ClassifyEnabled reports whether articles are sent to the oracle for classification.
func (c *Config) ClassifyEnabled() bool {
	return c.OpenRouterKey != "" && c.AIEnabled && c.AIClassifyEnabled
}

// LocationFallbackEnabled reports whether the oracle is asked for a place
// name when every local strategy fails.
func (c *Config) LocationFallbackEnabled() bool {
	return c.OpenRouterKey != "" && c.AIEnabled && c.AILocationFallbackEnabled
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// parseBool accepts strconv.ParseBool forms plus on/off and yes/no. Anything
// else is an error rather than a silent fallback.
func parseBool(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return fallback, nil
	case "on", "yes", "y":
		return true, nil
	case "off", "no", "n":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}

func parsePageSize() (int, error) {
	s := os.Getenv("NEWS_PAGE_SIZE")
	if s == "" {
		return 30, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 100 {
		return 0, errors.New("invalid NEWS_PAGE_SIZE: must be 1-100")
	}
	return n, nil
}
