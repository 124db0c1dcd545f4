package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/geomonitor-etl/internal/config"
	"github.com/couchcryptid/geomonitor-etl/internal/observability"
)

type flagValues struct {
	gazetteer     string
	geocache      string
	classifyCache string
	noAI          bool
	progress      bool
}

var flags flagValues

var rootCmd = &cobra.Command{
	Use:   "geomonitor",
	Short: "Geolocate news and disaster alerts for the live map",
	Long: `
geomonitor fetches recent news articles and active tropical cyclone alerts,
works out where each one happened, and merges the results into the event
collections read by the map front-end. Events older than the retention window
are dropped on every write.

Configuration comes from the environment (and an optional .env file); the
flags below override the matching variables for a single invocation.
`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.gazetteer, "gazetteer", "", "gazetteer file, JSON or YAML (overrides GAZETTEER_PATH)")
	pf.StringVar(&flags.geocache, "geocache", "", "geocode cache file (overrides GEOCACHE_PATH)")
	pf.StringVar(&flags.classifyCache, "classify-cache", "", "classification cache file (overrides CLASSIFY_CACHE_PATH)")
	pf.BoolVar(&flags.noAI, "no-ai", false, "disable classification and the location oracle (same as AI_ENABLED=false)")
	pf.BoolVar(&flags.progress, "progress", true, "show a progress bar when stderr is a terminal")

	rootCmd.AddCommand(runCmd, disastersCmd, serveCmd, validateCmd)
}

// loadConfig reads the environment, applies flag overrides, and builds the
// process logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return nil, nil, err
	}

	applyPathFlags(cmd, &cfg.StatePaths)
	if flags.noAI {
		cfg.AIEnabled = false
	}

	return cfg, observability.NewLogger(cfg), nil
}

func applyPathFlags(cmd *cobra.Command, paths *config.StatePaths) {
	f := cmd.Flags()
	if f.Changed("gazetteer") {
		paths.GazetteerPath = flags.gazetteer
	}
	if f.Changed("geocache") {
		paths.GeocachePath = flags.geocache
	}
	if f.Changed("classify-cache") {
		paths.ClassifyCachePath = flags.classifyCache
	}
}

// logBootSummary records which optional integrations are configured without
// printing any secret.
func logBootSummary(cfg *config.Config, logger *slog.Logger) {
	present := func(v string) string {
		if v == "" {
			return "missing"
		}
		return "present"
	}
	logger.Info("credentials",
		"news_api_key", present(cfg.NewsAPIKey),
		"openrouter_api_key", present(cfg.OpenRouterKey),
		"geoapify_key", present(cfg.GeoapifyKey),
		"mapbox_token", present(cfg.MapboxToken),
	)
	logger.Info("features",
		"classify", cfg.ClassifyEnabled(),
		"location_oracle", cfg.LocationFallbackEnabled(),
		"kafka", len(cfg.KafkaBrokers) > 0,
		"nats", cfg.NATSURL != "",
		"pushgateway", cfg.PushgatewayURL != "",
	)
}
