// Command geomonitor geolocates news and disaster alerts and merges them into
// the shared event store read by the map front-end.
//
// Usage:
//
//	geomonitor run        # one news pass
//	geomonitor disasters  # one tropical cyclone pass
//	geomonitor serve      # both jobs on a cron schedule, with probes and /metrics
//	geomonitor validate   # check the gazetteer and local caches
package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env file", "error", err)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
