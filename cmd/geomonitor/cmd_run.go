package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/geomonitor-etl/internal/config"
	"github.com/couchcryptid/geomonitor-etl/internal/job"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one news ingestion pass",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOnce(cmd, "run", (*config.Config).RequireNewsAPIKey, func(a *app) (job.Job, error) {
			return a.newsJob()
		})
	},
}

var disastersCmd = &cobra.Command{
	Use:   "disasters",
	Short: "Run one tropical cyclone import pass",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOnce(cmd, "disasters", nil, func(a *app) (job.Job, error) {
			return a.disasterJob(), nil
		})
	},
}

// runOnce executes a single job. Only configuration problems produce an
// error; a run that stored nothing still exits zero. check, when set, runs
// before any connection is opened.
func runOnce(cmd *cobra.Command, command string, check func(*config.Config) error, build func(*app) (job.Job, error)) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logBootSummary(cfg, logger)

	if check != nil {
		if err := check(cfg); err != nil {
			logger.Error("failed to start", "error", err)
			return err
		}
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer a.Close()

	j, err := build(a)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	j.Run(ctx)

	pushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	a.pushMetrics(pushCtx, command)
	return nil
}
