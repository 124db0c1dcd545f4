package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/geomonitor-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/geomonitor-etl/internal/job"
)

var serveImmediately bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run both jobs on a schedule and expose probes and metrics",
	Long: `
serve runs the news and disaster jobs back to back on the SCHEDULE cron
expression (default "@every 1h"). A tick that fires while the previous one is
still running is skipped. /healthz, /readyz, /status and /metrics are served
on HTTP_ADDR; /readyz turns ready once the first run has completed.
`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveImmediately, "now", true, "run both jobs once at start-up")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logBootSummary(cfg, logger)

	if err := cfg.RequireNewsAPIKey(); err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer a.Close()

	newsJob, err := a.newsJob()
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler, err := job.NewScheduler(ctx, cfg.Schedule, []job.Job{newsJob, a.disasterJob()}, logger)
	if err != nil {
		logger.Error("invalid SCHEDULE", "schedule", cfg.Schedule, "error", err)
		return err
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, a.readiness, a.readiness, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	scheduler.Start()
	if serveImmediately {
		scheduler.RunNow()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
