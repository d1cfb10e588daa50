/**
 * @description
 * Entry point for the treasury scheduler. A long-running, non-HTTP process that
 * triggers the overdue alert run and the upcoming payments digest on cron schedules.
 */
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mentora/treasury-service/internal/config"
	"github.com/mentora/treasury-service/internal/scheduler"
	"github.com/mentora/treasury-service/pkg/treasuryclient"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment variables")
	}

	cfg, err := config.LoadSchedulerConfig(".")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	client := treasuryclient.NewClient(cfg.TreasuryServiceURL, cfg.InternalAPIKey)
	jobs := scheduler.NewJobs(client, logger)
	s := scheduler.NewScheduler(jobs, logger, *cfg)

	if s.Start() == 0 {
		logger.Warn("no jobs scheduled")
	}
	logger.Info("scheduler started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, stopping scheduler")
	<-s.Stop().Done()
	logger.Info("scheduler stopped gracefully")
}
