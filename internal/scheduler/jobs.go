/**
 * @description
 * Scheduled job implementations. Each job asks the treasury service to run
 * an alert pass and records the outcome.
 */
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/mentora/treasury-service/internal/app"
	"github.com/mentora/treasury-service/internal/observability"
)

const jobTimeout = 2 * time.Minute

// TreasuryClient defines the calls the jobs make against the treasury service.
type TreasuryClient interface {
	RunOverdueAlerts(ctx context.Context) (*app.AlertRunResult, error)
	RunUpcomingDigest(ctx context.Context) (*app.AlertRunResult, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	client TreasuryClient
	logger *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(client TreasuryClient, logger *slog.Logger) *Jobs {
	return &Jobs{client: client, logger: logger}
}

// RunOverdueAlerts publishes overdue student alerts.
func (j *Jobs) RunOverdueAlerts() {
	j.run("overdue_alerts", j.client.RunOverdueAlerts)
}

// RunUpcomingDigest publishes the weekly upcoming payments digest.
func (j *Jobs) RunUpcomingDigest() {
	j.run("upcoming_digest", j.client.RunUpcomingDigest)
}

func (j *Jobs) run(name string, call func(context.Context) (*app.AlertRunResult, error)) {
	j.logger.Info("starting treasury job", "job", name)
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	result, err := call(ctx)
	observability.JobRunsTotal.WithLabelValues(name, observability.Outcome(err)).Inc()
	if err != nil {
		j.logger.Error("treasury job failed", "job", name, "error", err)
		return
	}

	j.logger.Info("treasury job finished",
		"job", name,
		"as_of", result.AsOf,
		"evaluated", result.Evaluated,
		"published", result.Published,
		"failed", result.Failed,
	)
}
