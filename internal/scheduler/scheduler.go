/**
 * @description
 * Cron scheduler setup for the treasury alert jobs.
 */
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mentora/treasury-service/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.SchedulerConfig
}

// NewScheduler creates a new scheduler. Cron expressions are evaluated in the
// business timezone so that "08:00" means 08:00 for the school.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.SchedulerConfig) *Scheduler {
	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		logger.Warn("invalid timezone, defaulting to UTC", "timezone", cfg.BusinessTimezone, "error", err)
		loc = time.UTC
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler. It returns the
// number of jobs that were scheduled.
func (s *Scheduler) Start() int {
	scheduled := 0
	register := func(name, schedule string, job func()) {
		if schedule == "" {
			s.logger.Info("job disabled", "job", name)
			return
		}
		if _, err := s.cron.AddFunc(schedule, job); err != nil {
			s.logger.Error("failed to schedule job", "job", name, "schedule", schedule, "error", err)
			return
		}
		scheduled++
		s.logger.Info("scheduled job", "job", name, "schedule", schedule)
	}

	register("overdue_alerts", s.config.OverdueAlertJobSchedule, s.jobs.RunOverdueAlerts)
	register("upcoming_digest", s.config.UpcomingDigestJobSchedule, s.jobs.RunUpcomingDigest)

	s.cron.Start()
	return scheduled
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
