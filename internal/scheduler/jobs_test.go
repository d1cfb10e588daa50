package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mentora/treasury-service/internal/app"
	"github.com/mentora/treasury-service/internal/config"
	"github.com/mentora/treasury-service/internal/observability"
)

type treasuryClientStub struct {
	overdueCalls  int
	upcomingCalls int
	err           error
}

func (s *treasuryClientStub) RunOverdueAlerts(ctx context.Context) (*app.AlertRunResult, error) {
	s.overdueCalls++
	if s.err != nil {
		return nil, s.err
	}
	return &app.AlertRunResult{AsOf: "2024-03-15", Evaluated: 2, Published: 2}, nil
}

func (s *treasuryClientStub) RunUpcomingDigest(ctx context.Context) (*app.AlertRunResult, error) {
	s.upcomingCalls++
	if s.err != nil {
		return nil, s.err
	}
	return &app.AlertRunResult{AsOf: "2024-03-15", Evaluated: 5, Published: 1}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOverdueAlertsCountsOutcome(t *testing.T) {
	client := &treasuryClientStub{}
	jobs := NewJobs(client, discardLogger())

	before := testutil.ToFloat64(observability.JobRunsTotal.WithLabelValues("overdue_alerts", "success"))
	jobs.RunOverdueAlerts()

	if client.overdueCalls != 1 {
		t.Fatalf("expected 1 overdue call, got %d", client.overdueCalls)
	}
	after := testutil.ToFloat64(observability.JobRunsTotal.WithLabelValues("overdue_alerts", "success"))
	if after-before != 1 {
		t.Fatalf("expected success counter to grow by 1, got %v", after-before)
	}
}

func TestRunUpcomingDigestRecordsFailure(t *testing.T) {
	client := &treasuryClientStub{err: errors.New("service unavailable")}
	jobs := NewJobs(client, discardLogger())

	before := testutil.ToFloat64(observability.JobRunsTotal.WithLabelValues("upcoming_digest", "error"))
	jobs.RunUpcomingDigest()

	if client.upcomingCalls != 1 {
		t.Fatalf("expected 1 digest call, got %d", client.upcomingCalls)
	}
	after := testutil.ToFloat64(observability.JobRunsTotal.WithLabelValues("upcoming_digest", "error"))
	if after-before != 1 {
		t.Fatalf("expected error counter to grow by 1, got %v", after-before)
	}
}

func TestSchedulerRegistersConfiguredJobs(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SchedulerConfig
		want int
	}{
		{
			name: "both",
			cfg:  config.SchedulerConfig{BusinessTimezone: "Europe/Paris", OverdueAlertJobSchedule: "0 8 * * 1-5", UpcomingDigestJobSchedule: "0 7 * * 1"},
			want: 2,
		},
		{
			name: "disabled digest",
			cfg:  config.SchedulerConfig{BusinessTimezone: "Europe/Paris", OverdueAlertJobSchedule: "0 8 * * 1-5"},
			want: 1,
		},
		{
			name: "invalid expression",
			cfg:  config.SchedulerConfig{BusinessTimezone: "Nowhere/Else", OverdueAlertJobSchedule: "not a cron", UpcomingDigestJobSchedule: "0 7 * * 1"},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(NewJobs(&treasuryClientStub{}, discardLogger()), discardLogger(), tt.cfg)
			got := s.Start()
			<-s.Stop().Done()
			if got != tt.want {
				t.Fatalf("expected %d scheduled jobs, got %d", tt.want, got)
			}
		})
	}
}
