package app

import (
	"context"
	"time"

	"github.com/mentora/treasury-service/internal/forecast"
)

// AlertRunResult summarizes an alert run.
type AlertRunResult struct {
	AsOf      string `json:"asOf"`
	Evaluated int    `json:"evaluated"`
	Published int    `json:"published"`
	Failed    int    `json:"failed"`
}

// RunOverdueAlerts publishes one event per student and currency with an overdue balance.
func (s *Service) RunOverdueAlerts(ctx context.Context) (*AlertRunResult, error) {
	report, err := s.BFR(ctx)
	if err != nil {
		return nil, err
	}

	today := s.Today().Format(time.DateOnly)
	result := &AlertRunResult{AsOf: today, Evaluated: len(report.OverdueStudents)}
	for _, st := range report.OverdueStudents {
		ok := s.publishEvent(ctx, RoutingStudentOverdue, studentOverdueEvent{
			StudentID:      st.StudentID,
			StudentName:    st.StudentName,
			Currency:       st.Currency,
			OverdueAmount:  st.OverdueAmount,
			TotalRemaining: st.TotalRemaining,
			AsOf:           today,
			Timestamp:      s.now(),
		})
		if ok {
			result.Published++
		} else {
			result.Failed++
		}
	}

	s.logger.Info("overdue alerts run", "as_of", today, "evaluated", result.Evaluated, "published", result.Published, "failed", result.Failed)
	return result, nil
}

// RunUpcomingDigest publishes a single digest of the payments due in the next
// thirty days. Nothing is published when no payment is upcoming.
func (s *Service) RunUpcomingDigest(ctx context.Context) (*AlertRunResult, error) {
	report, err := s.BFR(ctx)
	if err != nil {
		return nil, err
	}

	today := s.Today().Format(time.DateOnly)
	result := &AlertRunResult{AsOf: today, Evaluated: len(report.UpcomingPayments)}
	if len(report.UpcomingPayments) == 0 {
		s.logger.Info("no upcoming payments, digest skipped", "as_of", today)
		return result, nil
	}

	totals := map[string]int64{}
	for _, p := range report.UpcomingPayments {
		totals[p.Currency] += p.Remaining
	}
	if s.publishEvent(ctx, RoutingPaymentsUpcoming, upcomingDigestEvent{
		AsOf:       today,
		WindowDays: forecast.UpcomingWindowDays,
		Payments:   report.UpcomingPayments,
		Totals:     totals,
		Timestamp:  s.now(),
	}) {
		result.Published = 1
	} else {
		result.Failed = 1
	}

	s.logger.Info("upcoming payments digest run", "as_of", today, "payments", result.Evaluated, "published", result.Published)
	return result, nil
}
