package app

import (
	"context"
	"time"

	"github.com/mentora/treasury-service/internal/domain"
	"github.com/mentora/treasury-service/internal/forecast"
	"github.com/mentora/treasury-service/internal/observability"
)

// DefaultExchange is the topic exchange treasury events are published to.
const DefaultExchange = "mentora.events"

// Routing keys of treasury events.
const (
	RoutingDistributionCreated     = "treasury.distribution.created"
	RoutingSchedulePaymentRecorded = "treasury.schedule.payment_recorded"
	RoutingRecurringExpensePaid    = "treasury.recurring_expense.paid"
	RoutingMissionStatusChanged    = "treasury.mission.status_changed"
	RoutingQuoteStatusChanged      = "treasury.quote.status_changed"
	RoutingStudentOverdue          = "treasury.student.overdue"
	RoutingPaymentsUpcoming        = "treasury.payments.upcoming"
)

type distributionCreatedEvent struct {
	DistributionID    string                     `json:"distributionId"`
	Currency          string                     `json:"currency"`
	TotalAmount       int64                      `json:"totalAmount"`
	InvestmentAmount  int64                      `json:"investmentAmount"`
	DistributedAmount int64                      `json:"distributedAmount"`
	CreatedBy         string                     `json:"createdBy,omitempty"`
	Shares            []domain.DistributionShare `json:"shares"`
	Timestamp         time.Time                  `json:"timestamp"`
}

type schedulePaymentEvent struct {
	ScheduleID string                `json:"scheduleId"`
	QuoteID    string                `json:"quoteId"`
	StudentID  string                `json:"studentId"`
	Amount     int64                 `json:"amount"`
	PaidAmount int64                 `json:"paidAmount"`
	Remaining  int64                 `json:"remaining"`
	Currency   string                `json:"currency"`
	Status     domain.ScheduleStatus `json:"status"`
	PaidOn     string                `json:"paidOn"`
	AccountID  string                `json:"accountId,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

type recurringExpensePaidEvent struct {
	ExpenseID   string    `json:"expenseId"`
	Label       string    `json:"label"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	PaidOn      string    `json:"paidOn"`
	PaidDueDate string    `json:"paidDueDate"`
	NextDueDate string    `json:"nextDueDate"`
	AccountID   string    `json:"accountId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type statusChangedEvent struct {
	EntityID  string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    int64     `json:"amount,omitempty"`
	Currency  string    `json:"currency"`
	StudentID string    `json:"studentId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type studentOverdueEvent struct {
	StudentID      string    `json:"studentId"`
	StudentName    string    `json:"studentName"`
	Currency       string    `json:"currency"`
	OverdueAmount  int64     `json:"overdueAmount"`
	TotalRemaining int64     `json:"totalRemaining"`
	AsOf           string    `json:"asOf"`
	Timestamp      time.Time `json:"timestamp"`
}

type upcomingDigestEvent struct {
	AsOf       string                     `json:"asOf"`
	WindowDays int                        `json:"windowDays"`
	Payments   []forecast.UpcomingPayment `json:"payments"`
	Totals     map[string]int64           `json:"totals"`
	Timestamp  time.Time                  `json:"timestamp"`
}

// publishEvent publishes best effort: a broker failure is logged and never
// fails the operation that already committed.
func (s *Service) publishEvent(ctx context.Context, routingKey string, payload interface{}) bool {
	if s.publisher == nil {
		return false
	}

	err := s.publisher.Publish(ctx, s.exchange, routingKey, payload)
	observability.EventsPublishedTotal.WithLabelValues(routingKey, observability.Outcome(err)).Inc()
	if err != nil {
		s.logger.Warn("failed to publish treasury event", "routing_key", routingKey, "error", err)
		return false
	}
	return true
}
