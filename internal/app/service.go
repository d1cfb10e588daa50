/**
 * @description
 * Core business logic for the treasury: projections, working-capital report,
 * founder positions, distributions and the state changes that feed them.
 *
 * @notes
 * - Every call loads from the store and recomputes. Nothing is cached in memory.
 * - "Today" is the civil date in the business timezone.
 */
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mentora/treasury-service/internal/domain"
	"github.com/mentora/treasury-service/internal/forecast"
	"github.com/mentora/treasury-service/internal/observability"
	"github.com/mentora/treasury-service/internal/settlement"
)

const (
	DefaultDistributionLimit = 20
	MaxDistributionLimit     = 100
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidDate   = errors.New("dates must use the YYYY-MM-DD format")
)

// Repository defines the database operations the service needs.
type Repository interface {
	ListAdminAccounts(ctx context.Context) ([]domain.BankAccount, error)
	GetAccount(ctx context.Context, accountID string) (*domain.BankAccount, error)

	ListOpenSchedules(ctx context.Context, dueBefore time.Time) ([]domain.PaymentSchedule, error)
	ListReceivableSchedules(ctx context.Context) ([]domain.PaymentSchedule, error)
	GetSchedule(ctx context.Context, scheduleID string) (*domain.PaymentSchedule, error)
	SaveSchedulePayment(ctx context.Context, schedule domain.PaymentSchedule, previousPaid int64, movement *domain.BankTransaction) error

	GetQuote(ctx context.Context, quoteID string) (*domain.Quote, error)
	UpdateQuoteStatus(ctx context.Context, quoteID string, from, to domain.QuoteStatus) error

	ListActiveRecurringExpenses(ctx context.Context, dueBefore time.Time) ([]domain.RecurringExpense, error)
	GetRecurringExpense(ctx context.Context, expenseID string) (*domain.RecurringExpense, error)
	SaveRecurringExpensePayment(ctx context.Context, expense domain.RecurringExpense, previousDue time.Time, movement *domain.BankTransaction) error

	ListOutstandingMissions(ctx context.Context, dueBefore time.Time) ([]domain.Mission, error)
	GetMission(ctx context.Context, missionID string) (*domain.Mission, error)
	UpdateMissionStatus(ctx context.Context, missionID string, from, to domain.MissionStatus, movement *domain.BankTransaction) error

	ListPositions(ctx context.Context) ([]domain.Position, error)
	CreateDistribution(ctx context.Context, d *domain.Distribution) error
	ListDistributions(ctx context.Context, limit int) ([]domain.Distribution, error)
}

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// Service provides the treasury business logic.
type Service struct {
	repo      Repository
	publisher EventPublisher
	logger    *slog.Logger
	loc       *time.Location
	exchange  string
	now       func() time.Time
}

// NewService creates a new treasury service.
func NewService(repo Repository, publisher EventPublisher, logger *slog.Logger, timezone, exchange string) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("invalid timezone, defaulting to UTC", "timezone", timezone, "error", err)
		loc = time.UTC
	}
	if exchange == "" {
		exchange = DefaultExchange
	}

	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		loc:       loc,
		exchange:  exchange,
		now:       time.Now,
	}
}

// Today returns the current civil date in the business timezone.
func (s *Service) Today() time.Time {
	return domain.Day(s.now(), s.loc)
}

// Forecast loads the projection inputs and computes a months-long cash projection.
// Unsupported horizons fall back to six months.
func (s *Service) Forecast(ctx context.Context, months int) (*forecast.Projection, error) {
	defer observability.ObserveReport("forecast", time.Now())

	today := s.Today()
	months = forecast.NormalizeMonths(months)
	end := forecast.WindowEnd(today, months)

	accounts, err := s.repo.ListAdminAccounts(ctx)
	if err != nil {
		return nil, err
	}
	schedules, err := s.repo.ListOpenSchedules(ctx, end)
	if err != nil {
		return nil, err
	}
	missions, err := s.repo.ListOutstandingMissions(ctx, end)
	if err != nil {
		return nil, err
	}
	recurring, err := s.repo.ListActiveRecurringExpenses(ctx, end)
	if err != nil {
		return nil, err
	}

	projection := forecast.Project(forecast.Input{
		Today:     today,
		Months:    months,
		Accounts:  accounts,
		Schedules: schedules,
		Missions:  missions,
		Recurring: recurring,
	})
	return &projection, nil
}

// BFR computes the working-capital report over all receivable schedules.
func (s *Service) BFR(ctx context.Context) (*forecast.BFRReport, error) {
	defer observability.ObserveReport("bfr", time.Now())

	schedules, err := s.repo.ListReceivableSchedules(ctx)
	if err != nil {
		return nil, err
	}
	report := forecast.BuildBFR(s.Today(), schedules)

	overdue := map[string]int{}
	for currency := range report.TotalsByCurrency {
		overdue[currency] = 0
	}
	for _, st := range report.OverdueStudents {
		overdue[st.Currency]++
	}
	observability.OverdueStudents.Reset()
	for currency, n := range overdue {
		observability.OverdueStudents.WithLabelValues(currency).Set(float64(n))
	}

	return &report, nil
}

// Positions returns founder balances and the suggested settle-up transfers.
func (s *Service) Positions(ctx context.Context) (*settlement.Rebalancing, error) {
	defer observability.ObserveReport("positions", time.Now())

	positions, err := s.repo.ListPositions(ctx)
	if err != nil {
		return nil, err
	}
	result := settlement.Rebalance(positions)
	return &result, nil
}

// ListAccounts returns active admin-owned accounts with derived balances.
func (s *Service) ListAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	return s.repo.ListAdminAccounts(ctx)
}
