package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/mentora/treasury-service/internal/domain"
	"github.com/mentora/treasury-service/internal/observability"
	"github.com/mentora/treasury-service/internal/settlement"
)

type treasuryRepoStub struct {
	Repository

	accounts  map[string]domain.BankAccount
	schedules []domain.PaymentSchedule
	schedule  *domain.PaymentSchedule
	expense   *domain.RecurringExpense
	mission   *domain.Mission
	quote     *domain.Quote
	missions  []domain.Mission
	recurring []domain.RecurringExpense

	dueBefore      time.Time
	savedSchedule  *domain.PaymentSchedule
	savedPrevious  int64
	savedExpense   *domain.RecurringExpense
	savedPrevDue   time.Time
	savedMovement  *domain.BankTransaction
	missionUpdate  []domain.MissionStatus
	quoteUpdate    []domain.QuoteStatus
	created        *domain.Distribution
	listLimit      int
	createErr      error
	saveScheduleFn func() error
}

func (s *treasuryRepoStub) ListAdminAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	out := []domain.BankAccount{}
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (s *treasuryRepoStub) GetAccount(ctx context.Context, id string) (*domain.BankAccount, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, errors.New("account not found")
	}
	return &a, nil
}

func (s *treasuryRepoStub) ListOpenSchedules(ctx context.Context, dueBefore time.Time) ([]domain.PaymentSchedule, error) {
	s.dueBefore = dueBefore
	return s.schedules, nil
}

func (s *treasuryRepoStub) ListReceivableSchedules(ctx context.Context) ([]domain.PaymentSchedule, error) {
	return s.schedules, nil
}

func (s *treasuryRepoStub) ListOutstandingMissions(ctx context.Context, dueBefore time.Time) ([]domain.Mission, error) {
	return s.missions, nil
}

func (s *treasuryRepoStub) ListActiveRecurringExpenses(ctx context.Context, dueBefore time.Time) ([]domain.RecurringExpense, error) {
	return s.recurring, nil
}

func (s *treasuryRepoStub) GetSchedule(ctx context.Context, id string) (*domain.PaymentSchedule, error) {
	c := *s.schedule
	return &c, nil
}

func (s *treasuryRepoStub) SaveSchedulePayment(ctx context.Context, schedule domain.PaymentSchedule, previousPaid int64, movement *domain.BankTransaction) error {
	if s.saveScheduleFn != nil {
		if err := s.saveScheduleFn(); err != nil {
			return err
		}
	}
	s.savedSchedule = &schedule
	s.savedPrevious = previousPaid
	s.savedMovement = movement
	return nil
}

func (s *treasuryRepoStub) GetRecurringExpense(ctx context.Context, id string) (*domain.RecurringExpense, error) {
	c := *s.expense
	return &c, nil
}

func (s *treasuryRepoStub) SaveRecurringExpensePayment(ctx context.Context, expense domain.RecurringExpense, previousDue time.Time, movement *domain.BankTransaction) error {
	s.savedExpense = &expense
	s.savedPrevDue = previousDue
	s.savedMovement = movement
	return nil
}

func (s *treasuryRepoStub) GetMission(ctx context.Context, id string) (*domain.Mission, error) {
	c := *s.mission
	return &c, nil
}

func (s *treasuryRepoStub) UpdateMissionStatus(ctx context.Context, id string, from, to domain.MissionStatus, movement *domain.BankTransaction) error {
	s.missionUpdate = []domain.MissionStatus{from, to}
	s.savedMovement = movement
	return nil
}

func (s *treasuryRepoStub) GetQuote(ctx context.Context, id string) (*domain.Quote, error) {
	c := *s.quote
	return &c, nil
}

func (s *treasuryRepoStub) UpdateQuoteStatus(ctx context.Context, id string, from, to domain.QuoteStatus) error {
	s.quoteUpdate = []domain.QuoteStatus{from, to}
	return nil
}

func (s *treasuryRepoStub) CreateDistribution(ctx context.Context, d *domain.Distribution) error {
	if s.createErr != nil {
		return s.createErr
	}
	d.ID = "dist-1"
	s.created = d
	return nil
}

func (s *treasuryRepoStub) ListDistributions(ctx context.Context, limit int) ([]domain.Distribution, error) {
	s.listLimit = limit
	return []domain.Distribution{}, nil
}

type publishedEvent struct {
	exchange   string
	routingKey string
	body       interface{}
}

type publisherStub struct {
	events []publishedEvent
	err    error
}

func (p *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{exchange: exchange, routingKey: routingKey, body: body})
	return nil
}

func newTestService(repo Repository, pub EventPublisher, today time.Time) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, pub, logger, "UTC", "")
	svc.now = func() time.Time { return today.Add(10 * time.Hour) }
	return svc
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewServiceFallsBackToUTC(t *testing.T) {
	svc := NewService(&treasuryRepoStub{}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), "Mars/Olympus", "")
	if svc.loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %s", svc.loc)
	}
	if svc.exchange != DefaultExchange {
		t.Fatalf("expected default exchange, got %q", svc.exchange)
	}
}

func TestForecastNormalizesMonthsAndLoadsWindow(t *testing.T) {
	repo := &treasuryRepoStub{
		accounts: map[string]domain.BankAccount{
			"a": {ID: "a", Currency: "EUR", Balance: 500000, IsAdminOwned: true, IsActive: true},
		},
	}
	svc := newTestService(repo, nil, day(2025, time.March, 10))

	got, err := svc.Forecast(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Months != 6 || len(got.Projection) != 6 {
		t.Fatalf("expected 6 months, got %d rows=%d", got.Months, len(got.Projection))
	}
	if !repo.dueBefore.Equal(day(2025, time.September, 1)) {
		t.Fatalf("expected window end 2025-09-01, got %s", repo.dueBefore.Format(time.DateOnly))
	}
}

func TestBFRDropsOverdueGaugeForVanishedCurrencies(t *testing.T) {
	repo := &treasuryRepoStub{
		schedules: []domain.PaymentSchedule{
			{ID: "s1", StudentID: "st1", StudentName: "Ana", Amount: 1000, Currency: "USD", DueDate: day(2025, time.March, 1)},
		},
	}
	svc := newTestService(repo, nil, day(2025, time.March, 10))

	if _, err := svc.BFR(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(observability.OverdueStudents.WithLabelValues("USD")); got != 1 {
		t.Fatalf("expected 1 overdue USD student, got %v", got)
	}

	repo.schedules = []domain.PaymentSchedule{
		{ID: "s2", StudentID: "st2", StudentName: "Ben", Amount: 500, Currency: "EUR", DueDate: day(2025, time.March, 2)},
	}
	if _, err := svc.BFR(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.CollectAndCount(observability.OverdueStudents); got != 1 {
		t.Fatalf("expected only the EUR series to remain, got %d series", got)
	}
	if got := testutil.ToFloat64(observability.OverdueStudents.WithLabelValues("EUR")); got != 1 {
		t.Fatalf("expected 1 overdue EUR student, got %v", got)
	}
}

func TestCreateDistributionRejectsBeforeWriting(t *testing.T) {
	repo := &treasuryRepoStub{}
	pub := &publisherStub{}
	svc := newTestService(repo, pub, day(2025, time.March, 10))

	req := settlement.DistributionRequest{
		Currency:    "eur",
		TotalAmount: 10000,
		Shares: []settlement.ShareRequest{
			{AdminID: "A", Percentage: decimal.RequireFromString("49.99")},
			{AdminID: "B", Percentage: decimal.RequireFromString("49.99")},
		},
	}
	_, err := svc.CreateDistribution(context.Background(), req, "admin-1")
	if !errors.Is(err, settlement.ErrPercentageSum) {
		t.Fatalf("expected ErrPercentageSum, got %v", err)
	}
	if repo.created != nil || len(pub.events) != 0 {
		t.Fatal("expected no write and no event for a rejected distribution")
	}
}

func TestCreateDistributionPersistsAndPublishes(t *testing.T) {
	repo := &treasuryRepoStub{}
	pub := &publisherStub{}
	svc := newTestService(repo, pub, day(2025, time.March, 10))

	req := settlement.DistributionRequest{
		Currency:         "eur",
		TotalAmount:      10001,
		InvestmentAmount: 1,
		Note:             "  Q1  ",
		Shares: []settlement.ShareRequest{
			{AdminID: "A", Percentage: decimal.RequireFromString("60")},
			{AdminID: "B", Percentage: decimal.RequireFromString("40")},
		},
	}
	got, err := svc.CreateDistribution(context.Background(), req, "admin-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "dist-1" || got.Currency != "EUR" || got.DistributedAmount != 10000 || got.Note != "Q1" || got.CreatedBy != "admin-1" {
		t.Fatalf("unexpected distribution: %+v", got)
	}
	if got.Shares[0].Amount != 6000 || got.Shares[1].Amount != 4000 {
		t.Fatalf("unexpected shares: %+v", got.Shares)
	}
	if len(pub.events) != 1 || pub.events[0].routingKey != RoutingDistributionCreated || pub.events[0].exchange != DefaultExchange {
		t.Fatalf("expected one distribution event, got %+v", pub.events)
	}
}

func TestListDistributionsClampsLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: 20},
		{in: -3, want: 20},
		{in: 50, want: 50},
		{in: 1000, want: 100},
	}
	for _, tt := range tests {
		repo := &treasuryRepoStub{}
		svc := newTestService(repo, nil, day(2025, time.March, 10))
		if _, err := svc.ListDistributions(context.Background(), tt.in); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.listLimit != tt.want {
			t.Fatalf("limit %d: expected %d, got %d", tt.in, tt.want, repo.listLimit)
		}
	}
}

func TestRecordSchedulePayment(t *testing.T) {
	base := domain.PaymentSchedule{
		ID: "s1", QuoteID: "q1", StudentID: "st1", Amount: 1000, PaidAmount: 600,
		Currency: "EUR", DueDate: day(2025, time.March, 1), Status: domain.SchedulePartiallyPaid,
	}
	accounts := map[string]domain.BankAccount{
		"eur": {ID: "eur", Currency: "EUR", IsActive: true},
		"usd": {ID: "usd", Currency: "USD", IsActive: true},
		"old": {ID: "old", Currency: "EUR"},
	}

	t.Run("overpayment", func(t *testing.T) {
		repo := &treasuryRepoStub{schedule: &base, accounts: accounts}
		svc := newTestService(repo, &publisherStub{}, day(2025, time.March, 10))
		_, err := svc.RecordSchedulePayment(context.Background(), "s1", PaymentInput{Amount: 401})
		if !errors.Is(err, domain.ErrOverpayment) {
			t.Fatalf("expected ErrOverpayment, got %v", err)
		}
		if repo.savedSchedule != nil {
			t.Fatal("expected nothing saved")
		}
	})

	t.Run("currency mismatch", func(t *testing.T) {
		repo := &treasuryRepoStub{schedule: &base, accounts: accounts}
		svc := newTestService(repo, &publisherStub{}, day(2025, time.March, 10))
		_, err := svc.RecordSchedulePayment(context.Background(), "s1", PaymentInput{Amount: 100, AccountID: "usd"})
		if !errors.Is(err, domain.ErrCurrencyMismatch) {
			t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
		}
	})

	t.Run("inactive account", func(t *testing.T) {
		repo := &treasuryRepoStub{schedule: &base, accounts: accounts}
		svc := newTestService(repo, &publisherStub{}, day(2025, time.March, 10))
		_, err := svc.RecordSchedulePayment(context.Background(), "s1", PaymentInput{Amount: 100, AccountID: "old"})
		if !errors.Is(err, domain.ErrInactive) {
			t.Fatalf("expected ErrInactive, got %v", err)
		}
	})

	t.Run("invalid date", func(t *testing.T) {
		repo := &treasuryRepoStub{schedule: &base, accounts: accounts}
		svc := newTestService(repo, &publisherStub{}, day(2025, time.March, 10))
		_, err := svc.RecordSchedulePayment(context.Background(), "s1", PaymentInput{Amount: 100, PaidOn: "10/03/2025"})
		if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("expected ErrInvalidDate, got %v", err)
		}
	})

	t.Run("completes schedule with credit", func(t *testing.T) {
		repo := &treasuryRepoStub{schedule: &base, accounts: accounts}
		pub := &publisherStub{}
		svc := newTestService(repo, pub, day(2025, time.March, 10))
		got, err := svc.RecordSchedulePayment(context.Background(), "s1", PaymentInput{Amount: 400, AccountID: "eur", PaidOn: "2025-03-09"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status != domain.SchedulePaid || got.PaidAmount != 1000 {
			t.Fatalf("expected paid schedule, got %+v", got)
		}
		if repo.savedPrevious != 600 {
			t.Fatalf("expected guard on previous paid amount 600, got %d", repo.savedPrevious)
		}
		m := repo.savedMovement
		if m == nil || m.Amount != 400 || m.Currency != "EUR" || m.Kind != domain.TransactionSchedulePayment || !m.OccurredOn.Equal(day(2025, time.March, 9)) {
			t.Fatalf("unexpected movement: %+v", m)
		}
		if len(pub.events) != 1 || pub.events[0].routingKey != RoutingSchedulePaymentRecorded {
			t.Fatalf("expected payment event, got %+v", pub.events)
		}
	})

	t.Run("partial payment stays overdue", func(t *testing.T) {
		repo := &treasuryRepoStub{schedule: &base, accounts: accounts}
		svc := newTestService(repo, nil, day(2025, time.March, 10))
		got, err := svc.RecordSchedulePayment(context.Background(), "s1", PaymentInput{Amount: 100})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.savedSchedule.Status != domain.SchedulePartiallyPaid {
			t.Fatalf("expected stored status PARTIALLY_PAID, got %s", repo.savedSchedule.Status)
		}
		if got.Status != domain.ScheduleOverdue {
			t.Fatalf("expected displayed status OVERDUE, got %s", got.Status)
		}
		if repo.savedMovement != nil {
			t.Fatal("expected no bank movement without an account")
		}
	})

	t.Run("publish failure does not fail the payment", func(t *testing.T) {
		repo := &treasuryRepoStub{schedule: &base, accounts: accounts}
		svc := newTestService(repo, &publisherStub{err: errors.New("broker down")}, day(2025, time.March, 10))
		if _, err := svc.RecordSchedulePayment(context.Background(), "s1", PaymentInput{Amount: 100}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestPayRecurringExpenseUsesDefaultAccount(t *testing.T) {
	accountID := "eur"
	expense := domain.RecurringExpense{
		ID: "rent", Label: "Rent", Amount: 120000, Currency: "EUR", Frequency: domain.Monthly,
		NextDueDate: day(2025, time.January, 31), PayingAccountID: &accountID, IsActive: true,
	}
	repo := &treasuryRepoStub{
		expense:  &expense,
		accounts: map[string]domain.BankAccount{"eur": {ID: "eur", Currency: "EUR", IsActive: true}},
	}
	pub := &publisherStub{}
	svc := newTestService(repo, pub, day(2025, time.February, 3))

	got, err := svc.PayRecurringExpense(context.Background(), "rent", SettlementInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.NextDueDate.Equal(day(2025, time.February, 28)) {
		t.Fatalf("expected next due 2025-02-28, got %s", got.NextDueDate.Format(time.DateOnly))
	}
	if got.LastPaidDate == nil || !got.LastPaidDate.Equal(day(2025, time.February, 3)) {
		t.Fatalf("expected last paid today, got %v", got.LastPaidDate)
	}
	if !repo.savedPrevDue.Equal(day(2025, time.January, 31)) {
		t.Fatalf("expected guard on previous due date, got %s", repo.savedPrevDue)
	}
	if repo.savedMovement == nil || repo.savedMovement.Amount != -120000 || repo.savedMovement.AccountID != "eur" {
		t.Fatalf("expected debit on default account, got %+v", repo.savedMovement)
	}
	if len(pub.events) != 1 || pub.events[0].routingKey != RoutingRecurringExpensePaid {
		t.Fatalf("expected expense event, got %+v", pub.events)
	}
}

func TestPayRecurringExpenseRejectsInactive(t *testing.T) {
	expense := domain.RecurringExpense{ID: "old", Frequency: domain.Monthly, NextDueDate: day(2025, time.January, 1)}
	repo := &treasuryRepoStub{expense: &expense}
	svc := newTestService(repo, nil, day(2025, time.February, 3))

	if _, err := svc.PayRecurringExpense(context.Background(), "old", SettlementInput{}); !errors.Is(err, domain.ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
	if repo.savedExpense != nil {
		t.Fatal("expected nothing saved")
	}
}

func TestTransitionMission(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.MissionStatus
		action  string
		account string
		wantErr error
		want    domain.MissionStatus
		debit   bool
	}{
		{name: "validate", status: domain.MissionPending, action: "validate", want: domain.MissionValidated},
		{name: "pay with account", status: domain.MissionValidated, action: "PAY", account: "eur", want: domain.MissionPaid, debit: true},
		{name: "cancel validated", status: domain.MissionValidated, action: "cancel", want: domain.MissionCancelled},
		{name: "pay pending", status: domain.MissionPending, action: "pay", wantErr: domain.ErrInvalidTransition},
		{name: "reopen paid", status: domain.MissionPaid, action: "validate", wantErr: domain.ErrInvalidTransition},
		{name: "unknown", status: domain.MissionPending, action: "archive", wantErr: ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mission := domain.Mission{ID: "m1", Amount: 3000, Currency: "EUR", Status: tt.status}
			repo := &treasuryRepoStub{
				mission:  &mission,
				accounts: map[string]domain.BankAccount{"eur": {ID: "eur", Currency: "EUR", IsActive: true}},
			}
			pub := &publisherStub{}
			svc := newTestService(repo, pub, day(2025, time.March, 10))

			got, err := svc.TransitionMission(context.Background(), "m1", tt.action, SettlementInput{AccountID: tt.account})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if repo.missionUpdate != nil || len(pub.events) != 0 {
					t.Fatal("expected no write and no event")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tt.want || repo.missionUpdate[0] != tt.status || repo.missionUpdate[1] != tt.want {
				t.Fatalf("expected %s -> %s, got %v", tt.status, tt.want, repo.missionUpdate)
			}
			if tt.debit && (repo.savedMovement == nil || repo.savedMovement.Amount != -3000) {
				t.Fatalf("expected debit of 3000, got %+v", repo.savedMovement)
			}
			if !tt.debit && repo.savedMovement != nil {
				t.Fatalf("expected no movement, got %+v", repo.savedMovement)
			}
			if len(pub.events) != 1 || pub.events[0].routingKey != RoutingMissionStatusChanged {
				t.Fatalf("expected status event, got %+v", pub.events)
			}
		})
	}
}

func TestTransitionQuote(t *testing.T) {
	quote := domain.Quote{ID: "q1", StudentID: "st1", Currency: "EUR", Status: domain.QuoteSent}
	repo := &treasuryRepoStub{quote: &quote}
	pub := &publisherStub{}
	svc := newTestService(repo, pub, day(2025, time.March, 10))

	got, err := svc.TransitionQuote(context.Background(), "q1", "validate")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.QuoteValidated || repo.quoteUpdate[0] != domain.QuoteSent {
		t.Fatalf("unexpected transition: %+v %v", got, repo.quoteUpdate)
	}
	if len(pub.events) != 1 || pub.events[0].routingKey != RoutingQuoteStatusChanged {
		t.Fatalf("expected quote event, got %+v", pub.events)
	}

	if _, err := svc.TransitionQuote(context.Background(), "q1", "send"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition sending a SENT quote, got %v", err)
	}
}
