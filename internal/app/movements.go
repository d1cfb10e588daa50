package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mentora/treasury-service/internal/domain"
)

// PaymentInput records cash collected on a schedule.
type PaymentInput struct {
	Amount    int64  `json:"amount" validate:"gt=0"`
	PaidOn    string `json:"paidOn" validate:"omitempty,datetime=2006-01-02"`
	AccountID string `json:"accountId" validate:"omitempty,uuid"`
}

// SettlementInput carries the optional date and account of an outgoing payment.
type SettlementInput struct {
	PaidOn    string `json:"paidOn" validate:"omitempty,datetime=2006-01-02"`
	AccountID string `json:"accountId" validate:"omitempty,uuid"`
}

// RecordSchedulePayment adds a payment to an installment. When an account is
// given, the matching credit is written in the same transaction.
func (s *Service) RecordSchedulePayment(ctx context.Context, scheduleID string, in PaymentInput) (*domain.PaymentSchedule, error) {
	paidOn, err := s.resolveDate(in.PaidOn)
	if err != nil {
		return nil, err
	}

	schedule, err := s.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	updated, err := schedule.ApplyPayment(in.Amount)
	if err != nil {
		return nil, err
	}

	movement, err := s.movement(ctx, in.AccountID, updated.Currency, in.Amount, paidOn,
		domain.TransactionSchedulePayment, "payment_schedule", updated.ID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveSchedulePayment(ctx, updated, schedule.PaidAmount, movement); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, RoutingSchedulePaymentRecorded, schedulePaymentEvent{
		ScheduleID: updated.ID,
		QuoteID:    updated.QuoteID,
		StudentID:  updated.StudentID,
		Amount:     in.Amount,
		PaidAmount: updated.PaidAmount,
		Remaining:  updated.Remaining(),
		Currency:   updated.Currency,
		Status:     updated.Status,
		PaidOn:     paidOn.Format(time.DateOnly),
		AccountID:  in.AccountID,
		Timestamp:  s.now(),
	})

	updated.Status = domain.DisplayScheduleStatus(updated.DueDate, updated.PaidAmount, updated.Amount, s.Today())
	return &updated, nil
}

// PayRecurringExpense marks the current period of an active expense as paid and
// moves its next due date one period forward. The paying account defaults to
// the expense's own account.
func (s *Service) PayRecurringExpense(ctx context.Context, expenseID string, in SettlementInput) (*domain.RecurringExpense, error) {
	paidOn, err := s.resolveDate(in.PaidOn)
	if err != nil {
		return nil, err
	}

	expense, err := s.repo.GetRecurringExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	updated, err := expense.MarkPaid(paidOn)
	if err != nil {
		return nil, err
	}

	accountID := in.AccountID
	if accountID == "" && expense.PayingAccountID != nil {
		accountID = *expense.PayingAccountID
	}
	movement, err := s.movement(ctx, accountID, expense.Currency, -expense.Amount, paidOn,
		domain.TransactionExpensePayment, "recurring_expense", expense.ID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveRecurringExpensePayment(ctx, updated, expense.NextDueDate, movement); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, RoutingRecurringExpensePaid, recurringExpensePaidEvent{
		ExpenseID:   updated.ID,
		Label:       updated.Label,
		Amount:      updated.Amount,
		Currency:    updated.Currency,
		PaidOn:      paidOn.Format(time.DateOnly),
		PaidDueDate: expense.NextDueDate.Format(time.DateOnly),
		NextDueDate: updated.NextDueDate.Format(time.DateOnly),
		AccountID:   accountID,
		Timestamp:   s.now(),
	})

	return &updated, nil
}

// TransitionMission applies validate, pay or cancel to a mission. Paying with
// an account records the debit in the same transaction.
func (s *Service) TransitionMission(ctx context.Context, missionID, action string, in SettlementInput) (*domain.Mission, error) {
	act := domain.MissionAction(strings.ToLower(strings.TrimSpace(action)))
	switch act {
	case domain.MissionValidate, domain.MissionPay, domain.MissionCancel:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	paidOn, err := s.resolveDate(in.PaidOn)
	if err != nil {
		return nil, err
	}

	mission, err := s.repo.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	next, err := domain.NextMissionStatus(mission.Status, act)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot %s a %s mission", err, act, mission.Status)
	}

	var movement *domain.BankTransaction
	if act == domain.MissionPay {
		movement, err = s.movement(ctx, in.AccountID, mission.Currency, -mission.Amount, paidOn,
			domain.TransactionMissionPayment, "mission", mission.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateMissionStatus(ctx, mission.ID, mission.Status, next, movement); err != nil {
		return nil, err
	}

	previous := mission.Status
	mission.Status = next
	mission.UpdatedAt = s.now()

	s.publishEvent(ctx, RoutingMissionStatusChanged, statusChangedEvent{
		EntityID:  mission.ID,
		From:      string(previous),
		To:        string(next),
		Amount:    mission.Amount,
		Currency:  mission.Currency,
		Timestamp: s.now(),
	})

	return mission, nil
}

// TransitionQuote applies send, validate or reject to a quote.
func (s *Service) TransitionQuote(ctx context.Context, quoteID, action string) (*domain.Quote, error) {
	act := domain.QuoteAction(strings.ToLower(strings.TrimSpace(action)))
	switch act {
	case domain.QuoteSend, domain.QuoteValidate, domain.QuoteReject:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	quote, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	next, err := domain.NextQuoteStatus(quote.Status, act)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot %s a %s quote", err, act, quote.Status)
	}

	if err := s.repo.UpdateQuoteStatus(ctx, quote.ID, quote.Status, next); err != nil {
		return nil, err
	}

	previous := quote.Status
	quote.Status = next
	quote.UpdatedAt = s.now()

	s.publishEvent(ctx, RoutingQuoteStatusChanged, statusChangedEvent{
		EntityID:  quote.ID,
		From:      string(previous),
		To:        string(next),
		Currency:  quote.Currency,
		StudentID: quote.StudentID,
		Timestamp: s.now(),
	})

	return quote, nil
}

// movement builds the bank transaction for a payment, or nil when no account is given.
func (s *Service) movement(ctx context.Context, accountID, currency string, amount int64, on time.Time, kind, refType, refID string) (*domain.BankTransaction, error) {
	if accountID == "" {
		return nil, nil
	}
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account %s", domain.ErrInactive, account.ID)
	}
	if err := account.CheckCurrency(currency); err != nil {
		return nil, fmt.Errorf("%w: account is %s, payment is %s", err, account.Currency, currency)
	}

	return &domain.BankTransaction{
		AccountID:     account.ID,
		Amount:        amount,
		Currency:      currency,
		Kind:          kind,
		ReferenceType: refType,
		ReferenceID:   refID,
		OccurredOn:    on,
	}, nil
}

// resolveDate parses a YYYY-MM-DD date, defaulting to today.
func (s *Service) resolveDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.Today(), nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}
