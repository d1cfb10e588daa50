/**
 * @description
 * Student quotes and their payment schedules (installments).
 *
 * @notes
 * - OVERDUE is a view computed from (dueDate, paidAmount, amount, today). It is
 *   never written to the store.
 */
package domain

import "time"

// ScheduleStatus is the status of one installment.
type ScheduleStatus string

const (
	SchedulePending       ScheduleStatus = "PENDING"
	SchedulePartiallyPaid ScheduleStatus = "PARTIALLY_PAID"
	SchedulePaid          ScheduleStatus = "PAID"
	ScheduleOverdue       ScheduleStatus = "OVERDUE"
)

// PaymentSchedule is one installment of a validated quote.
type PaymentSchedule struct {
	ID          string         `json:"id"`
	QuoteID     string         `json:"quoteId"`
	StudentID   string         `json:"studentId"`
	StudentName string         `json:"studentName"`
	Amount      int64          `json:"amount"`
	PaidAmount  int64          `json:"paidAmount"`
	Currency    string         `json:"currency"`
	DueDate     time.Time      `json:"dueDate"`
	Status      ScheduleStatus `json:"status"`
}

// Remaining returns amount − paidAmount, never negative.
func (s PaymentSchedule) Remaining() int64 {
	if s.PaidAmount >= s.Amount {
		return 0
	}
	return s.Amount - s.PaidAmount
}

// IsFullyPaid reports whether nothing is left to collect.
func (s PaymentSchedule) IsFullyPaid() bool {
	return s.PaidAmount >= s.Amount
}

// IsOverdue reports whether the installment was due before today and is not fully paid.
func IsOverdue(dueDate time.Time, paidAmount, amount int64, today time.Time) bool {
	return paidAmount < amount && dueDate.Before(today)
}

// StoredScheduleStatus is the persisted status for a paid amount.
func StoredScheduleStatus(paidAmount, amount int64) ScheduleStatus {
	switch {
	case paidAmount >= amount:
		return SchedulePaid
	case paidAmount > 0:
		return SchedulePartiallyPaid
	default:
		return SchedulePending
	}
}

// DisplayScheduleStatus is the status shown to admins, including the derived OVERDUE.
func DisplayScheduleStatus(dueDate time.Time, paidAmount, amount int64, today time.Time) ScheduleStatus {
	if IsOverdue(dueDate, paidAmount, amount, today) {
		return ScheduleOverdue
	}
	return StoredScheduleStatus(paidAmount, amount)
}

// ApplyPayment returns the installment after collecting amount, enforcing paidAmount ≤ amount.
func (s PaymentSchedule) ApplyPayment(amount int64) (PaymentSchedule, error) {
	if amount <= 0 {
		return s, ErrInvalidAmount
	}
	if s.PaidAmount+amount > s.Amount {
		return s, ErrOverpayment
	}
	s.PaidAmount += amount
	s.Status = StoredScheduleStatus(s.PaidAmount, s.Amount)
	return s, nil
}

// QuoteStatus is the lifecycle of a student quote.
type QuoteStatus string

const (
	QuoteDraft     QuoteStatus = "DRAFT"
	QuoteSent      QuoteStatus = "SENT"
	QuoteValidated QuoteStatus = "VALIDATED"
	QuoteRejected  QuoteStatus = "REJECTED"
)

// Quote is the commercial offer a student's schedules belong to.
type Quote struct {
	ID        string      `json:"id"`
	StudentID string      `json:"studentId"`
	Currency  string      `json:"currency"`
	Status    QuoteStatus `json:"status"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// QuoteAction is an admin action on a quote.
type QuoteAction string

const (
	QuoteSend     QuoteAction = "send"
	QuoteValidate QuoteAction = "validate"
	QuoteReject   QuoteAction = "reject"
)

var quoteTransitions = map[QuoteAction]struct {
	from QuoteStatus
	to   QuoteStatus
}{
	QuoteSend:     {from: QuoteDraft, to: QuoteSent},
	QuoteValidate: {from: QuoteSent, to: QuoteValidated},
	QuoteReject:   {from: QuoteSent, to: QuoteRejected},
}

// NextQuoteStatus returns the status reached by applying action to current.
func NextQuoteStatus(current QuoteStatus, action QuoteAction) (QuoteStatus, error) {
	t, ok := quoteTransitions[action]
	if !ok || t.from != current {
		return current, ErrInvalidTransition
	}
	return t.to, nil
}
