/**
 * @description
 * Recurring operating expenses (rent, tooling, subscriptions).
 */
package domain

import "time"

// Frequency is the recurrence period of an expense.
type Frequency string

const (
	Monthly   Frequency = "MONTHLY"
	Quarterly Frequency = "QUARTERLY"
	Yearly    Frequency = "YEARLY"
)

// Months returns the length of the period in months.
func (f Frequency) Months() (int, error) {
	switch f {
	case Monthly:
		return 1, nil
	case Quarterly:
		return 3, nil
	case Yearly:
		return 12, nil
	}
	return 0, ErrUnknownFrequency
}

// Advance returns the due date one period after d.
func (f Frequency) Advance(d time.Time) (time.Time, error) {
	n, err := f.Months()
	if err != nil {
		return d, err
	}
	return AddMonthsClamped(d, n), nil
}

// RecurringExpense is an expense that falls due every period.
type RecurringExpense struct {
	ID              string     `json:"id"`
	Label           string     `json:"label"`
	Category        string     `json:"category"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
	Frequency       Frequency  `json:"frequency"`
	NextDueDate     time.Time  `json:"nextDueDate"`
	LastPaidDate    *time.Time `json:"lastPaidDate,omitempty"`
	PayingAccountID *string    `json:"payingAccountId,omitempty"`
	IsActive        bool       `json:"isActive"`
}

// MarkPaid records a payment on paidOn and moves nextDueDate one period forward.
func (e RecurringExpense) MarkPaid(paidOn time.Time) (RecurringExpense, error) {
	if !e.IsActive {
		return e, ErrInactive
	}
	next, err := e.Frequency.Advance(e.NextDueDate)
	if err != nil {
		return e, err
	}
	paid := paidOn
	e.LastPaidDate = &paid
	e.NextDueDate = next
	return e, nil
}
