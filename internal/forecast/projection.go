/**
 * @description
 * Month-bucketed cash projection per currency.
 *
 * @notes
 * - Every currency is an independent ledger; nothing is converted.
 * - Opening balance of a month is the closing balance of the previous month.
 *   Cash carries forward and is never reset.
 * - Items due before the current month are kept: they produce backlog rows from
 *   the earliest overdue month through the month before the current one, with
 *   no calendar month skipped, so unrecognized backlog shows up as a lower
 *   (possibly negative) current-month opening balance.
 */
package forecast

import (
	"sort"
	"time"

	"github.com/mentora/treasury-service/internal/domain"
)

// DefaultMonths is used whenever the requested horizon is not supported.
const DefaultMonths = 6

// NormalizeMonths maps any unsupported horizon to DefaultMonths.
func NormalizeMonths(months int) int {
	switch months {
	case 3, 6, 12:
		return months
	default:
		return DefaultMonths
	}
}

// WindowEnd returns the first day after the projection window.
func WindowEnd(today time.Time, months int) time.Time {
	return domain.AddMonthsClamped(domain.MonthStart(today), NormalizeMonths(months))
}

// Expense sources.
const (
	SourceMission   = "MISSION"
	SourceRecurring = "RECURRING"
)

// Input is everything the projection needs, already loaded from the store.
// Today is a civil date as returned by domain.Day.
type Input struct {
	Today     time.Time
	Months    int
	Accounts  []domain.BankAccount
	Schedules []domain.PaymentSchedule
	Missions  []domain.Mission
	Recurring []domain.RecurringExpense
}

// Row is one (month, currency) line of the projection table.
type Row struct {
	Month            string `json:"month"`
	Currency         string `json:"currency"`
	OpeningBalance   int64  `json:"openingBalance"`
	ExpectedRevenue  int64  `json:"expectedRevenue"`
	ExpectedExpenses int64  `json:"expectedExpenses"`
	NetFlow          int64  `json:"netFlow"`
	ClosingBalance   int64  `json:"closingBalance"`
	IsBacklog        bool   `json:"isBacklog"`
}

// RevenueDetail is the remaining part of one installment expected in a month.
type RevenueDetail struct {
	Month       string    `json:"month"`
	Currency    string    `json:"currency"`
	ScheduleID  string    `json:"scheduleId"`
	QuoteID     string    `json:"quoteId"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	DueDate     time.Time `json:"dueDate"`
	Amount      int64     `json:"amount"`
	IsOverdue   bool      `json:"isOverdue"`
}

// ExpenseDetail is one mission or one recurring-expense instance expected in a month.
type ExpenseDetail struct {
	Month       string    `json:"month"`
	Currency    string    `json:"currency"`
	Source      string    `json:"source"`
	ReferenceID string    `json:"referenceId"`
	Label       string    `json:"label"`
	Category    string    `json:"category,omitempty"`
	DueDate     time.Time `json:"dueDate"`
	Amount      int64     `json:"amount"`
}

// RevenueSection groups revenue details with their per-currency totals.
type RevenueSection struct {
	Details []RevenueDetail  `json:"details"`
	Totals  map[string]int64 `json:"totals"`
}

// ExpenseSection groups expense details with their per-currency totals.
type ExpenseSection struct {
	Details []ExpenseDetail  `json:"details"`
	Totals  map[string]int64 `json:"totals"`
}

// Projection is the forecast response.
type Projection struct {
	Months     int            `json:"months"`
	Projection []Row          `json:"projection"`
	Revenue    RevenueSection `json:"revenue"`
	Expenses   ExpenseSection `json:"expenses"`
}

// Project computes the month-by-month projection described by in.
func Project(in Input) Projection {
	months := NormalizeMonths(in.Months)
	today := in.Today
	current := domain.MonthStart(today)
	end := domain.AddMonthsClamped(current, months)

	revenue := collectRevenue(in.Schedules, today, end)
	expenses := collectExpenses(in.Missions, in.Recurring, today, end)

	opening := make(map[string]int64)
	currencies := make(map[string]struct{})
	for _, a := range in.Accounts {
		if !a.IsAdminOwned || !a.IsActive {
			continue
		}
		opening[a.Currency] += a.Balance
		currencies[a.Currency] = struct{}{}
	}

	type bucket struct{ revenue, expenses int64 }
	flows := make(map[string]map[string]*bucket)
	add := func(month, currency string, rev, exp int64) {
		currencies[currency] = struct{}{}
		if flows[month] == nil {
			flows[month] = make(map[string]*bucket)
		}
		b := flows[month][currency]
		if b == nil {
			b = &bucket{}
			flows[month][currency] = b
		}
		b.revenue += rev
		b.expenses += exp
	}
	for _, d := range revenue.Details {
		add(d.Month, d.Currency, d.Amount, 0)
	}
	for _, d := range expenses.Details {
		add(d.Month, d.Currency, 0, d.Amount)
	}

	first := current
	for key := range flows {
		if m, err := time.Parse(domain.MonthLayout, key); err == nil && m.Before(first) {
			first = m
		}
	}
	var monthKeys []string
	for m := first; m.Before(current); m = domain.AddMonthsClamped(m, 1) {
		monthKeys = append(monthKeys, domain.MonthKey(m))
	}
	backlog := len(monthKeys)
	for i := 0; i < months; i++ {
		monthKeys = append(monthKeys, domain.MonthKey(domain.AddMonthsClamped(current, i)))
	}

	codes := make([]string, 0, len(currencies))
	for c := range currencies {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	rows := make([]Row, 0, len(monthKeys)*len(codes))
	balance := make(map[string]int64, len(codes))
	for c := range opening {
		balance[c] = opening[c]
	}
	for i, month := range monthKeys {
		for _, c := range codes {
			row := Row{Month: month, Currency: c, OpeningBalance: balance[c], IsBacklog: i < backlog}
			if b := flows[month][c]; b != nil {
				row.ExpectedRevenue = b.revenue
				row.ExpectedExpenses = b.expenses
			}
			row.NetFlow = row.ExpectedRevenue - row.ExpectedExpenses
			row.ClosingBalance = row.OpeningBalance + row.NetFlow
			balance[c] = row.ClosingBalance
			rows = append(rows, row)
		}
	}

	return Projection{
		Months:     months,
		Projection: rows,
		Revenue:    revenue,
		Expenses:   expenses,
	}
}

func collectRevenue(schedules []domain.PaymentSchedule, today, end time.Time) RevenueSection {
	section := RevenueSection{Details: []RevenueDetail{}, Totals: map[string]int64{}}
	for _, s := range schedules {
		remaining := s.Remaining()
		if remaining == 0 || !s.DueDate.Before(end) {
			continue
		}
		section.Details = append(section.Details, RevenueDetail{
			Month:       domain.MonthKey(s.DueDate),
			Currency:    s.Currency,
			ScheduleID:  s.ID,
			QuoteID:     s.QuoteID,
			StudentID:   s.StudentID,
			StudentName: s.StudentName,
			DueDate:     s.DueDate,
			Amount:      remaining,
			IsOverdue:   domain.IsOverdue(s.DueDate, s.PaidAmount, s.Amount, today),
		})
		section.Totals[s.Currency] += remaining
	}
	sort.SliceStable(section.Details, func(i, j int) bool {
		a, b := section.Details[i], section.Details[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.Currency != b.Currency {
			return a.Currency < b.Currency
		}
		return a.ScheduleID < b.ScheduleID
	})
	return section
}

func collectExpenses(missions []domain.Mission, recurring []domain.RecurringExpense, today, end time.Time) ExpenseSection {
	section := ExpenseSection{Details: []ExpenseDetail{}, Totals: map[string]int64{}}
	push := func(d ExpenseDetail) {
		section.Details = append(section.Details, d)
		section.Totals[d.Currency] += d.Amount
	}

	for _, m := range missions {
		if !m.IsOutstanding() {
			continue
		}
		due := today
		if m.DueDate != nil {
			due = *m.DueDate
		}
		if !due.Before(end) {
			continue
		}
		push(ExpenseDetail{
			Month:       domain.MonthKey(due),
			Currency:    m.Currency,
			Source:      SourceMission,
			ReferenceID: m.ID,
			Label:       m.Title,
			Category:    m.TeamMemberName,
			DueDate:     due,
			Amount:      m.Amount,
		})
	}

	for _, e := range recurring {
		if !e.IsActive {
			continue
		}
		for _, due := range Occurrences(e, end) {
			push(ExpenseDetail{
				Month:       domain.MonthKey(due),
				Currency:    e.Currency,
				Source:      SourceRecurring,
				ReferenceID: e.ID,
				Label:       e.Label,
				Category:    e.Category,
				DueDate:     due,
				Amount:      e.Amount,
			})
		}
	}

	sort.SliceStable(section.Details, func(i, j int) bool {
		a, b := section.Details[i], section.Details[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.Currency != b.Currency {
			return a.Currency < b.Currency
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ReferenceID < b.ReferenceID
	})
	return section
}

// Occurrences lists the due dates of e from its next due date up to (excluding) end.
// Each instance is computed from the anchor date so month-end expenses stay on
// the last day of every month. An unknown frequency yields the single next instance.
func Occurrences(e domain.RecurringExpense, end time.Time) []time.Time {
	var out []time.Time
	if !e.NextDueDate.Before(end) {
		return out
	}
	step, err := e.Frequency.Months()
	if err != nil {
		return append(out, e.NextDueDate)
	}
	for k := 0; ; k++ {
		due := domain.AddMonthsClamped(e.NextDueDate, k*step)
		if !due.Before(end) {
			return out
		}
		out = append(out, due)
	}
}
