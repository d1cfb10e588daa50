package forecast

import (
	"sort"
	"time"

	"github.com/mentora/treasury-service/internal/domain"
)

// UpcomingWindowDays is the look-ahead of the upcoming payments list.
const UpcomingWindowDays = 30

// StudentBalance is the receivable position of one student in one currency.
type StudentBalance struct {
	StudentID      string `json:"studentId"`
	StudentName    string `json:"studentName"`
	Currency       string `json:"currency"`
	TotalQuote     int64  `json:"totalQuote"`
	TotalPaid      int64  `json:"totalPaid"`
	TotalRemaining int64  `json:"totalRemaining"`
	OverdueAmount  int64  `json:"overdueAmount"`
	IsOverdue      bool   `json:"isOverdue"`
	ScheduleCount  int    `json:"scheduleCount"`
}

// UpcomingPayment is an unpaid installment due within the look-ahead window.
type UpcomingPayment struct {
	ScheduleID   string                `json:"scheduleId"`
	QuoteID      string                `json:"quoteId"`
	StudentID    string                `json:"studentId"`
	StudentName  string                `json:"studentName"`
	Currency     string                `json:"currency"`
	DueDate      time.Time             `json:"dueDate"`
	Amount       int64                 `json:"amount"`
	PaidAmount   int64                 `json:"paidAmount"`
	Remaining    int64                 `json:"remaining"`
	DaysUntilDue int                   `json:"daysUntilDue"`
	Status       domain.ScheduleStatus `json:"status"`
}

// CurrencyTotals sums every student figure sharing a currency.
type CurrencyTotals struct {
	TotalQuote     int64 `json:"totalQuote"`
	TotalPaid      int64 `json:"totalPaid"`
	TotalRemaining int64 `json:"totalRemaining"`
	OverdueAmount  int64 `json:"overdueAmount"`
}

// BFRReport is the working-capital report.
type BFRReport struct {
	Students         []StudentBalance          `json:"students"`
	OverdueStudents  []StudentBalance          `json:"overdueStudents"`
	UpcomingPayments []UpcomingPayment         `json:"upcomingPayments"`
	TotalsByCurrency map[string]CurrencyTotals `json:"totalsByCurrency"`
}

type studentKey struct {
	studentID string
	currency  string
}

// BuildBFR groups schedules by student and currency. The caller passes only
// schedules of validated quotes.
func BuildBFR(today time.Time, schedules []domain.PaymentSchedule) BFRReport {
	report := BFRReport{
		Students:         []StudentBalance{},
		OverdueStudents:  []StudentBalance{},
		UpcomingPayments: []UpcomingPayment{},
		TotalsByCurrency: map[string]CurrencyTotals{},
	}

	byStudent := make(map[studentKey]*StudentBalance)
	for _, s := range schedules {
		key := studentKey{studentID: s.StudentID, currency: s.Currency}
		sb := byStudent[key]
		if sb == nil {
			sb = &StudentBalance{StudentID: s.StudentID, StudentName: s.StudentName, Currency: s.Currency}
			byStudent[key] = sb
		}
		sb.ScheduleCount++
		sb.TotalQuote += s.Amount
		sb.TotalPaid += s.PaidAmount
		if domain.IsOverdue(s.DueDate, s.PaidAmount, s.Amount, today) {
			sb.OverdueAmount += s.Remaining()
		}

		if s.IsFullyPaid() {
			continue
		}
		days := domain.DaysBetween(today, s.DueDate)
		if days < 0 || days > UpcomingWindowDays {
			continue
		}
		report.UpcomingPayments = append(report.UpcomingPayments, UpcomingPayment{
			ScheduleID:   s.ID,
			QuoteID:      s.QuoteID,
			StudentID:    s.StudentID,
			StudentName:  s.StudentName,
			Currency:     s.Currency,
			DueDate:      s.DueDate,
			Amount:       s.Amount,
			PaidAmount:   s.PaidAmount,
			Remaining:    s.Remaining(),
			DaysUntilDue: days,
			Status:       domain.DisplayScheduleStatus(s.DueDate, s.PaidAmount, s.Amount, today),
		})
	}

	for _, sb := range byStudent {
		sb.TotalRemaining = sb.TotalQuote - sb.TotalPaid
		sb.IsOverdue = sb.OverdueAmount > 0
		report.Students = append(report.Students, *sb)

		totals := report.TotalsByCurrency[sb.Currency]
		totals.TotalQuote += sb.TotalQuote
		totals.TotalPaid += sb.TotalPaid
		totals.TotalRemaining += sb.TotalRemaining
		totals.OverdueAmount += sb.OverdueAmount
		report.TotalsByCurrency[sb.Currency] = totals
	}

	sort.Slice(report.Students, func(i, j int) bool {
		a, b := report.Students[i], report.Students[j]
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.Currency < b.Currency
	})

	for _, sb := range report.Students {
		if sb.IsOverdue {
			report.OverdueStudents = append(report.OverdueStudents, sb)
		}
	}
	sort.SliceStable(report.OverdueStudents, func(i, j int) bool {
		return report.OverdueStudents[i].OverdueAmount > report.OverdueStudents[j].OverdueAmount
	})

	sort.SliceStable(report.UpcomingPayments, func(i, j int) bool {
		a, b := report.UpcomingPayments[i], report.UpcomingPayments[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		return a.ScheduleID < b.ScheduleID
	})

	return report
}
