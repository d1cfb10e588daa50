/**
 * @description
 * Calendar helpers shared by the treasury computations. Due dates are civil
 * dates (DATE columns), represented as midnight UTC; "today" is derived from
 * the business timezone and normalized the same way so the two compare exactly.
 */
package domain

import "time"

// MonthLayout is the wire format of projection months.
const MonthLayout = "2006-01"

// Day returns the civil date of t in loc, as midnight UTC.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of the month containing d.
func MonthStart(d time.Time) time.Time {
	y, m, _ := d.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// MonthKey formats the month containing d as YYYY-MM.
func MonthKey(d time.Time) string {
	return d.Format(MonthLayout)
}

// DaysBetween returns the whole number of days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// AddMonthsClamped adds n months to d, clamping the day to the end of the
// target month (Jan 31 + 1 month = Feb 28/29).
func AddMonthsClamped(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, d.Location())
}
