package timeutil

import (
	"math"
	"time"
)

const millisPerDay = 24 * 60 * 60 * 1000

// StartOfMonth returns the first instant of t's month in IST
func StartOfMonth(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), 1, 0, 0, 0, 0, IST)
}

// EndOfMonth returns the last instant of t's month in IST
func EndOfMonth(t time.Time) time.Time {
	ist := t.In(IST)
	firstOfNext := time.Date(ist.Year(), ist.Month(), 1, 0, 0, 0, 0, IST).AddDate(0, 1, 0)
	return firstOfNext.Add(-time.Nanosecond)
}

// DaysInMonth returns the number of days in the given month
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, IST).AddDate(0, 1, -1).Day()
}

// AddMonthsClamped shifts t by the given number of months, clamping the day
// to the last valid day of the target month instead of letting the date
// normalize into the following month (Jan 31 + 1 month = Feb 28/29, not Mar 3)
func AddMonthsClamped(t time.Time, months int) time.Time {
	ist := t.In(IST)
	year, month := ist.Year(), int(ist.Month())+months
	// normalize month into [1,12] adjusting the year
	year += (month - 1) / 12
	month = (month-1)%12 + 1
	if month < 1 {
		month += 12
		year--
	}
	day := ist.Day()
	if max := DaysInMonth(year, time.Month(month)); day > max {
		day = max
	}
	return time.Date(year, time.Month(month), day,
		ist.Hour(), ist.Minute(), ist.Second(), ist.Nanosecond(), IST)
}

// DueDayInMonth builds the due date for a configured day-of-month, clamping
// days like 31 into shorter months
func DueDayInMonth(year int, month time.Month, day int) time.Time {
	if day < 1 {
		day = 1
	}
	if max := DaysInMonth(year, month); day > max {
		day = max
	}
	return time.Date(year, month, day, 0, 0, 0, 0, IST)
}

// SameMonth reports whether two instants fall in the same IST calendar month
func SameMonth(a, b time.Time) bool {
	a, b = a.In(IST), b.In(IST)
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// DaysPastDue returns how many days late an obligation is, counting any
// started day in full: ceil((now - due) in milliseconds / one day).
// Returns 0 when due is not in the past.
func DaysPastDue(now, due time.Time) int {
	diff := now.Sub(due).Milliseconds()
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(float64(diff) / float64(millisPerDay)))
}

// DaysUntil returns whole days from today's start until the target date's
// start, negative when the target is already past
func DaysUntil(now, target time.Time) int {
	from := StartOfDay(now)
	to := StartOfDay(target)
	return int(to.Sub(from).Hours() / 24)
}
