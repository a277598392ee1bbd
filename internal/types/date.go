package types

import (
	"fmt"
	"time"
)

// PeriodEnd calculates the end of a billing period starting at the given
// time. MONTHLY adds one calendar month, YEARLY one calendar year.
//
// The arithmetic is calendar-true, not a fixed-day approximation: adding a
// month to Jan-31 lands on Feb-28 (Feb-29 in leap years), never on Mar-2 or
// Mar-3. Fixed 30-day periods are a classic billing bug because a monthly
// subscriber slowly drifts backwards through the month.
func PeriodEnd(start time.Time, period BillingPeriod) (time.Time, error) {
	switch period {
	case BILLING_PERIOD_MONTHLY:
		return AddClampedDate(start, 0, 1, 0), nil
	case BILLING_PERIOD_YEARLY:
		return AddClampedDate(start, 1, 0, 0), nil
	default:
		return start, fmt.Errorf("invalid billing period type: %s", period)
	}
}

// AddClampedDate adds years, months and days to a time, clamping the day of
// month to the last valid day of the target month. This differs from
// time.AddDate, which normalizes overflow (Jan-31 + 1 month = Mar-2/Mar-3).
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	newY := y + years
	newM := time.Month(int(m) + months)

	// If we move beyond December it adjusts correctly, e.g. adding two
	// months to November lands on January of the next year.
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	// Find the last valid day of the new month
	firstOfNextMonth := time.Date(newY, newM+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNextMonth.Add(-24 * time.Hour).Day()

	newD := d + days
	if newD > lastDay {
		newD = lastDay
	}

	return time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
}

// CalendarDayWindow returns the UTC [start, end) bounds of the calendar day
// that is `daysAhead` days after the given time. The H-1 notifiers use this
// to select records whose expiry falls on "tomorrow".
func CalendarDayWindow(now time.Time, daysAhead int) (time.Time, time.Time) {
	day := now.UTC().AddDate(0, 0, daysAhead)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
