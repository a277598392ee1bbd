package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodEndMonthly(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		want  time.Time
	}{
		{
			name:  "mid month",
			start: time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC),
			want:  time.Date(2025, 4, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "jan 31 clamps to feb 28",
			start: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "jan 31 clamps to feb 29 in leap year",
			start: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "mar 31 clamps to apr 30",
			start: time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC),
			want:  time.Date(2025, 4, 30, 23, 59, 59, 0, time.UTC),
		},
		{
			name:  "december rolls into next year",
			start: time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeriodEnd(tt.start, BILLING_PERIOD_MONTHLY)
			assert.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestPeriodEndYearly(t *testing.T) {
	// Feb 29 in a leap year lands on Feb 28 the following year.
	start := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	got, err := PeriodEnd(start, BILLING_PERIOD_YEARLY)
	assert.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC)))

	start = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err = PeriodEnd(start, BILLING_PERIOD_YEARLY)
	assert.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPeriodEndInvalidPeriod(t *testing.T) {
	_, err := PeriodEnd(time.Now(), BillingPeriod("WEEKLY"))
	assert.Error(t, err)
}

func TestPeriodEndNoDrift(t *testing.T) {
	// Twelve consecutive monthly periods starting on the 31st never drift
	// earlier than the 28th and snap back to the 31st in longer months.
	start := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	current := start
	for i := 0; i < 12; i++ {
		next, err := PeriodEnd(current, BILLING_PERIOD_MONTHLY)
		assert.NoError(t, err)
		assert.True(t, next.After(current))
		current = next
	}
	// AddClampedDate keeps the clamped day, so chained periods stabilize on
	// day 28 after passing through February.
	assert.Equal(t, 2026, current.Year())
	assert.GreaterOrEqual(t, current.Day(), 28)
}

func TestCalendarDayWindow(t *testing.T) {
	now := time.Date(2025, 5, 10, 15, 42, 7, 0, time.UTC)
	start, end := CalendarDayWindow(now, 1)

	assert.True(t, start.Equal(time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC)))
	assert.True(t, end.Equal(time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)))

	// The window is half-open: midnight of the target day is included,
	// midnight of the next day is not.
	assert.False(t, start.After(start))
	assert.True(t, end.Sub(start) == 24*time.Hour)
}

func TestCalendarDayWindowMonthBoundary(t *testing.T) {
	now := time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC)
	start, end := CalendarDayWindow(now, 1)
	assert.True(t, start.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, end.Equal(time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)))
}

func TestAddClampedDateNegativeMonths(t *testing.T) {
	got := AddClampedDate(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), 0, -2, 0)
	assert.True(t, got.Equal(time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC)))
}
