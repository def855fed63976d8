package domain

import (
	"fmt"
	"time"
)

// Periods are identified by the Monday of the week, formatted YYYY-MM-DD.
// One store partition and one set of artifacts exists per period.

const periodLayout = "2006-01-02"

// WeekStart returns the Monday 00:00:00 of the week containing t.
func WeekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -(weekday - 1))
}

// PeriodFor returns the period identifier for the week containing t.
func PeriodFor(t time.Time) string {
	return WeekStart(t).Format(periodLayout)
}

// PeriodRange returns the [start, end) time range covered by a period.
func PeriodRange(period string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(periodLayout, period, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period %q: %w", period, err)
	}
	if start.Weekday() != time.Monday {
		return time.Time{}, time.Time{}, fmt.Errorf("period %q is not a Monday", period)
	}
	return start, start.AddDate(0, 0, 7), nil
}
