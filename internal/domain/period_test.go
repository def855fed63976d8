package domain

import (
	"testing"
	"time"
)

func TestWeekStart(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2026-08-24", "2026-08-24"}, // Monday maps to itself
		{"2026-08-26", "2026-08-24"}, // Wednesday
		{"2026-08-30", "2026-08-24"}, // Sunday belongs to the preceding Monday
		{"2026-08-31", "2026-08-31"}, // next Monday
	}
	for _, c := range cases {
		in, err := time.Parse("2006-01-02", c.in)
		if err != nil {
			t.Fatal(err)
		}
		got := WeekStart(in)
		if got.Format("2006-01-02") != c.want {
			t.Errorf("WeekStart(%s) = %s, want %s", c.in, got.Format("2006-01-02"), c.want)
		}
		if got.Hour() != 0 || got.Minute() != 0 {
			t.Errorf("WeekStart(%s) not at midnight: %s", c.in, got)
		}
	}
}

func TestPeriodFor(t *testing.T) {
	in := time.Date(2026, 8, 28, 15, 30, 0, 0, time.UTC)
	if got := PeriodFor(in); got != "2026-08-24" {
		t.Fatalf("PeriodFor = %s, want 2026-08-24", got)
	}
}

func TestPeriodRange(t *testing.T) {
	from, to, err := PeriodRange("2026-08-24", time.UTC)
	if err != nil {
		t.Fatalf("PeriodRange error: %v", err)
	}
	if from.Weekday() != time.Monday {
		t.Errorf("range start is %s, want Monday", from.Weekday())
	}
	if to.Sub(from) != 7*24*time.Hour {
		t.Errorf("range covers %s, want 168h", to.Sub(from))
	}
}

func TestPeriodRangeRejectsNonMonday(t *testing.T) {
	if _, _, err := PeriodRange("2026-08-26", time.UTC); err == nil {
		t.Error("expected error for non-Monday period")
	}
	if _, _, err := PeriodRange("not-a-date", time.UTC); err == nil {
		t.Error("expected error for malformed period")
	}
}
