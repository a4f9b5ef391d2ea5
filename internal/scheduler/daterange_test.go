package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/reportdesk/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveRangeMonthly(t *testing.T) {
	s := &models.ReportSchedule{ReportType: models.ReportTypeMonthly}

	// mid-month fire still reports the full previous month
	start, end := ResolveRange(s, time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC))
	if !start.Equal(day(2025, 2, 1)) || !end.Equal(day(2025, 2, 28)) {
		t.Fatalf("got %v to %v", start, end)
	}

	// january fire crosses the year boundary
	start, end = ResolveRange(s, day(2025, 1, 1))
	if !start.Equal(day(2024, 12, 1)) || !end.Equal(day(2024, 12, 31)) {
		t.Fatalf("got %v to %v", start, end)
	}

	// leap february
	start, end = ResolveRange(s, day(2024, 3, 10))
	if !start.Equal(day(2024, 2, 1)) || !end.Equal(day(2024, 2, 29)) {
		t.Fatalf("got %v to %v", start, end)
	}
}

func TestResolveRangeWeekly(t *testing.T) {
	s := &models.ReportSchedule{ReportType: models.ReportTypeWeekly}

	cases := []struct {
		now        time.Time
		start, end time.Time
	}{
		// Wednesday: last completed week is Mon Mar 3 - Sun Mar 9
		{day(2025, 3, 12), day(2025, 3, 3), day(2025, 3, 9)},
		// Monday: the week that just ended yesterday
		{day(2025, 3, 10), day(2025, 3, 3), day(2025, 3, 9)},
		// Sunday: the current week is incomplete, report the one before
		{day(2025, 3, 9), day(2025, 2, 24), day(2025, 3, 2)},
	}
	for _, c := range cases {
		start, end := ResolveRange(s, c.now)
		if !start.Equal(c.start) || !end.Equal(c.end) {
			t.Fatalf("now %v: got %v to %v, want %v to %v", c.now, start, end, c.start, c.end)
		}
		if end.Weekday() != time.Sunday || start.Weekday() != time.Monday {
			t.Fatalf("now %v: week runs %v to %v", c.now, start.Weekday(), end.Weekday())
		}
	}
}

func TestResolveRangeDaily(t *testing.T) {
	s := &models.ReportSchedule{ReportType: models.ReportTypeDaily}

	start, end := ResolveRange(s, time.Date(2025, 3, 12, 6, 0, 0, 0, time.UTC))
	if !start.Equal(day(2025, 3, 11)) || !end.Equal(day(2025, 3, 11)) {
		t.Fatalf("got %v to %v", start, end)
	}
}

func TestResolveRangeCustom(t *testing.T) {
	s := &models.ReportSchedule{
		ReportType: models.ReportTypeCustom,
		DateStart:  "2025-01-01",
		DateEnd:    "2025-01-31",
	}
	start, end := ResolveRange(s, day(2025, 3, 12))
	if !start.Equal(day(2025, 1, 1)) || !end.Equal(day(2025, 1, 31)) {
		t.Fatalf("got %v to %v", start, end)
	}
}

func TestResolveRangeCustomFallback(t *testing.T) {
	s := &models.ReportSchedule{ReportType: models.ReportTypeCustom}
	now := day(2025, 3, 12)

	start, end := ResolveRange(s, now)
	if !end.Equal(now) || !start.Equal(now.AddDate(0, 0, -30)) {
		t.Fatalf("got %v to %v", start, end)
	}

	// malformed stored dates fall back the same way
	s.DateStart = "bogus"
	s.DateEnd = "also bogus"
	start, end = ResolveRange(s, now)
	if !end.Equal(now) || !start.Equal(now.AddDate(0, 0, -30)) {
		t.Fatalf("got %v to %v", start, end)
	}
}

func TestValidateCron(t *testing.T) {
	for _, expr := range []string{"0 9 1 * *", "*/5 * * * *", "30 8 * * 1"} {
		if err := ValidateCron(expr); err != nil {
			t.Fatalf("%q rejected: %v", expr, err)
		}
	}

	for _, expr := range []string{"", "0 9 1 *", "0 9 1 * * *", "daily"} {
		err := ValidateCron(expr)
		if err == nil {
			t.Fatalf("%q accepted", expr)
		}
		var cronErr *InvalidCronExpressionError
		if !errors.As(err, &cronErr) {
			t.Fatalf("expected InvalidCronExpressionError for %q, got %T", expr, err)
		}
		if cronErr.Expression != expr {
			t.Fatalf("error carries %q, want %q", cronErr.Expression, expr)
		}
	}
}
