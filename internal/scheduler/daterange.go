package scheduler

import (
	"time"

	"github.com/reportdesk/internal/models"
)

// ResolveRange computes the concrete report window for a schedule at fire
// time. Both ends are calendar days at midnight UTC; the caller widens the
// end to 23:59:59 when building the request.
func ResolveRange(s *models.ReportSchedule, now time.Time) (start, end time.Time) {
	today := midnight(now)

	switch s.ReportType {
	case models.ReportTypeMonthly:
		// full previous calendar month, whatever today is
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = firstOfMonth.AddDate(0, 0, -1)
		start = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	case models.ReportTypeWeekly:
		// most recently completed Monday-Sunday week
		daysBack := (int(now.Weekday())+6)%7 + 1
		end = today.AddDate(0, 0, -daysBack)
		start = end.AddDate(0, 0, -6)
	case models.ReportTypeDaily:
		start = today.AddDate(0, 0, -1)
		end = start
	default: // custom
		start, end = customRange(s, today)
	}
	return start, end
}

// customRange uses the schedule's stored dates, falling back to a 30-day
// trailing window when either is absent or malformed.
func customRange(s *models.ReportSchedule, today time.Time) (start, end time.Time) {
	start = today.AddDate(0, 0, -30)
	end = today
	if s.DateStart != "" {
		if t, err := time.ParseInLocation("2006-01-02", s.DateStart, time.UTC); err == nil {
			start = t
		}
	}
	if s.DateEnd != "" {
		if t, err := time.ParseInLocation("2006-01-02", s.DateEnd, time.UTC); err == nil {
			end = t
		}
	}
	return start, end
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
