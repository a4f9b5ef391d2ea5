package timeutil

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Layouts accepted for caller-supplied date strings, tried in order.
// Time-bearing layouts are used verbatim; the bare date layout is the only
// one that honors end-of-day clamping.
var instantLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// rangeLayouts is the stricter set used for range validation. The bare-minute
// form is intentionally not accepted here.
var rangeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

const dateOnlyLayout = "2006-01-02"

// InvalidDateFormatError reports a date string that matched none of the
// supported layouts.
type InvalidDateFormatError struct {
	Input string
}

func (e *InvalidDateFormatError) Error() string {
	return fmt.Sprintf("invalid date format: %q (use YYYY-MM-DD or YYYY-MM-DD HH:MM:SS)", e.Input)
}

// RangeOrderError reports a range whose end precedes its start.
type RangeOrderError struct {
	Start string
	End   string
}

func (e *RangeOrderError) Error() string {
	return fmt.Sprintf("end date/time %q must be after start date/time %q", e.End, e.Start)
}

// ToUnixMillis converts a date or datetime string to Unix milliseconds, UTC.
// Date-only input resolves to 00:00:00, or 23:59:59 when endOfDay is set.
func ToUnixMillis(s string, endOfDay bool) (int64, error) {
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UnixMilli(), nil
		}
	}

	t, err := time.ParseInLocation(dateOnlyLayout, s, time.UTC)
	if err != nil {
		return 0, &InvalidDateFormatError{Input: s}
	}
	if endOfDay {
		t = t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	}
	return t.UnixMilli(), nil
}

// Parse resolves s against every supported layout, date-only last.
func Parse(s string) (time.Time, error) {
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	t, err := time.ParseInLocation(dateOnlyLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, &InvalidDateFormatError{Input: s}
	}
	return t, nil
}

// ValidateRange checks a start/end pair before any request record is created.
// end may be empty. A span larger than maxDays is allowed but logged.
func ValidateRange(start, end string, maxDays int) error {
	startAt, ok := parseRangeEnd(start)
	if !ok {
		return &InvalidDateFormatError{Input: start}
	}

	if end == "" {
		return nil
	}
	endAt, ok := parseRangeEnd(end)
	if !ok {
		return &InvalidDateFormatError{Input: end}
	}
	if endAt.Before(startAt) {
		return &RangeOrderError{Start: start, End: end}
	}
	if days := int(endAt.Sub(startAt).Hours() / 24); maxDays > 0 && days > maxDays {
		logrus.WithFields(logrus.Fields{"days": days, "max_days": maxDays}).
			Warn("large date range requested")
	}
	return nil
}

func parseRangeEnd(s string) (time.Time, bool) {
	for _, layout := range rangeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDuration renders a second count as a short human duration using the
// two coarsest non-zero units, e.g. 90000 -> "1d 1h", 3700 -> "1h 1m".
// Non-positive input renders as the empty string.
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	s := int64(seconds)
	d, h, m := s/86400, (s%86400)/3600, (s%3600)/60

	var parts []string
	if d > 0 {
		parts = append(parts, fmt.Sprintf("%dd", d))
	}
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	switch len(parts) {
	case 0:
		// positive but sub-minute
		return "0m"
	case 1:
		return parts[0]
	default:
		return parts[0] + " " + parts[1]
	}
}

// FormatInstant renders a second- or millisecond-epoch value as
// "YYYY-MM-DD HH:MM:SS" UTC. Values above ten billion are taken as
// milliseconds. Zero, negative, or unrepresentable input renders as "".
func FormatInstant(ts float64) string {
	if ts <= 0 {
		return ""
	}
	if ts > 10_000_000_000 {
		ts = ts / 1000
	}
	sec := int64(ts)
	// reject values that would not render as a four-digit year
	if sec > 253402300799 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format("2006-01-02 15:04:05")
}
