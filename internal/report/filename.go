package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/reportdesk/internal/timeutil"
)

var (
	unsafeChars    = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	underscoreRuns = regexp.MustCompile(`_+`)
	datePattern    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// BuildFilename derives the deterministic, filesystem-safe report name
// {company}_{start}_to_{end}.csv. Unparsable date inputs fall back to a raw
// YYYY-MM-DD scan, then to today's date.
func BuildFilename(companyName, dateStart, dateEnd string) string {
	name := unsafeChars.ReplaceAllString(companyName, "_")
	name = underscoreRuns.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	start := dateToken(dateStart)
	end := today()
	if dateEnd != "" {
		end = dateToken(dateEnd)
	}
	return fmt.Sprintf("%s_%s_to_%s.csv", name, start, end)
}

func dateToken(s string) string {
	if t, err := timeutil.Parse(s); err == nil {
		return t.Format("2006-01-02")
	}
	if m := datePattern.FindString(s); m != "" {
		return m
	}
	return today()
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}
