package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reportdesk/internal/timeutil"
	"github.com/reportdesk/internal/upstream"
)

// Date-bearing columns that get derived numeric and readable variants.
var derivedDateColumns = []string{"created_date", "ticket_closure_date"}

const ageColumn = "ticket_age"

// Table is a normalized view of a ticket batch, one row per input ticket.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Tabulate flattens tickets into a table. Keys are lowercased and trimmed,
// date columns gain *_ts and *_readable variants, and an age column is always
// present: from the raw age-in-seconds field when the upstream sends one,
// otherwise computed against the derived created_date timestamp.
func Tabulate(tickets []upstream.Ticket, now time.Time) *Table {
	normalized := make([]upstream.Ticket, len(tickets))
	keySet := make(map[string]struct{})
	for i, t := range tickets {
		nt := make(upstream.Ticket, len(t))
		for k, v := range t {
			key := strings.ToLower(strings.TrimSpace(k))
			nt[key] = v
			keySet[key] = struct{}{}
		}
		normalized[i] = nt
	}

	_, hasRawAge := keySet["age"]
	_, hasCreated := keySet["created_date"]
	if !hasRawAge && !hasCreated {
		logrus.Warn("tickets carry no age or created_date column, age will be empty")
	}

	var baseColumns []string
	for k := range keySet {
		if k == "age" && hasRawAge {
			continue // replaced by the formatted age column
		}
		baseColumns = append(baseColumns, k)
	}
	sort.Strings(baseColumns)

	columns := append([]string(nil), baseColumns...)
	for _, dc := range derivedDateColumns {
		if _, ok := keySet[dc]; ok {
			columns = append(columns, dc+"_ts", dc+"_readable")
		}
	}
	columns = append(columns, ageColumn)

	rows := make([][]string, 0, len(normalized))
	for _, t := range normalized {
		row := make([]string, 0, len(columns))
		for _, col := range baseColumns {
			v := t[col]
			if v.Missing() {
				row = append(row, "")
				continue
			}
			row = append(row, v.Render())
		}
		for _, dc := range derivedDateColumns {
			if _, ok := keySet[dc]; !ok {
				continue
			}
			if ts, ok := t[dc].Number(); ok {
				row = append(row,
					strconv.FormatFloat(ts, 'f', -1, 64),
					timeutil.FormatInstant(ts))
			} else {
				row = append(row, "", "")
			}
		}
		row = append(row, ageCell(t, hasRawAge, hasCreated, now))
		rows = append(rows, row)
	}

	return &Table{Columns: columns, Rows: rows}
}

func ageCell(t upstream.Ticket, hasRawAge, hasCreated bool, now time.Time) string {
	if hasRawAge {
		if secs, ok := t["age"].Number(); ok {
			return timeutil.FormatDuration(secs)
		}
		return ""
	}
	if hasCreated {
		if ts, ok := t["created_date"].Number(); ok && ts > 0 {
			if ts > 10_000_000_000 {
				ts = ts / 1000
			}
			return timeutil.FormatDuration(float64(now.Unix()) - ts)
		}
	}
	return ""
}

// WriteCSV writes the table to path, creating the directory if needed.
// Missing values render as empty cells.
func (t *Table) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report file: %w", err)
	}
	return nil
}
