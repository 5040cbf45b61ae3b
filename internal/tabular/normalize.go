package tabular

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pulsedash/pulsedash/internal/models"
)

// DefaultSummaryMarkers are first-cell labels marking source-side grand-total
// rows. Counting those again would double every sum.
var DefaultSummaryMarkers = []string{"загально", "всього", "итого", "total", "grand total"}

// Clean drops rows that are entirely blank and rows whose first cell carries a
// summary marker. Headers and column order pass through untouched. Pure
// function of its input.
func Clean(t models.RawTable, markers []string) models.RawTable {
	if markers == nil {
		markers = DefaultSummaryMarkers
	}
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(strings.TrimSpace(m))
	}

	out := models.RawTable{Headers: t.Headers, Rows: make([][]string, 0, len(t.Rows))}
	for _, row := range t.Rows {
		if blankRow(row) {
			continue
		}
		if len(row) > 0 && isSummary(row[0], lowered) {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isSummary(first string, markers []string) bool {
	f := strings.ToLower(strings.TrimSpace(first))
	if f == "" {
		return false
	}
	for _, m := range markers {
		if m != "" && strings.Contains(f, m) {
			return true
		}
	}
	return false
}

// ParseNumber coerces heterogeneous cell text to a number. Currency symbols
// and other noise are stripped; a comma acts as the decimal separator when no
// dot is present. Unparsable cells yield 0, never an error: a single bad cell
// must not fail its row.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	hasDot := strings.Contains(s, ".")
	var b strings.Builder
	seenSep := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			if !seenSep {
				b.WriteRune('.')
				seenSep = true
			}
		case r == ',' && !hasDot:
			if !seenSep {
				b.WriteRune('.')
				seenSep = true
			}
		case r == '-' && b.Len() == 0:
			b.WriteRune('-')
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

var (
	isoRe      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	dayFirstRe = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})[./-](\d{2}|\d{4})$`)
)

// fallbackLayouts covers formats occasionally seen in exported sheets after
// the two primary families fail.
var fallbackLayouts = []string{
	"2006/01/02",
	"02 Jan 2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// ParseDate coerces cell text to a local calendar date. Accepted in priority
// order: ISO (YYYY-MM-DD, extra suffix ignored), day-first separated forms
// (DD.MM.YY, DD.MM.YYYY, DD/MM/YYYY, DD-MM-YYYY), then a small fallback set.
// Two-digit years map 00-49 to 2000-2049 and 50-99 to 1950-1999. The second
// return is false when nothing matches; the cell then carries no date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if m := isoRe.FindStringSubmatch(s); m != nil {
		return calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	if m := dayFirstRe.FindStringSubmatch(s); m != nil {
		year := atoi(m[3])
		if len(m[3]) == 2 {
			if year < 50 {
				year += 2000
			} else {
				year += 1900
			}
		}
		return calendarDate(year, atoi(m[2]), atoi(m[1]))
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, mo, d := t.Date()
			return calendarDate(y, int(mo), d)
		}
	}
	return time.Time{}, false
}

func calendarDate(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local), true
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
