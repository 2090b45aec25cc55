package meldung

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the single date format this pipeline speaks: day.month.year.
const DateLayout = "02.01.2006"

// FileDateLayout is the date tag used in output filenames.
const FileDateLayout = "2006-01-02"

// ParseDate parses a dd.mm.yyyy cell value.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected %s)", s, "dd.mm.yyyy")
	}
	return t, nil
}

// FormatDate renders t as dd.mm.yyyy; the zero time renders blank.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// midnight truncates t to its calendar day.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
