// =============================================================================
// Automeldung Exporter - Raw Report Rows
// =============================================================================
//
// RawRow is the untyped shape of one spreadsheet row after column
// normalization: cell text keyed by lowercased, underscored header names.
// It exists only as input to the validator and normalizer; nothing downstream
// ever touches a RawRow again once a Record has been built.
//
// Expected keys: nachname, vorname, von, bis, summe_der_tage, au, eau,
// au_von, au_bis, au_file_id, select.
//
// =============================================================================

package meldung

import (
	"strconv"
	"strings"
)

// RawRow maps normalized column names to raw cell text for one person.
type RawRow map[string]string

// Get returns the trimmed cell value for key, "" when absent.
func (r RawRow) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// Has reports whether the cell is non-blank.
func (r RawRow) Has(key string) bool {
	return r.Get(key) != ""
}

// Bool interprets the cell as a boolean. Spreadsheets deliver booleans in
// many spellings; anything not recognized as true is false.
func (r RawRow) Bool(key string) bool {
	switch strings.ToLower(r.Get(key)) {
	case "true", "wahr", "ja", "yes", "x", "1":
		return true
	}
	return false
}

// Days parses the cell as a day count. The second return is false when the
// cell is blank or not numeric.
func (r RawRow) Days(key string) (int, bool) {
	s := r.Get(key)
	if s == "" {
		return 0, false
	}
	// Excel frequently renders integers as "4.0" or with a comma decimal.
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}
