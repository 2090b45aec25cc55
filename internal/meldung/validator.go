// =============================================================================
// Automeldung Exporter - Record Validator
// =============================================================================
//
// Validates one raw row and produces a tagged outcome: Empty (all key fields
// blank, a skip rather than an error), Invalid (with every triggered reason
// collected, never short-circuited) or Valid. The reason list is what the
// operator sees, so messages stay human-readable and name-prefixed.
//
// =============================================================================

package meldung

import (
	"fmt"
	"strings"
	"time"
)

// Outcome tags the validation result. A row is Empty iff all key fields are
// blank; a row can never be both Empty and Invalid.
type Outcome int

const (
	OutcomeEmpty Outcome = iota
	OutcomeInvalid
	OutcomeValid
)

// ValidationResult carries the outcome and, for Invalid, all reasons.
type ValidationResult struct {
	Outcome Outcome
	Reasons []string
	name    string
}

// Message renders the operator-facing line: name-prefixed, semicolon-joined.
func (r ValidationResult) Message() string {
	if len(r.Reasons) == 0 {
		return ""
	}
	name := r.name
	if name == "" {
		name = "(no name)"
	}
	return name + ": " + strings.Join(r.Reasons, "; ")
}

// DirectoryEntry is the validator's and normalizer's view of one contact
// directory record.
type DirectoryEntry struct {
	Nachname string
	Vorname  string
	PersNr   string
	// InScope is derived from the directory's contract-type column
	// (vertrag_im); people without it are outside this report type.
	InScope bool
}

// Directory is the external contact directory collaborator. It owns the
// invariant that (Nachname, Vorname) pairs are unique.
type Directory interface {
	// Lookup returns every entry matching the exact (nachname, vorname) pair.
	Lookup(nachname, vorname string) []DirectoryEntry
	// HasNachname / HasVorname support the "which half of the name is
	// unknown" diagnostics.
	HasNachname(nachname string) bool
	HasVorname(vorname string) bool
}

// keyFields decide row emptiness: name, date range, attachment identifier.
var keyFields = []string{"nachname", "vorname", "von", "bis", "au_file_id"}

// Validator checks raw rows against the contact directory and the date
// consistency rules.
type Validator struct {
	dir Directory
}

// NewValidator builds a Validator over the given directory.
func NewValidator(dir Directory) *Validator {
	return &Validator{dir: dir}
}

// Validate runs all rules in order and collects every triggered reason. Only
// the Empty check short-circuits.
func (v *Validator) Validate(row RawRow) ValidationResult {
	empty := true
	for _, f := range keyFields {
		if row.Has(f) {
			empty = false
			break
		}
	}
	if empty {
		return ValidationResult{Outcome: OutcomeEmpty}
	}

	nachname := row.Get("nachname")
	vorname := row.Get("vorname")
	res := ValidationResult{name: nachname}
	if res.name == "" {
		res.name = vorname
	}
	add := func(format string, args ...any) {
		res.Reasons = append(res.Reasons, fmt.Sprintf(format, args...))
	}

	// Rule 2: both name parts must be present.
	if nachname == "" {
		add("Nachname fehlt")
	}
	if vorname == "" {
		add("Vorname fehlt")
	}

	// Rule 3: the full name must match exactly one directory entry.
	if nachname != "" && vorname != "" {
		matches := v.dir.Lookup(nachname, vorname)
		switch {
		case len(matches) == 1:
			if !matches[0].InScope {
				add("laut Kontaktdaten nicht im Geltungsbereich dieser Meldung (vertrag_im)")
			}
		case len(matches) == 0:
			knownLast := v.dir.HasNachname(nachname)
			knownFirst := v.dir.HasVorname(vorname)
			switch {
			case knownLast && !knownFirst:
				add("Vorname %q unbekannt in den Kontaktdaten", vorname)
			case !knownLast && knownFirst:
				add("Nachname %q unbekannt in den Kontaktdaten", nachname)
			default:
				add("Name %q, %q unbekannt in den Kontaktdaten", nachname, vorname)
			}
		default:
			add("Name %q, %q ist in den Kontaktdaten mehrdeutig (%d Treffer)", nachname, vorname, len(matches))
		}
	}

	// Date parsing feeds the ordering and sub-range rules. Unparsable
	// supplied dates are reasons of their own.
	von := v.parseDateField(row, "von", add)
	bis := v.parseDateField(row, "bis", add)
	if !von.IsZero() && !bis.IsZero() && bis.Before(von) {
		add("Zeitraum ungültig: bis (%s) liegt vor von (%s)", FormatDate(bis), FormatDate(von))
	}

	hasAU := row.Bool("au") || row.Bool("eau")

	// Rule 4: declared attachment needs a file identifier.
	if hasAU && !row.Has("au_file_id") {
		add("AU gemeldet, aber keine AU-Datei (au_file_id) angegeben")
	}

	// Rule 5: the attachment period must lie within the leave period and end
	// on its last day. Partial bounds are checked individually.
	auVon := v.parseDateField(row, "au_von", add)
	auBis := v.parseDateField(row, "au_bis", add)
	if !auVon.IsZero() {
		if !von.IsZero() && auVon.Before(von) {
			add("AU-Beginn (%s) liegt vor dem Meldebeginn (%s)", FormatDate(auVon), FormatDate(von))
		}
		if !bis.IsZero() && auVon.After(bis) {
			add("AU-Beginn (%s) liegt nach dem Meldeende (%s)", FormatDate(auVon), FormatDate(bis))
		}
	}
	if !auBis.IsZero() && !bis.IsZero() && !auBis.Equal(bis) {
		add("AU-Ende (%s) muss dem Meldeende (%s) entsprechen", FormatDate(auBis), FormatDate(bis))
	}

	// Rule 6: long leave without any attachment flag is a data error.
	if !hasAU {
		days, ok := row.Days("summe_der_tage")
		if !ok && !von.IsZero() && !bis.IsZero() && !bis.Before(von) {
			days = int(midnight(bis).Sub(midnight(von))/(24*time.Hour)) + 1
			ok = true
		}
		if ok && days > maxDaysWithoutAttachment {
			add("%d Tage ohne AU gemeldet (ab %d Tagen ist eine AU erforderlich)", days, maxDaysWithoutAttachment+1)
		}
	}

	if len(res.Reasons) > 0 {
		res.Outcome = OutcomeInvalid
		return res
	}
	res.Outcome = OutcomeValid
	return res
}

// parseDateField parses an optional date cell, registering a reason when the
// cell is present but unparsable.
func (v *Validator) parseDateField(row RawRow, key string, add func(string, ...any)) time.Time {
	if !row.Has(key) {
		return time.Time{}
	}
	t, err := ParseDate(row.Get(key))
	if err != nil {
		add("Feld %s: %v", key, err)
		return time.Time{}
	}
	return t
}
