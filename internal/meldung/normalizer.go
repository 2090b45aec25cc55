// =============================================================================
// Automeldung Exporter - Record Normalizer
// =============================================================================
//
// Turns a raw row that already passed validation into an immutable Record:
// parses all dates with the fixed dd.mm.yyyy layout, derives the resumption
// and last-worked dates, and resolves the personnel number from the contact
// directory. Unparsable required dates and ambiguous directory matches are
// hard errors here, never silently blanked - validation should have caught
// them, so hitting one means the inputs changed under us.
//
// =============================================================================

package meldung

import (
	"fmt"
	"time"
)

// Normalizer converts validated rows into Records.
type Normalizer struct {
	dir Directory
	// now supplies the current time, overridable in tests.
	now func() time.Time
	// creationDate overrides the reporting date when non-zero.
	creationDate time.Time
}

// NewNormalizer builds a Normalizer. creationDate may be the zero time to use
// the day of the run.
func NewNormalizer(dir Directory, creationDate time.Time) *Normalizer {
	return &Normalizer{dir: dir, now: time.Now, creationDate: creationDate}
}

// Normalize builds the Record for a row. Callers must only pass rows whose
// validation outcome was Valid.
func (n *Normalizer) Normalize(row RawRow) (*Record, error) {
	nachname := row.Get("nachname")
	vorname := row.Get("vorname")

	matches := n.dir.Lookup(nachname, vorname)
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("normalize %s: no contact directory entry for %q, %q", nachname, nachname, vorname)
	case len(matches) > 1:
		return nil, fmt.Errorf("normalize %s: contact directory is ambiguous for %q, %q (%d entries)",
			nachname, nachname, vorname, len(matches))
	}

	von, err := n.requiredDate(row, "von")
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", nachname, err)
	}
	bis, err := n.requiredDate(row, "bis")
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", nachname, err)
	}
	if !von.IsZero() && !bis.IsZero() && bis.Before(von) {
		return nil, fmt.Errorf("normalize %s: end date %s before start date %s",
			nachname, FormatDate(bis), FormatDate(von))
	}

	auVon, err := n.optionalDate(row, "au_von")
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", nachname, err)
	}
	auBis, err := n.optionalDate(row, "au_bis")
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", nachname, err)
	}

	rec := &Record{
		Nachname:                nachname,
		Vorname:                 vorname,
		PersNr:                  matches[0].PersNr,
		Start:                   von,
		End:                     bis,
		CreationDate:            n.resolveCreationDate(),
		HasAttachmentDeclared:   row.Bool("au"),
		HasElectronicAttachment: row.Bool("eau"),
		AttachmentFileID:        row.Get("au_file_id"),
		AttachmentStart:         auVon,
		AttachmentEnd:           auBis,
	}
	if !bis.IsZero() {
		rec.Resumption = bis.AddDate(0, 0, 1)
	}
	if !von.IsZero() {
		rec.LastWorked = von.AddDate(0, 0, -1)
	}

	if days, ok := row.Days("summe_der_tage"); ok {
		rec.TotalDays = days
	} else if !von.IsZero() && !bis.IsZero() {
		rec.TotalDays = int(midnight(bis).Sub(midnight(von))/(24*time.Hour)) + 1
	}
	if rec.TotalDays < 0 {
		return nil, fmt.Errorf("normalize %s: negative day count %d", nachname, rec.TotalDays)
	}
	return rec, nil
}

func (n *Normalizer) resolveCreationDate() time.Time {
	if !n.creationDate.IsZero() {
		return n.creationDate
	}
	return midnight(n.now())
}

// requiredDate parses a date cell that must be present and well-formed.
func (n *Normalizer) requiredDate(row RawRow, key string) (time.Time, error) {
	if !row.Has(key) {
		return time.Time{}, fmt.Errorf("field %s is required", key)
	}
	t, err := ParseDate(row.Get(key))
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", key, err)
	}
	return t, nil
}

// optionalDate parses a date cell that may be blank but, when present, must
// be well-formed.
func (n *Normalizer) optionalDate(row RawRow, key string) (time.Time, error) {
	if !row.Has(key) {
		return time.Time{}, nil
	}
	t, err := ParseDate(row.Get(key))
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", key, err)
	}
	return t, nil
}
