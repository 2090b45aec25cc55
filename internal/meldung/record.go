// =============================================================================
// Automeldung Exporter - Normalized Record
// =============================================================================
//
// Record is the well-typed, date-consistent form of one leave report row. It
// is created once by the Normalizer after validation has passed, is read-only
// afterwards, and is discarded after the assembly run that consumes it.
//
// =============================================================================

package meldung

import "time"

// Classification decides which template path a record takes.
type Classification int

const (
	// ClassOhneAttachment: short leave (<= 3 days) without a declared
	// attachment; single-template document.
	ClassOhneAttachment Classification = iota
	// ClassMitAttachment: an attachment (AU/eAU) is declared; multi-part
	// document with the attachment page and, unless interim, the resumption
	// form.
	ClassMitAttachment
	// ClassUnclassifiable: longer than 3 days with no attachment declared.
	// A data error requiring manual review, never silently defaulted.
	ClassUnclassifiable
)

func (c Classification) String() string {
	switch c {
	case ClassOhneAttachment:
		return "ohne AU"
	case ClassMitAttachment:
		return "mit AU"
	default:
		return "unclassifiable"
	}
}

// maxDaysWithoutAttachment is the legal threshold above which a leave period
// requires an attached certificate.
const maxDaysWithoutAttachment = 3

// Record holds everything the assembly pipeline needs for one person.
// Immutable once constructed.
type Record struct {
	Nachname string
	Vorname  string
	PersNr   string

	Start time.Time // leave start (von)
	End   time.Time // leave end (bis)

	// Derived dates.
	Resumption time.Time // End + 1 day
	LastWorked time.Time // Start - 1 day

	// CreationDate is the reporting date printed on the forms. Configurable,
	// defaults to the day of the run.
	CreationDate time.Time

	TotalDays int

	HasAttachmentDeclared   bool // au
	HasElectronicAttachment bool // eau
	AttachmentFileID        string

	// Optional attachment sub-range; zero when not supplied.
	AttachmentStart time.Time // au_von
	AttachmentEnd   time.Time // au_bis
}

// FullName renders "Nachname, Vorname" the way the templates expect it.
func (r *Record) FullName() string {
	return r.Nachname + ", " + r.Vorname
}

// Classify derives the template class. Deterministic for a given record.
func (r *Record) Classify() Classification {
	if r.HasAttachmentDeclared || r.HasElectronicAttachment {
		return ClassMitAttachment
	}
	if r.TotalDays <= maxDaysWithoutAttachment {
		return ClassOhneAttachment
	}
	return ClassUnclassifiable
}

// IsInterim reports whether this is a Zwischenmeldung: the declared leave
// period has not yet concluded at the given reference time. Interim reports
// suppress the resumption-confirmation document.
func (r *Record) IsInterim(now time.Time) bool {
	if r.End.IsZero() {
		return false
	}
	return midnight(r.End).After(midnight(now))
}

// PreAttachmentRange returns the formatted "ohne AU" sub-range (the part of
// the leave before the certificate starts). When the certificate starts on
// day one there is no such range and both values are blank; when no
// certificate start was supplied, the range opens at the leave start and the
// end stays blank.
func (r *Record) PreAttachmentRange() (von, bis string) {
	if r.AttachmentStart.IsZero() {
		return FormatDate(r.Start), ""
	}
	if !r.Start.IsZero() && r.Start.Equal(r.AttachmentStart) {
		return "", ""
	}
	return FormatDate(r.Start), FormatDate(r.AttachmentStart.AddDate(0, 0, -1))
}

// DateTag is the filename date component: the leave start date, or the
// creation date when the start is unavailable.
func (r *Record) DateTag() string {
	if !r.Start.IsZero() {
		return r.Start.Format(FileDateLayout)
	}
	return r.CreationDate.Format(FileDateLayout)
}
