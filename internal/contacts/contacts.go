// =============================================================================
// Automeldung Exporter - Contact Directory
// =============================================================================
//
// Loads the contact directory spreadsheet (nachname, vorname, persnr,
// vertrag_im) and answers exact-match name lookups for the validator and
// normalizer. The directory is read once per run and is read-only afterwards,
// so it is safe to share across concurrently assembled records.
//
// =============================================================================

package contacts

import (
	"fmt"
	"strings"

	"github.com/automeldung/automeldung/internal/meldung"
	"github.com/automeldung/automeldung/internal/xlsxreader"
)

// Directory is the in-memory contact directory. It implements
// meldung.Directory.
type Directory struct {
	entries   []meldung.DirectoryEntry
	nachnamen map[string]bool
	vornamen  map[string]bool
}

// Load reads the directory spreadsheet at path. sheet may be empty for the
// first worksheet.
func Load(path, sheet string) (*Directory, error) {
	rows, err := xlsxreader.ReadTable(path, sheet, 0)
	if err != nil {
		return nil, fmt.Errorf("contacts: %w", err)
	}
	dir := New(nil)
	for _, row := range rows {
		nachname := strings.TrimSpace(row["nachname"])
		vorname := strings.TrimSpace(row["vorname"])
		if nachname == "" && vorname == "" {
			continue
		}
		dir.add(meldung.DirectoryEntry{
			Nachname: nachname,
			Vorname:  vorname,
			PersNr:   strings.TrimSpace(row["persnr"]),
			InScope:  inScope(row["vertrag_im"]),
		})
	}
	if len(dir.entries) == 0 {
		return nil, fmt.Errorf("contacts: %s contains no usable entries", path)
	}
	return dir, nil
}

// New builds a directory from the given entries. Used directly by tests and
// by Load.
func New(entries []meldung.DirectoryEntry) *Directory {
	dir := &Directory{
		nachnamen: make(map[string]bool),
		vornamen:  make(map[string]bool),
	}
	for _, e := range entries {
		dir.add(e)
	}
	return dir
}

func (d *Directory) add(e meldung.DirectoryEntry) {
	d.entries = append(d.entries, e)
	d.nachnamen[e.Nachname] = true
	d.vornamen[e.Vorname] = true
}

// Lookup returns every entry matching the exact (nachname, vorname) pair.
func (d *Directory) Lookup(nachname, vorname string) []meldung.DirectoryEntry {
	var out []meldung.DirectoryEntry
	for _, e := range d.entries {
		if e.Nachname == nachname && e.Vorname == vorname {
			out = append(out, e)
		}
	}
	return out
}

// HasNachname reports whether any entry carries this last name.
func (d *Directory) HasNachname(nachname string) bool {
	return d.nachnamen[nachname]
}

// HasVorname reports whether any entry carries this first name.
func (d *Directory) HasVorname(vorname string) bool {
	return d.vornamen[vorname]
}

// Len returns the number of directory entries.
func (d *Directory) Len() int {
	return len(d.entries)
}

// inScope interprets the vertrag_im contract-type cell; a blank or falsy
// value marks the person as outside this report type.
func inScope(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "false", "nein", "no", "0", "-":
		return false
	}
	return true
}
