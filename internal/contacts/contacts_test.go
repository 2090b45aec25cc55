package contacts

import (
	"testing"

	"github.com/automeldung/automeldung/internal/meldung"
)

func testEntries() []meldung.DirectoryEntry {
	return []meldung.DirectoryEntry{
		{Nachname: "Muster", Vorname: "Max", PersNr: "4711", InScope: true},
		{Nachname: "Schmidt", Vorname: "Anna", PersNr: "4712", InScope: true},
		{Nachname: "Doppel", Vorname: "Dora", PersNr: "4714", InScope: true},
		{Nachname: "Doppel", Vorname: "Dora", PersNr: "4715", InScope: true},
	}
}

func TestLookup(t *testing.T) {
	dir := New(testEntries())

	matches := dir.Lookup("Muster", "Max")
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
	if matches[0].PersNr != "4711" {
		t.Errorf("PersNr = %q, want 4711", matches[0].PersNr)
	}

	if got := dir.Lookup("Doppel", "Dora"); len(got) != 2 {
		t.Errorf("duplicate entries must both be returned, got %d", len(got))
	}
	if got := dir.Lookup("Muster", "Anna"); len(got) != 0 {
		t.Errorf("mixed name halves must not match, got %d entries", len(got))
	}
}

func TestNameHalfLookups(t *testing.T) {
	dir := New(testEntries())
	if !dir.HasNachname("Schmidt") || dir.HasNachname("Niemand") {
		t.Error("HasNachname gave a wrong answer")
	}
	if !dir.HasVorname("Anna") || dir.HasVorname("Nora") {
		t.Error("HasVorname gave a wrong answer")
	}
	if dir.Len() != 4 {
		t.Errorf("Len = %d, want 4", dir.Len())
	}
}

func TestInScope(t *testing.T) {
	cases := []struct {
		cell string
		want bool
	}{
		{"AT", true},
		{"x", true},
		{"1", true},
		{"", false},
		{"  ", false},
		{"nein", false},
		{"No", false},
		{"false", false},
		{"0", false},
		{"-", false},
	}
	for _, c := range cases {
		if got := inScope(c.cell); got != c.want {
			t.Errorf("inScope(%q) = %v, want %v", c.cell, got, c.want)
		}
	}
}
