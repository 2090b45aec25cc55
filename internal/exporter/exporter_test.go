package exporter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/automeldung/automeldung/internal/config"
	"github.com/automeldung/automeldung/internal/contacts"
	"github.com/automeldung/automeldung/internal/meldung"
	"github.com/automeldung/automeldung/internal/pdf"
	"github.com/xuri/excelize/v2"
)

// writeTemplate builds a one-page form template with the given text and
// checkbox fields, the same shape the production templates have.
func writeTemplate(t *testing.T, path string, textFields, checkboxes []string) {
	t.Helper()
	doc := pdf.NewDocument()
	contentRef := doc.Add(&pdf.Stream{Dict: pdf.Dict{}, Data: []byte("0 g\n")})

	var widgetRefs pdf.Array
	y := 750
	for _, name := range textFields {
		widgetRefs = append(widgetRefs, doc.Add(pdf.Dict{
			pdf.Name("Type"):    pdf.Name("Annot"),
			pdf.Name("Subtype"): pdf.Name("Widget"),
			pdf.Name("T"):       pdf.String(name),
			pdf.Name("FT"):      pdf.Name("Tx"),
			pdf.Name("Rect"):    pdf.Array{pdf.Integer(100), pdf.Integer(y), pdf.Integer(300), pdf.Integer(y + 14)},
		}))
		y -= 20
	}
	for _, name := range checkboxes {
		widgetRefs = append(widgetRefs, doc.Add(pdf.Dict{
			pdf.Name("Type"):    pdf.Name("Annot"),
			pdf.Name("Subtype"): pdf.Name("Widget"),
			pdf.Name("T"):       pdf.String(name),
			pdf.Name("FT"):      pdf.Name("Btn"),
			pdf.Name("V"):       pdf.Name("Off"),
			pdf.Name("AS"):      pdf.Name("Off"),
			pdf.Name("AP"):      pdf.Dict{pdf.Name("N"): pdf.Dict{pdf.Name("On"): pdf.Null{}, pdf.Name("Off"): pdf.Null{}}},
			pdf.Name("Rect"):    pdf.Array{pdf.Integer(100), pdf.Integer(y), pdf.Integer(112), pdf.Integer(y + 12)},
		}))
		y -= 20
	}

	pageRef := doc.Add(pdf.Dict{
		pdf.Name("Type"):      pdf.Name("Page"),
		pdf.Name("MediaBox"):  pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Integer(595), pdf.Integer(842)},
		pdf.Name("Contents"):  contentRef,
		pdf.Name("Resources"): pdf.Dict{},
		pdf.Name("Annots"):    widgetRefs,
	})
	pagesRef := doc.Add(pdf.Dict{
		pdf.Name("Type"):  pdf.Name("Pages"),
		pdf.Name("Kids"):  pdf.Array{pageRef},
		pdf.Name("Count"): pdf.Integer(1),
	})
	if page, ok := doc.Get(pageRef.Num).(pdf.Dict); ok {
		page[pdf.Name("Parent")] = pagesRef
	}
	formRef := doc.Add(pdf.Dict{pdf.Name("Fields"): widgetRefs})
	doc.SetRoot(doc.Add(pdf.Dict{
		pdf.Name("Type"):     pdf.Name("Catalog"),
		pdf.Name("Pages"):    pagesRef,
		pdf.Name("AcroForm"): formRef,
	}))
	if err := doc.WriteFile(path); err != nil {
		t.Fatalf("writeTemplate(%s): %v", path, err)
	}
}

func writeReport(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		ReportPath:            filepath.Join(dir, "report.xlsx"),
		TemplateOhneAU:        filepath.Join(dir, "ohne.pdf"),
		TemplateMitAU:         filepath.Join(dir, "mit.pdf"),
		TemplateGesundmeldung: filepath.Join(dir, "gesund.pdf"),
		AUFilesDir:            filepath.Join(dir, "au_files"),
		AttachmentPolicy:      config.AttachmentSkip,
		ExportDir:             filepath.Join(dir, "export"),
		CreationDate:          "15.08.2024",
		MaxConcurrency:        2,
	}
	for _, d := range []string{cfg.AUFilesDir, cfg.ExportDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	writeTemplate(t, cfg.TemplateOhneAU,
		[]string{"nachname_vorname", "pnr", "von", "bis", "wiederaufnahmedatum", "zuletzt", "datum"}, nil)
	writeTemplate(t, cfg.TemplateMitAU,
		[]string{"nachname_vorname", "pnr", "von_ohne", "bis_ohne", "von_mit", "bis_mit", "zuletzt", "datum"},
		[]string{"AU_checkbox", "eAU_checkbox"})
	writeTemplate(t, cfg.TemplateGesundmeldung,
		[]string{"nachname_vorname", "pnr", "von", "bis", "wiederaufnahmedatum", "datum"}, nil)
	return cfg
}

func testDirectory() *contacts.Directory {
	return contacts.New([]meldung.DirectoryEntry{
		{Nachname: "Muster", Vorname: "Max", PersNr: "4711", InScope: true},
		{Nachname: "Schmidt", Vorname: "Anna", PersNr: "4712", InScope: true},
	})
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	writeReport(t, cfg.ReportPath, [][]interface{}{
		{"Nachname", "Vorname", "von", "bis", "Summe der Tage", "AU", "eAU", "AU von", "AU bis", "AU_File_ID"},
		// Short leave, no attachment: single-template document.
		{"Muster", "Max", "01.03.2024", "02.03.2024", "2", "", "", "", "", ""},
		// Completely blank row: silent skip.
		{"", "", "", "", "", "", "", "", "", ""},
		// Concluded leave with a declared but unresolvable attachment: the
		// skip policy still produces the document.
		{"Schmidt", "Anna", "01.02.2024", "09.02.2024", "9", "x", "", "", "", "no-such-file"},
		// Unknown person: validation error.
		{"Niemand", "Nora", "01.03.2024", "02.03.2024", "2", "", "", "", "", ""},
	})

	exp := NewWithDirectory(cfg, testDirectory())
	summary, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Total != 4 {
		t.Errorf("Total = %d, want 4", summary.Total)
	}
	if summary.Produced != 2 {
		t.Errorf("Produced = %d, want 2", summary.Produced)
	}
	if summary.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", summary.Skipped)
	}
	if summary.Errors != 1 {
		t.Errorf("Errors = %d, want 1", summary.Errors)
	}

	// The short-leave document: one flattened page carrying the derived
	// resumption date (02.03. + 1 day).
	ohnePath := filepath.Join(cfg.ExportDir, "Meldung_Muster_2024-03-01.pdf")
	doc, err := pdf.ReadFile(ohnePath)
	if err != nil {
		t.Fatalf("missing short-leave output: %v", err)
	}
	if got := doc.PageCount(); got != 1 {
		t.Errorf("%s: PageCount = %d, want 1", ohnePath, got)
	}
	if _, ok := doc.AcroForm(); ok {
		t.Errorf("%s: final output must be flattened", ohnePath)
	}
	raw, err := os.ReadFile(ohnePath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"(Muster, Max) Tj", "(4711) Tj", "(03.03.2024) Tj", "(29.02.2024) Tj", "(15.08.2024) Tj"} {
		if !bytes.Contains(raw, []byte(want)) {
			t.Errorf("%s: stamped content is missing %q", ohnePath, want)
		}
	}

	// The attachment document: main form plus the resumption form (the
	// attachment file itself was unresolvable and skipped).
	mitPath := filepath.Join(cfg.ExportDir, "Krankmeldung_Schmidt_2024-02-01.pdf")
	doc, err = pdf.ReadFile(mitPath)
	if err != nil {
		t.Fatalf("missing attachment-case output: %v", err)
	}
	if got := doc.PageCount(); got != 2 {
		t.Errorf("%s: PageCount = %d, want 2", mitPath, got)
	}

	// All intermediates are gone.
	entries, err := os.ReadDir(cfg.ExportDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), "_interactive") || strings.HasSuffix(e.Name(), ".partial") {
			t.Errorf("intermediate left behind: %s", e.Name())
		}
	}

	// The validation error landed in the run's error log.
	if summary.ErrorLog == "" {
		t.Fatal("expected an error log path in the summary")
	}
	logData, err := os.ReadFile(summary.ErrorLog)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logData), "Niemand") {
		t.Errorf("error log does not mention the failing row: %q", logData)
	}
}

func TestRunAttachmentPolicyFail(t *testing.T) {
	cfg := testConfig(t)
	cfg.AttachmentPolicy = config.AttachmentFail
	writeReport(t, cfg.ReportPath, [][]interface{}{
		{"Nachname", "Vorname", "von", "bis", "Summe der Tage", "AU", "AU_File_ID"},
		{"Schmidt", "Anna", "01.02.2024", "09.02.2024", "9", "x", "no-such-file"},
	})

	exp := NewWithDirectory(cfg, testDirectory())
	summary, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Produced != 0 || summary.Errors != 1 {
		t.Errorf("fail policy: Produced = %d, Errors = %d, want 0 and 1", summary.Produced, summary.Errors)
	}
}

func TestAssembleMitInterim(t *testing.T) {
	cfg := testConfig(t)
	exp := NewWithDirectory(cfg, testDirectory())

	day := func(s string) time.Time {
		d, err := time.Parse(meldung.DateLayout, s)
		if err != nil {
			t.Fatal(err)
		}
		return d
	}
	// Leave ends far in the future: an interim report without the resumption
	// form, named Zwischenmeldung.
	rec := &meldung.Record{
		Nachname: "Schmidt", Vorname: "Anna", PersNr: "4712",
		Start: day("01.01.2100"), End: day("10.01.2100"),
		CreationDate: day("15.08.2024"), TotalDays: 10,
		HasAttachmentDeclared: true, AttachmentFileID: "no-such-file",
	}

	out, err := exp.assembleMit(rec)
	if err != nil {
		t.Fatalf("assembleMit returned error: %v", err)
	}
	if filepath.Base(out) != "Zwischenmeldung_Schmidt_2100-01-01.pdf" {
		t.Errorf("output = %q, want the Zwischenmeldung name", filepath.Base(out))
	}
	doc, err := pdf.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	// No attachment resolved, no resumption form: the main form stands alone.
	if got := doc.PageCount(); got != 1 {
		t.Errorf("PageCount = %d, want 1", got)
	}
}

func TestProcessRowSelectGate(t *testing.T) {
	cfg := testConfig(t)
	exp := NewWithDirectory(cfg, testDirectory())

	res := exp.processRow(2, meldung.RawRow{"select": "nein", "nachname": "Muster", "vorname": "Max"})
	if res.Status != StatusSkippedNotSelected {
		t.Errorf("unselected row: Status = %v, want StatusSkippedNotSelected", res.Status)
	}

	res = exp.processRow(3, meldung.RawRow{
		"select": "x", "nachname": "Muster", "vorname": "Max",
		"von": "01.03.2024", "bis": "02.03.2024", "summe_der_tage": "2",
	})
	if res.Status != StatusProduced {
		t.Errorf("selected row: Status = %v (err %v), want StatusProduced", res.Status, res.Err)
	}
}
