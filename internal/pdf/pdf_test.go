package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newFormTemplate builds a one-page document with two text fields and one
// checkbox, the minimal shape of the real form templates.
func newFormTemplate() *Document {
	doc := NewDocument()

	contentRef := doc.Add(&Stream{Dict: Dict{}, Data: []byte("0 g\n")})

	vonRef := doc.Add(Dict{
		nameType:    Name("Annot"),
		nameSubtype: nameWidget,
		nameT:       String("von"),
		nameFT:      nameTx,
		nameRect:    Array{Integer(100), Integer(700), Integer(220), Integer(715)},
	})
	bisRef := doc.Add(Dict{
		nameType:    Name("Annot"),
		nameSubtype: nameWidget,
		nameT:       String("bis"),
		nameFT:      nameTx,
		nameRect:    Array{Integer(240), Integer(700), Integer(360), Integer(715)},
	})
	checkRef := doc.Add(Dict{
		nameType:    Name("Annot"),
		nameSubtype: nameWidget,
		nameT:       String("AU_checkbox"),
		nameFT:      nameBtn,
		nameRect:    Array{Integer(100), Integer(650), Integer(112), Integer(662)},
		nameV:       nameOff,
		nameAS:      nameOff,
		nameAP:      Dict{nameN: Dict{Name("On"): Null{}, nameOff: Null{}}},
	})

	pageRef := doc.Add(Dict{
		nameType:      namePage,
		nameMediaBox:  Array{Integer(0), Integer(0), Integer(595), Integer(842)},
		nameContents:  contentRef,
		nameResources: Dict{},
		nameAnnots:    Array{vonRef, bisRef, checkRef},
	})
	pagesRef := doc.Add(Dict{
		nameType:  namePages,
		nameKids:  Array{pageRef},
		nameCount: Integer(1),
	})
	if page, ok := doc.Get(pageRef.Num).(Dict); ok {
		page[nameParent] = pagesRef
	}
	formRef := doc.Add(Dict{nameFields: Array{vonRef, bisRef, checkRef}})
	doc.SetRoot(doc.Add(Dict{
		nameType:     nameCatalog,
		namePages:    pagesRef,
		nameAcroForm: formRef,
	}))
	return doc
}

func writeAndReread(t *testing.T, doc *Document) *Document {
	t.Helper()
	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	out, err := Read(buf.Bytes())
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	return out
}

func TestWriteReadRoundTrip(t *testing.T) {
	doc := writeAndReread(t, newFormTemplate())
	if got := doc.PageCount(); got != 1 {
		t.Fatalf("expected 1 page after round trip, got %d", got)
	}
	if _, ok := doc.AcroForm(); !ok {
		t.Fatal("expected interactive form to survive the round trip")
	}
	fields, err := doc.FormFields()
	if err != nil {
		t.Fatalf("FormFields returned error: %v", err)
	}
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
}

func TestFillFormSetsValues(t *testing.T) {
	doc := newFormTemplate()
	err := doc.FillForm(FieldMap{}.
		Text("von", "01.03.2024").
		Text("bis", "02.03.2024").
		Check("AU_checkbox", true))
	if err != nil {
		t.Fatalf("FillForm returned error: %v", err)
	}

	reread := writeAndReread(t, doc)
	fields, err := reread.FormFields()
	if err != nil {
		t.Fatalf("FormFields returned error: %v", err)
	}
	byName := map[string]FormField{}
	for _, f := range fields {
		byName[f.Name] = f
	}
	if got := byName["von"].Value; got != "01.03.2024" {
		t.Errorf("von = %q, want 01.03.2024", got)
	}
	if got := byName["bis"].Value; got != "02.03.2024" {
		t.Errorf("bis = %q, want 02.03.2024", got)
	}
	if got := byName["AU_checkbox"].Value; got != "/On" {
		t.Errorf("AU_checkbox = %q, want /On", got)
	}
}

func TestFillFormUmlauts(t *testing.T) {
	doc := newFormTemplate()
	if err := doc.FillForm(FieldMap{}.Text("von", "Müller, Jörg")); err != nil {
		t.Fatalf("FillForm returned error: %v", err)
	}
	reread := writeAndReread(t, doc)
	fields, err := reread.FormFields()
	if err != nil {
		t.Fatalf("FormFields returned error: %v", err)
	}
	for _, f := range fields {
		if f.Name == "von" && f.Value != "Müller, Jörg" {
			t.Fatalf("von = %q, want the umlauts preserved", f.Value)
		}
	}
}

func TestFillFormUnknownNameIgnored(t *testing.T) {
	doc := newFormTemplate()
	if err := doc.FillForm(FieldMap{}.Text("does_not_exist", "x")); err != nil {
		t.Fatalf("unknown field name must be ignored, got error: %v", err)
	}
}

func TestFillFormWithoutFormFails(t *testing.T) {
	doc := NewDocument()
	pageRef := doc.Add(Dict{nameType: namePage, nameMediaBox: Array{Integer(0), Integer(0), Integer(595), Integer(842)}})
	pagesRef := doc.Add(Dict{nameType: namePages, nameKids: Array{pageRef}, nameCount: Integer(1)})
	doc.SetRoot(doc.Add(Dict{nameType: nameCatalog, namePages: pagesRef}))
	if err := doc.FillForm(FieldMap{}.Text("von", "x")); err == nil {
		t.Fatal("expected an error for a document without an interactive form")
	}
}

func TestFlattenStampsAndStrips(t *testing.T) {
	doc := newFormTemplate()
	err := doc.FillForm(FieldMap{}.
		Text("von", "01.03.2024").
		Check("AU_checkbox", true))
	if err != nil {
		t.Fatalf("FillForm returned error: %v", err)
	}
	if err := doc.Flatten(); err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}

	if _, ok := doc.AcroForm(); ok {
		t.Error("AcroForm must be removed by flattening")
	}
	pages, err := doc.Pages()
	if err != nil {
		t.Fatalf("Pages returned error: %v", err)
	}
	page, _ := doc.ResolveDict(pages[0])
	if _, has := page[nameAnnots]; has {
		t.Error("widget annotations must be removed by flattening")
	}

	contents, ok := doc.ResolveArray(page[nameContents])
	if !ok || len(contents) != 2 {
		t.Fatalf("expected 2 content streams after flattening, got %v", page[nameContents])
	}
	stamp, ok := doc.Resolve(contents[1]).(*Stream)
	if !ok {
		t.Fatal("appended content is not a stream")
	}
	if !strings.Contains(string(stamp.Data), "(01.03.2024) Tj") {
		t.Errorf("stamp is missing the text value: %q", stamp.Data)
	}
	if !strings.Contains(string(stamp.Data), " l S") {
		t.Errorf("stamp is missing the checkbox cross: %q", stamp.Data)
	}

	// The stamp font must be reachable from the page resources.
	res, _ := doc.ResolveDict(page[nameResources])
	fonts, _ := doc.ResolveDict(res[nameFont])
	if _, have := fonts[nameHelv]; !have {
		t.Error("page resources are missing the stamp font")
	}

	// Flattened output must survive a round trip.
	reread := writeAndReread(t, doc)
	if got := reread.PageCount(); got != 1 {
		t.Fatalf("expected 1 page after flatten round trip, got %d", got)
	}
}

func TestFlattenIsIdempotent(t *testing.T) {
	doc := newFormTemplate()
	if err := doc.FillForm(FieldMap{}.Text("von", "01.03.2024")); err != nil {
		t.Fatalf("FillForm returned error: %v", err)
	}
	if err := doc.Flatten(); err != nil {
		t.Fatalf("first Flatten returned error: %v", err)
	}
	pages, _ := doc.Pages()
	page, _ := doc.ResolveDict(pages[0])
	first, _ := doc.ResolveArray(page[nameContents])

	if err := doc.Flatten(); err != nil {
		t.Fatalf("second Flatten returned error: %v", err)
	}
	second, _ := doc.ResolveArray(page[nameContents])
	if len(second) != len(first) {
		t.Fatalf("second flatten added content: %d -> %d streams", len(first), len(second))
	}
}

func TestFlattenSkipsMalformedRect(t *testing.T) {
	doc := newFormTemplate()
	form, _ := doc.AcroForm()
	fields, _ := doc.ResolveArray(form[nameFields])
	// Truncate the second widget's rectangle; its value has no place to go.
	bis, _ := doc.ResolveDict(fields[1])
	bis[nameRect] = Array{Integer(240), Integer(700)}

	err := doc.FillForm(FieldMap{}.
		Text("von", "01.03.2024").
		Text("bis", "05.03.2024"))
	if err != nil {
		t.Fatalf("FillForm returned error: %v", err)
	}
	if err := doc.Flatten(); err != nil {
		t.Fatalf("Flatten must survive a malformed rectangle, got %v", err)
	}

	pages, _ := doc.Pages()
	page, _ := doc.ResolveDict(pages[0])
	if _, has := page[nameAnnots]; has {
		t.Error("widget annotations must be removed even when one rectangle is malformed")
	}
	contents, ok := doc.ResolveArray(page[nameContents])
	if !ok || len(contents) != 2 {
		t.Fatalf("expected 2 content streams after flattening, got %v", page[nameContents])
	}
	stamp, ok := doc.Resolve(contents[1]).(*Stream)
	if !ok {
		t.Fatal("appended content is not a stream")
	}
	if !strings.Contains(string(stamp.Data), "(01.03.2024) Tj") {
		t.Errorf("the intact field must still stamp: %q", stamp.Data)
	}
	if strings.Contains(string(stamp.Data), "05.03.2024") {
		t.Errorf("the malformed field's value must be dropped: %q", stamp.Data)
	}
}

func TestMergeConcatenatesPages(t *testing.T) {
	merged, err := Merge([]*Document{newFormTemplate(), newFormTemplate(), newFormTemplate()})
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if got := merged.PageCount(); got != 3 {
		t.Fatalf("expected 3 pages, got %d", got)
	}
	form, ok := merged.AcroForm()
	if !ok {
		t.Fatal("merged document lost its interactive form")
	}
	if na, _ := form["NeedAppearances"].(Bool); !bool(na) {
		t.Error("merged form must request appearance regeneration")
	}
	fieldsArr, _ := merged.ResolveArray(form[nameFields])
	if len(fieldsArr) != 9 {
		t.Errorf("expected 9 field entries (3 per input), got %d", len(fieldsArr))
	}

	// Pages must be independently mutable after the merge.
	reread := writeAndReread(t, merged)
	if got := reread.PageCount(); got != 3 {
		t.Fatalf("expected 3 pages after round trip, got %d", got)
	}
}

func TestMergeEmptyFails(t *testing.T) {
	if _, err := Merge(nil); err == nil {
		t.Fatal("expected an error when merging zero documents")
	}
}

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	for _, p := range []string{a, b} {
		if err := newFormTemplate().WriteFile(p); err != nil {
			t.Fatalf("WriteFile(%s) returned error: %v", p, err)
		}
	}

	// Missing inputs are skipped, existing ones merged.
	merged, err := MergeFiles([]string{a, filepath.Join(dir, "missing.pdf"), b})
	if err != nil {
		t.Fatalf("MergeFiles returned error: %v", err)
	}
	if got := merged.PageCount(); got != 2 {
		t.Fatalf("expected 2 pages, got %d", got)
	}

	if _, err := MergeFiles([]string{filepath.Join(dir, "missing.pdf")}); err == nil {
		t.Fatal("expected an error when no merge input exists")
	}
}

func TestWriteFileReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tpl.pdf")
	if err := newFormTemplate().WriteFile(path); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-1.7")) {
		t.Errorf("file does not start with a PDF header: %q", data[:8])
	}
	if !bytes.Contains(data, []byte("%%EOF")) {
		t.Error("file is missing the EOF marker")
	}
	doc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if got := doc.PageCount(); got != 1 {
		t.Fatalf("expected 1 page, got %d", got)
	}
}

func TestReadRejectsXRefStreams(t *testing.T) {
	data := []byte("%PDF-1.5\n1 0 obj\n<< /Type /XRef /Length 0 >>\nstream\n\nendstream\nendobj\n")
	if _, err := Read(data); err == nil || !strings.Contains(err.Error(), "cross-reference streams") {
		t.Fatalf("expected a cross-reference stream rejection, got %v", err)
	}
}

func TestReadRejectsNonPDF(t *testing.T) {
	if _, err := Read([]byte("hello world")); err == nil {
		t.Fatal("expected an error for non-PDF input")
	}
}

func TestContentStringEscaping(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", "(plain)"},
		{"with (parens)", `(with \(parens\))`},
		{`back\slash`, `(back\\slash)`},
		{"Müller", "(M\xfcller)"},
		{"日本", "(??)"},
	}
	for _, c := range cases {
		if got := contentString(c.in); got != c.want {
			t.Errorf("contentString(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTextStringEncoding(t *testing.T) {
	if s := NewTextString("plain ascii"); string(s) != "plain ascii" {
		t.Errorf("ASCII must be stored verbatim, got %q", s)
	}
	s := NewTextString("Müller")
	if len(s) < 2 || s[0] != 0xfe || s[1] != 0xff {
		t.Fatalf("non-ASCII must be stored as UTF-16BE with BOM, got % x", s)
	}
	if got := DecodeTextString(s); got != "Müller" {
		t.Errorf("DecodeTextString = %q, want Müller", got)
	}
}
