// =============================================================================
// Automeldung Exporter - PDF Object Model
// =============================================================================
//
// This file defines the low-level PDF object types used by the structural
// engine. A PDF file is a graph of numbered objects (dictionaries, arrays,
// names, strings, numbers, streams) referenced indirectly by object number.
// The engine keeps that graph in memory, edits it structurally (form fill,
// flatten, merge) and serializes it back out.
//
// Only the object kinds that appear in AcroForm templates are modeled; there
// is no support for encryption or cross-reference streams.
//
// =============================================================================

package pdf

import (
	"unicode/utf16"
)

// Object is any PDF object. The concrete types below implement it.
type Object interface{}

// Name is a PDF name object, stored without the leading slash ("Type", "Tx").
type Name string

// Dict is a PDF dictionary keyed by name.
type Dict map[Name]Object

// Array is a PDF array.
type Array []Object

// Ref is an indirect reference to a numbered object.
type Ref struct {
	Num int
	Gen int
}

// String is a PDF string object holding raw (already encoded) bytes.
type String []byte

// Integer is a PDF integer.
type Integer int64

// Real is a PDF real number.
type Real float64

// Bool is a PDF boolean.
type Bool bool

// Null is the PDF null object.
type Null struct{}

// Stream is a stream object: a dictionary plus raw data bytes.
type Stream struct {
	Dict Dict
	Data []byte
}

// Common names used by the engine.
const (
	nameType      Name = "Type"
	nameSubtype   Name = "Subtype"
	namePage      Name = "Page"
	namePages     Name = "Pages"
	nameCatalog   Name = "Catalog"
	nameKids      Name = "Kids"
	nameCount     Name = "Count"
	nameParent    Name = "Parent"
	nameAnnots    Name = "Annots"
	nameWidget    Name = "Widget"
	nameAcroForm  Name = "AcroForm"
	nameFields    Name = "Fields"
	nameContents  Name = "Contents"
	nameResources Name = "Resources"
	nameMediaBox  Name = "MediaBox"
	nameRect      Name = "Rect"
	nameRoot      Name = "Root"
	nameLength    Name = "Length"
	nameFT        Name = "FT"
	nameTx        Name = "Tx"
	nameBtn       Name = "Btn"
	nameV         Name = "V"
	nameAS        Name = "AS"
	nameAP        Name = "AP"
	nameN         Name = "N"
	nameT         Name = "T"
	nameOff       Name = "Off"
	nameFont      Name = "Font"
	nameHelv      Name = "Helv"
)

// NewTextString builds a PDF text string for s. Plain ASCII is stored as-is;
// anything else (umlauts in names are common here) is stored as UTF-16BE with
// a byte order mark, which every conforming viewer accepts.
func NewTextString(s string) String {
	ascii := true
	for _, r := range s {
		if r > 0x7e || r < 0x20 {
			ascii = false
			break
		}
	}
	if ascii {
		return String(s)
	}
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, 2+2*len(units))
	out = append(out, 0xfe, 0xff)
	for _, u := range units {
		out = append(out, byte(u>>8), byte(u))
	}
	return String(out)
}

// DecodeTextString reverses NewTextString: UTF-16BE with BOM is decoded,
// everything else is treated as PDFDocEncoding (Latin-1 superset).
func DecodeTextString(s String) string {
	b := []byte(s)
	if len(b) >= 2 && b[0] == 0xfe && b[1] == 0xff {
		units := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(units))
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// dictGet resolves nothing; it is a nil-safe map read.
func dictGet(d Dict, key Name) (Object, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d[key]
	return v, ok
}

// toFloat converts Integer or Real to float64.
func toFloat(o Object) (float64, bool) {
	switch v := o.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}
