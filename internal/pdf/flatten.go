// =============================================================================
// Automeldung Exporter - Form Flattener
// =============================================================================
//
// Burns the current field values into static page content and strips every
// trace of interactivity. For each widget annotation the resolved value is
// drawn into the widget rectangle: single-line Helvetica text for text
// fields, a diagonal cross for checked checkboxes. The stamp is appended as a
// NEW content stream after the page's existing streams, so the template's
// static background stays untouched underneath. Afterwards all widget
// annotations and the document-level AcroForm dictionary are removed.
//
// A widget with a malformed or missing rectangle is skipped and logged; the
// value of that one field is lost, the document survives.
//
// =============================================================================

package pdf

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"
)

const stampFontSize = 10

// Flatten stamps all field values into page content, removes widget
// annotations from every page and deletes the interactive-form dictionary.
// The result has no interactive fields. Flattening an already-flat document
// is a no-op (there is nothing left to stamp), which keeps the operation
// idempotent.
func (d *Document) Flatten() error {
	pages, err := d.Pages()
	if err != nil {
		return err
	}
	for i, pageRef := range pages {
		page, ok := d.ResolveDict(pageRef)
		if !ok {
			return fmt.Errorf("pdf: page %d does not resolve", i+1)
		}
		if err := d.flattenPage(page, i+1); err != nil {
			return err
		}
	}
	if cat, err := d.Catalog(); err == nil {
		delete(cat, nameAcroForm)
	}
	return nil
}

func (d *Document) flattenPage(page Dict, pageNum int) error {
	annots, _ := d.ResolveArray(page[nameAnnots])

	var stamp bytes.Buffer
	needFont := false
	var kept Array

	for _, a := range annots {
		widget, ok := d.ResolveDict(a)
		if !ok {
			kept = append(kept, a)
			continue
		}
		if st, _ := widget[nameSubtype].(Name); st != nameWidget {
			kept = append(kept, a)
			continue
		}
		rect, ok := d.widgetRect(widget)
		if !ok {
			logrus.Warnf("flatten: page %d: widget %q has a malformed rectangle, value dropped",
				pageNum, d.widgetFieldName(widget))
			continue
		}
		switch ft, _ := d.inherited(widget, nameFT).(Name); ft {
		case nameTx:
			if text, ok := d.widgetTextValue(widget); ok && text != "" {
				stampText(&stamp, rect, text)
				needFont = true
			}
		case nameBtn:
			if d.widgetChecked(widget) {
				stampCross(&stamp, rect)
			}
		}
	}

	if stamp.Len() > 0 {
		content := []byte("q\n")
		content = append(content, stamp.Bytes()...)
		content = append(content, []byte("Q\n")...)
		streamRef := d.Add(&Stream{Dict: Dict{}, Data: content})
		d.appendContent(page, streamRef)
		if needFont {
			d.ensureStampFont(page)
		}
	}

	if len(kept) > 0 {
		page[nameAnnots] = kept
	} else {
		delete(page, nameAnnots)
	}
	return nil
}

// widgetRect extracts and orders the widget rectangle.
func (d *Document) widgetRect(widget Dict) ([4]float64, bool) {
	var r [4]float64
	arr, ok := d.ResolveArray(widget[nameRect])
	if !ok || len(arr) != 4 {
		return r, false
	}
	for i := 0; i < 4; i++ {
		v, ok := toFloat(d.Resolve(arr[i]))
		if !ok {
			return r, false
		}
		r[i] = v
	}
	if r[0] > r[2] {
		r[0], r[2] = r[2], r[0]
	}
	if r[1] > r[3] {
		r[1], r[3] = r[3], r[1]
	}
	return r, true
}

// widgetTextValue resolves the current text value from the widget or its
// parent field definition.
func (d *Document) widgetTextValue(widget Dict) (string, bool) {
	v := d.Resolve(d.inherited(widget, nameV))
	switch vv := v.(type) {
	case String:
		return DecodeTextString(vv), true
	case Name:
		return string(vv), true
	}
	return "", false
}

// widgetChecked reports whether a button widget is in its on-state, matching
// either the field value or the widget appearance state against the
// appearance dictionary's "checked" key.
func (d *Document) widgetChecked(widget Dict) bool {
	on := d.onState(widget)
	if v, ok := d.Resolve(d.inherited(widget, nameV)).(Name); ok && v == on {
		return true
	}
	if as, ok := widget[nameAS].(Name); ok && as == on {
		return true
	}
	return false
}

// widgetFieldName is best-effort naming for log lines.
func (d *Document) widgetFieldName(widget Dict) string {
	if t, ok := d.inherited(widget, nameT).(String); ok {
		return DecodeTextString(t)
	}
	return "(unnamed)"
}

// stampText draws a single text line left-anchored with a small inset inside
// the rectangle, vertically nudged toward the middle the same way the
// templates were designed around.
func stampText(buf *bytes.Buffer, r [4]float64, text string) {
	x := r[0] + 2
	y := r[1] + 3
	if h := r[3] - r[1]; h > stampFontSize {
		y += (h - stampFontSize) * 0.35
	}
	fmt.Fprintf(buf, "BT /%s %d Tf 0 g 1 0 0 1 %.2f %.2f Tm %s Tj ET\n",
		nameHelv, stampFontSize, x, y, contentString(text))
}

// stampCross draws a diagonal cross filling the rectangle with a small inset.
func stampCross(buf *bytes.Buffer, r [4]float64) {
	x0, y0, x1, y1 := r[0]+2, r[1]+2, r[2]-2, r[3]-2
	fmt.Fprintf(buf, "1 w 0 G %.2f %.2f m %.2f %.2f l S %.2f %.2f m %.2f %.2f l S\n",
		x0, y0, x1, y1, x0, y1, x1, y0)
}

// contentString encodes text for a Tj operator using WinAnsi (Latin-1)
// codes, which is what the injected Helvetica resource declares. Runes the
// encoding cannot carry degrade to '?'.
func contentString(text string) string {
	out := []byte{'('}
	for _, r := range text {
		b := byte('?')
		if r < 0x100 {
			b = byte(r)
		}
		switch b {
		case '(', ')', '\\':
			out = append(out, '\\', b)
		default:
			if b < 0x20 {
				out = append(out, fmt.Sprintf("\\%03o", b)...)
			} else {
				out = append(out, b)
			}
		}
	}
	return string(append(out, ')'))
}

// appendContent attaches a new content stream after the page's existing
// stream(s), normalizing /Contents to array form.
func (d *Document) appendContent(page Dict, streamRef Ref) {
	switch existing := page[nameContents].(type) {
	case Ref:
		if _, isArr := d.Resolve(existing).(Array); isArr {
			if arr, ok := d.ResolveArray(existing); ok {
				page[nameContents] = append(arr, streamRef)
				return
			}
		}
		page[nameContents] = Array{existing, streamRef}
	case Array:
		page[nameContents] = append(existing, streamRef)
	default:
		page[nameContents] = Array{streamRef}
	}
}

// ensureStampFont makes /Helv available to the page's content streams. The
// resource dictionary may live on the page or be inherited; inherited
// resources are copied down before editing so sibling pages stay untouched.
func (d *Document) ensureStampFont(page Dict) {
	res, ok := d.ResolveDict(page[nameResources])
	if !ok {
		if inh, okInh := d.ResolveDict(d.inherited(page, nameResources)); okInh {
			res = Dict{}
			for k, v := range inh {
				res[k] = v
			}
		} else {
			res = Dict{}
		}
		page[nameResources] = res
	}

	fonts, ok := d.ResolveDict(res[nameFont])
	if !ok {
		fonts = Dict{}
		res[nameFont] = fonts
	}
	if _, have := fonts[nameHelv]; have {
		return
	}
	fontRef := d.Add(Dict{
		nameType:    nameFont,
		nameSubtype: Name("Type1"),
		"BaseFont":  Name("Helvetica"),
		"Encoding":  Name("WinAnsiEncoding"),
	})
	fonts[nameHelv] = fontRef
}
