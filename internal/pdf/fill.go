// =============================================================================
// Automeldung Exporter - Form Filler
// =============================================================================
//
// Binds a field-name -> value mapping onto a loaded template. Text fields get
// their /V entry replaced; checkbox fields get /V and the widget /AS set to
// the template's own on-state (detected from the normal appearance
// dictionary, defaulting to /Yes). Unknown names in the map are ignored so a
// map built for a newer template variant still fills an older one; template
// fields absent from the map keep their defaults.
//
// =============================================================================

package pdf

import (
	"errors"
	"fmt"
)

// FieldValue is one entry of a fill mapping. For checkbox fields Checkbox is
// true and Checked carries the on/off state; otherwise Text carries the
// value.
type FieldValue struct {
	Name     string
	Text     string
	Checkbox bool
	Checked  bool
}

// FieldMap is the ordered field-name -> value mapping for one document. It is
// built fresh per document and consumed exactly once by FillForm.
type FieldMap []FieldValue

// Text appends a text field entry.
func (m FieldMap) Text(name, value string) FieldMap {
	return append(m, FieldValue{Name: name, Text: value})
}

// Check appends a checkbox entry.
func (m FieldMap) Check(name string, checked bool) FieldMap {
	return append(m, FieldValue{Name: name, Checkbox: true, Checked: checked})
}

// FillForm sets the given values on the document's interactive form. The
// document must carry an AcroForm dictionary; templates without one are a
// contract violation, not a soft skip.
func (d *Document) FillForm(fields FieldMap) error {
	form, ok := d.AcroForm()
	if !ok {
		return errors.New("pdf: document has no interactive form")
	}
	byName, err := d.terminalFields(form)
	if err != nil {
		return err
	}
	for _, fv := range fields {
		field, ok := byName[fv.Name]
		if !ok {
			continue // forward-compatible with template variants
		}
		if fv.Checkbox {
			d.setCheckbox(field, fv.Checked)
		} else {
			field[nameV] = NewTextString(fv.Text)
			// Stale appearance streams would shadow the new value.
			delete(field, nameAP)
		}
	}
	// Viewers must rebuild appearances for the values we just set.
	form["NeedAppearances"] = Bool(true)
	return nil
}

// setCheckbox flips a button field and all of its widgets to the detected
// on-state (or /Off).
func (d *Document) setCheckbox(field Dict, checked bool) {
	state := nameOff
	if checked {
		state = d.onState(field)
	}
	field[nameV] = state
	widgets := d.fieldWidgets(field)
	for _, w := range widgets {
		w[nameAS] = state
	}
}

// onState returns the "checked" appearance key of a button field: the first
// key of the normal appearance dictionary that is not /Off, falling back to
// the conventional /Yes.
func (d *Document) onState(field Dict) Name {
	for _, w := range append([]Dict{field}, d.fieldWidgets(field)...) {
		ap, ok := d.ResolveDict(w[nameAP])
		if !ok {
			continue
		}
		n, ok := d.ResolveDict(ap[nameN])
		if !ok {
			continue
		}
		for key := range n {
			if key != nameOff {
				return key
			}
		}
	}
	return "Yes"
}

// fieldWidgets returns the widget dictionaries of a field: its /Kids when
// present, otherwise the field itself (merged field/widget dictionary).
func (d *Document) fieldWidgets(field Dict) []Dict {
	kids, ok := d.ResolveArray(field[nameKids])
	if !ok {
		// A terminal field without kids acts as its own (merged) widget.
		return []Dict{field}
	}
	out := make([]Dict, 0, len(kids))
	for _, k := range kids {
		if kd, ok := d.ResolveDict(k); ok {
			out = append(out, kd)
		}
	}
	return out
}

// terminalFields walks the field tree and indexes terminal fields by both
// their fully qualified name ("parent.child") and their partial /T.
func (d *Document) terminalFields(form Dict) (map[string]Dict, error) {
	fieldsArr, ok := d.ResolveArray(form[nameFields])
	if !ok {
		return nil, errors.New("pdf: AcroForm has no /Fields array")
	}
	out := make(map[string]Dict)
	var walk func(o Object, prefix string, depth int) error
	walk = func(o Object, prefix string, depth int) error {
		if depth > 16 {
			return errors.New("pdf: field tree too deep")
		}
		field, ok := d.ResolveDict(o)
		if !ok {
			return nil
		}
		partial := ""
		if t, ok := field[nameT].(String); ok {
			partial = DecodeTextString(t)
		}
		full := partial
		if prefix != "" && partial != "" {
			full = prefix + "." + partial
		} else if prefix != "" {
			full = prefix
		}
		kids, hasKids := d.ResolveArray(field[nameKids])
		if hasKids && fieldHasChildFields(d, kids) {
			for _, k := range kids {
				if err := walk(k, full, depth+1); err != nil {
					return err
				}
			}
			return nil
		}
		if partial == "" {
			return nil
		}
		out[full] = field
		if _, taken := out[partial]; !taken {
			out[partial] = field
		}
		return nil
	}
	for _, f := range fieldsArr {
		if err := walk(f, "", 0); err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, errors.New("pdf: interactive form has no named fields")
	}
	return out, nil
}

// fieldHasChildFields distinguishes structural kids (sub-fields with their
// own /T) from plain widget kids.
func fieldHasChildFields(d *Document, kids Array) bool {
	for _, k := range kids {
		kd, ok := d.ResolveDict(k)
		if !ok {
			continue
		}
		if _, hasName := kd[nameT]; hasName {
			return true
		}
	}
	return false
}

// FormField describes one interactive field for inspection output.
type FormField struct {
	Name    string
	Type    string
	Value   string
	OnState string
	Rect    [4]float64
}

// FormFields lists the document's terminal interactive fields in stable
// (name-sorted) order. Used by the `fields` command to verify that a template
// matches the field contract.
func (d *Document) FormFields() ([]FormField, error) {
	form, ok := d.AcroForm()
	if !ok {
		return nil, errors.New("pdf: document has no interactive form")
	}
	byName, err := d.terminalFields(form)
	if err != nil {
		return nil, err
	}
	// The index aliases partial and full names; emit each field dictionary
	// once, under its longest registered name.
	longest := make(map[string]string)
	dicts := make(map[string]Dict)
	for name, field := range byName {
		id := fmt.Sprintf("%p", field)
		if cur, ok := longest[id]; !ok || len(name) > len(cur) {
			longest[id] = name
			dicts[id] = field
		}
	}
	var out []FormField
	for id, field := range dicts {
		name := longest[id]
		ft, _ := d.inherited(field, nameFT).(Name)
		f := FormField{Name: name, Type: string(ft)}
		if v := d.Resolve(d.inherited(field, nameV)); v != nil {
			switch vv := v.(type) {
			case String:
				f.Value = DecodeTextString(vv)
			case Name:
				f.Value = "/" + string(vv)
			}
		}
		if ft == nameBtn {
			f.OnState = string(d.onState(field))
		}
		if r, ok := d.ResolveArray(field[nameRect]); ok && len(r) == 4 {
			for i := 0; i < 4; i++ {
				f.Rect[i], _ = toFloat(d.Resolve(r[i]))
			}
		}
		out = append(out, f)
	}
	sortFields(out)
	return out, nil
}

func sortFields(fields []FormField) {
	for i := 1; i < len(fields); i++ {
		for j := i; j > 0 && fields[j].Name < fields[j-1].Name; j-- {
			fields[j], fields[j-1] = fields[j-1], fields[j]
		}
	}
}
