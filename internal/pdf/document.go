// =============================================================================
// Automeldung Exporter - PDF Document
// =============================================================================
//
// Document is the in-memory form of one PDF file: a table of numbered objects
// plus the trailer dictionary. Every pipeline stage (fill, flatten, merge)
// operates on a Document and either mutates it in place or produces a new
// one; no stage holds a Document beyond its own call.
//
// =============================================================================

package pdf

import (
	"errors"
	"fmt"
	"sort"
)

// Document holds the object table and trailer of a single PDF file.
type Document struct {
	objects map[int]Object
	maxNum  int
	trailer Dict
}

// NewDocument returns an empty document with no catalog. Callers are expected
// to build the page tree and set the root via SetRoot.
func NewDocument() *Document {
	return &Document{
		objects: make(map[int]Object),
		trailer: Dict{},
	}
}

// Add stores obj under a fresh object number and returns its reference.
func (d *Document) Add(obj Object) Ref {
	d.maxNum++
	d.objects[d.maxNum] = obj
	return Ref{Num: d.maxNum}
}

// Set stores obj under an explicit object number (reader use).
func (d *Document) Set(num int, obj Object) {
	d.objects[num] = obj
	if num > d.maxNum {
		d.maxNum = num
	}
}

// Get returns the object stored under num, or nil.
func (d *Document) Get(num int) Object {
	return d.objects[num]
}

// SetRoot records the catalog reference in the trailer.
func (d *Document) SetRoot(ref Ref) {
	d.trailer[nameRoot] = ref
}

// Resolve follows an indirect reference to its target object. Non-reference
// objects are returned unchanged. Broken references resolve to nil.
func (d *Document) Resolve(o Object) Object {
	for i := 0; i < 32; i++ {
		ref, ok := o.(Ref)
		if !ok {
			return o
		}
		o = d.objects[ref.Num]
	}
	return nil
}

// ResolveDict resolves o and returns it as a dictionary. Stream objects
// expose their dictionary.
func (d *Document) ResolveDict(o Object) (Dict, bool) {
	switch v := d.Resolve(o).(type) {
	case Dict:
		return v, true
	case *Stream:
		return v.Dict, true
	}
	return nil, false
}

// ResolveArray resolves o and returns it as an array.
func (d *Document) ResolveArray(o Object) (Array, bool) {
	v, ok := d.Resolve(o).(Array)
	return v, ok
}

// Catalog returns the document catalog dictionary.
func (d *Document) Catalog() (Dict, error) {
	root, ok := d.trailer[nameRoot]
	if !ok {
		return nil, errors.New("pdf: trailer has no /Root")
	}
	cat, ok := d.ResolveDict(root)
	if !ok {
		return nil, errors.New("pdf: /Root does not resolve to a dictionary")
	}
	return cat, nil
}

// pagesRoot returns the reference and dictionary of the root /Pages node.
func (d *Document) pagesRoot() (Ref, Dict, error) {
	cat, err := d.Catalog()
	if err != nil {
		return Ref{}, nil, err
	}
	ref, ok := cat[namePages].(Ref)
	if !ok {
		return Ref{}, nil, errors.New("pdf: catalog has no /Pages reference")
	}
	node, ok := d.ResolveDict(ref)
	if !ok {
		return Ref{}, nil, errors.New("pdf: /Pages does not resolve to a dictionary")
	}
	return ref, node, nil
}

// Pages walks the page tree and returns the page object references in
// document order.
func (d *Document) Pages() ([]Ref, error) {
	_, root, err := d.pagesRoot()
	if err != nil {
		return nil, err
	}
	var out []Ref
	var walk func(node Dict, depth int) error
	walk = func(node Dict, depth int) error {
		if depth > 32 {
			return errors.New("pdf: page tree too deep")
		}
		kids, ok := d.ResolveArray(node[nameKids])
		if !ok {
			return fmt.Errorf("pdf: pages node without /Kids")
		}
		for _, kid := range kids {
			ref, ok := kid.(Ref)
			if !ok {
				continue
			}
			kd, ok := d.ResolveDict(ref)
			if !ok {
				continue
			}
			if t, _ := kd[nameType].(Name); t == namePages {
				if err := walk(kd, depth+1); err != nil {
					return err
				}
				continue
			}
			out = append(out, ref)
		}
		return nil
	}
	if err := walk(root, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// PageCount returns the number of pages, 0 if the tree is unreadable.
func (d *Document) PageCount() int {
	pages, err := d.Pages()
	if err != nil {
		return 0
	}
	return len(pages)
}

// AcroForm returns the interactive-form dictionary if the document has one.
func (d *Document) AcroForm() (Dict, bool) {
	cat, err := d.Catalog()
	if err != nil {
		return nil, false
	}
	form, ok := d.ResolveDict(cat[nameAcroForm])
	if !ok {
		return nil, false
	}
	return form, true
}

// inherited looks key up on the dictionary and, when absent, walks the
// /Parent chain. Widget annotations inherit /FT and /V from their field
// parents this way, pages inherit /Resources and /MediaBox from /Pages nodes.
func (d *Document) inherited(dict Dict, key Name) Object {
	for i := 0; i < 32 && dict != nil; i++ {
		if v, ok := dict[key]; ok {
			return v
		}
		parent, ok := d.ResolveDict(dict[nameParent])
		if !ok {
			return nil
		}
		dict = parent
	}
	return nil
}

// objectNumbers returns all object numbers in ascending order.
func (d *Document) objectNumbers() []int {
	nums := make([]int, 0, len(d.objects))
	for n := range d.objects {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}
