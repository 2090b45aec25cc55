// =============================================================================
// Automeldung Exporter - Document Merger
// =============================================================================
//
// Concatenates pages from multiple documents into a fresh one, preserving
// per-page content and annotations. Interactive-form metadata is combined:
// the first form dictionary encountered is adopted, later ones contribute
// their /Fields entries (collisions stay un-deduplicated, each widget remains
// independently addressable). When any form survives, /NeedAppearances is set
// so viewers regenerate field appearances for pages whose default appearance
// came from a different template.
//
// Structurally this works by renumbering every source object into the target
// object table, materializing inherited page attributes, and rebuilding a
// flat page tree.
//
// =============================================================================

package pdf

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"
)

// Merge concatenates the given documents in order into a new document. The
// inputs are consumed: their objects are shared with the result and must not
// be used afterwards. Merging zero documents is an error.
func Merge(docs []*Document) (*Document, error) {
	if len(docs) == 0 {
		return nil, errors.New("pdf: nothing to merge")
	}

	dst := NewDocument()
	var pageRefs []Ref
	var form Dict

	for _, src := range docs {
		srcPages, err := src.Pages()
		if err != nil {
			return nil, err
		}

		remap := make(map[int]int, len(src.objects))
		for _, n := range src.objectNumbers() {
			dst.maxNum++
			remap[n] = dst.maxNum
		}
		for _, n := range src.objectNumbers() {
			dst.objects[remap[n]] = remapObject(src.objects[n], remap)
		}

		for _, pref := range srcPages {
			page, ok := src.ResolveDict(pref)
			if !ok {
				continue
			}
			// Attributes inherited from the old /Pages ancestors must be
			// materialized before the page is reparented.
			for _, attr := range []Name{nameMediaBox, nameResources, "CropBox", "Rotate"} {
				if _, have := page[attr]; !have {
					if v := src.inherited(page, attr); v != nil {
						dstPage := dst.objects[remap[pref.Num]]
						if pd, ok := dstPage.(Dict); ok {
							pd[attr] = remapObject(v, remap)
						}
					}
				}
			}
			pageRefs = append(pageRefs, Ref{Num: remap[pref.Num]})
		}

		if srcForm, ok := src.AcroForm(); ok {
			imported := remapObject(srcForm, remap).(Dict)
			if form == nil {
				form = imported
			} else {
				dstFields, _ := dst.ResolveArray(form[nameFields])
				srcFields, _ := dst.ResolveArray(imported[nameFields])
				form[nameFields] = append(dstFields, srcFields...)
			}
		}
	}

	if len(pageRefs) == 0 {
		return nil, errors.New("pdf: merged document has no pages")
	}

	pagesDict := Dict{
		nameType:  namePages,
		nameCount: Integer(len(pageRefs)),
	}
	kids := make(Array, len(pageRefs))
	pagesRef := dst.Add(pagesDict)
	for i, pr := range pageRefs {
		kids[i] = pr
		if pd, ok := dst.objects[pr.Num].(Dict); ok {
			pd[nameParent] = pagesRef
		}
	}
	pagesDict[nameKids] = kids

	catalog := Dict{
		nameType:  nameCatalog,
		namePages: pagesRef,
	}
	if form != nil {
		form["NeedAppearances"] = Bool(true)
		catalog[nameAcroForm] = dst.Add(form)
	}
	dst.SetRoot(dst.Add(catalog))
	return dst, nil
}

// MergeFiles reads and merges the PDFs at the given paths. Paths that do not
// exist are skipped with a warning; unparsable files are an error. Ending up
// with zero valid inputs is an error.
func MergeFiles(paths []string) (*Document, error) {
	var docs []*Document
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			logrus.Warnf("merge: skipping missing input %s", p)
			continue
		}
		doc, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, errors.New("pdf: no merge inputs exist")
	}
	return Merge(docs)
}

// remapObject rewrites indirect references according to remap, deep-copying
// containers so source and target never share mutable structure.
func remapObject(o Object, remap map[int]int) Object {
	switch v := o.(type) {
	case Ref:
		if n, ok := remap[v.Num]; ok {
			return Ref{Num: n}
		}
		return Null{}
	case Dict:
		out := make(Dict, len(v))
		for k, val := range v {
			out[k] = remapObject(val, remap)
		}
		return out
	case Array:
		out := make(Array, len(v))
		for i, val := range v {
			out[i] = remapObject(val, remap)
		}
		return out
	case *Stream:
		return &Stream{Dict: remapObject(v.Dict, remap).(Dict), Data: v.Data}
	default:
		return o
	}
}
