// =============================================================================
// Automeldung Exporter - PDF Writer
// =============================================================================
//
// Serializes a Document back into a classic PDF file: header, body with
// sequentially renumbered objects, a regenerated cross-reference table and a
// trailer. Object numbers are compacted on write, so documents that grew
// holes during merging still come out dense.
//
// =============================================================================

package pdf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteFile serializes the document to path. The write is not atomic; callers
// that need atomicity write to a temporary name and rename (the exporter
// does).
func (d *Document) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pdf: create %s: %w", path, err)
	}
	if err := d.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("pdf: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("pdf: close %s: %w", path, err)
	}
	return nil
}

// Write serializes the document to w.
func (d *Document) Write(w io.Writer) error {
	cw := &countingWriter{w: bufio.NewWriter(w)}

	// Compact renumbering: old object number -> new sequential number.
	nums := d.objectNumbers()
	remap := make(map[int]int, len(nums))
	for i, n := range nums {
		remap[n] = i + 1
	}

	// Header with a binary marker comment so transports treat the file as binary.
	cw.writeString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int64, len(nums)+1)
	for i, n := range nums {
		offsets[i+1] = cw.n
		cw.writeString(strconv.Itoa(i+1) + " 0 obj\n")
		writeObject(cw, d.objects[n], remap)
		cw.writeString("\nendobj\n")
	}

	xrefStart := cw.n
	cw.writeString("xref\n")
	fmt.Fprintf(cw, "0 %d\n", len(nums)+1)
	cw.writeString("0000000000 65535 f \n")
	for i := 1; i <= len(nums); i++ {
		fmt.Fprintf(cw, "%010d 00000 n \n", offsets[i])
	}

	trailer := Dict{}
	for k, v := range d.trailer {
		switch k {
		case "Prev", "XRefStm":
			// Regenerated files are single-revision.
		default:
			trailer[k] = v
		}
	}
	trailer["Size"] = Integer(len(nums) + 1)
	cw.writeString("trailer\n")
	writeObject(cw, trailer, remap)
	fmt.Fprintf(cw, "\nstartxref\n%d\n%%%%EOF\n", xrefStart)

	if cw.err != nil {
		return cw.err
	}
	return cw.w.(*bufio.Writer).Flush()
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	if cw.err != nil {
		return 0, cw.err
	}
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	cw.err = err
	return n, err
}

func (cw *countingWriter) writeString(s string) {
	cw.Write([]byte(s))
}

func writeObject(cw *countingWriter, obj Object, remap map[int]int) {
	switch v := obj.(type) {
	case nil, Null:
		cw.writeString("null")
	case Bool:
		if v {
			cw.writeString("true")
		} else {
			cw.writeString("false")
		}
	case Integer:
		cw.writeString(strconv.FormatInt(int64(v), 10))
	case Real:
		cw.writeString(strconv.FormatFloat(float64(v), 'f', -1, 64))
	case Name:
		cw.writeString(encodeName(v))
	case String:
		cw.Write(encodeString(v))
	case Ref:
		n, ok := remap[v.Num]
		if !ok {
			cw.writeString("null") // dangling reference, neutralize
			return
		}
		fmt.Fprintf(cw, "%d 0 R", n)
	case Array:
		cw.writeString("[")
		for i, item := range v {
			if i > 0 {
				cw.writeString(" ")
			}
			writeObject(cw, item, remap)
		}
		cw.writeString("]")
	case Dict:
		writeDict(cw, v, remap)
	case *Stream:
		v.Dict[nameLength] = Integer(len(v.Data))
		writeDict(cw, v.Dict, remap)
		cw.writeString("\nstream\n")
		cw.Write(v.Data)
		cw.writeString("\nendstream")
	default:
		cw.writeString("null")
	}
}

func writeDict(cw *countingWriter, d Dict, remap map[int]int) {
	cw.writeString("<<")
	// Stable key order keeps output deterministic and diffable.
	keys := make([]Name, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	for _, k := range keys {
		cw.writeString(" " + encodeName(k) + " ")
		writeObject(cw, d[k], remap)
	}
	cw.writeString(" >>")
}

func encodeName(n Name) string {
	out := []byte{'/'}
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c <= 0x20 || c >= 0x7f || isDelim(c) || c == '#' {
			out = append(out, fmt.Sprintf("#%02X", c)...)
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

func encodeString(s String) []byte {
	out := []byte{'('}
	for _, c := range []byte(s) {
		switch c {
		case '(', ')', '\\':
			out = append(out, '\\', c)
		case '\r':
			out = append(out, '\\', 'r')
		case '\n':
			out = append(out, '\\', 'n')
		default:
			if c < 0x20 || c >= 0x7f {
				out = append(out, fmt.Sprintf("\\%03o", c)...)
			} else {
				out = append(out, c)
			}
		}
	}
	return append(out, ')')
}
