// =============================================================================
// Automeldung Exporter - PDF Reader
// =============================================================================
//
// Sequential parser for classic PDF files (uncompressed cross-reference
// tables). Instead of trusting the xref table it walks the file front to
// back, collecting every "N G obj ... endobj" body it finds; the xref section
// itself is skipped and only the trailer dictionary is kept. This is more
// work than a seek-based reader but it survives the slightly off xref offsets
// that hand-edited templates tend to have.
//
// Files using cross-reference streams or compressed object streams are
// rejected with a clear error; the templates this tool consumes, and every
// document the engine itself writes, use the classic layout.
//
// =============================================================================

package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ReadFile parses the PDF at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: read %s: %w", path, err)
	}
	doc, err := Read(data)
	if err != nil {
		return nil, fmt.Errorf("pdf: parse %s: %w", path, err)
	}
	return doc, nil
}

// Read parses PDF data from memory.
func Read(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, errors.New("not a PDF file (missing %PDF header)")
	}
	lx := &lexer{data: data}
	doc := NewDocument()

	for {
		lx.skipSpace()
		if lx.eof() {
			break
		}
		switch {
		case lx.hasKeyword("xref"):
			if err := lx.skipXrefTable(); err != nil {
				return nil, err
			}
		case lx.hasKeyword("trailer"):
			lx.consumeKeyword("trailer")
			tr, err := lx.parseObject()
			if err != nil {
				return nil, fmt.Errorf("trailer: %w", err)
			}
			trd, ok := tr.(Dict)
			if !ok {
				return nil, errors.New("trailer is not a dictionary")
			}
			// First trailer wins; updates appended later only patch it.
			if _, have := doc.trailer[nameRoot]; !have {
				for k, v := range trd {
					doc.trailer[k] = v
				}
			}
		case lx.hasKeyword("startxref"):
			lx.consumeKeyword("startxref")
			lx.skipSpace()
			lx.scanToken() // the byte offset, unused
		default:
			num, err := lx.parseIndirectHeader()
			if err != nil {
				return nil, err
			}
			obj, err := lx.parseObject()
			if err != nil {
				return nil, fmt.Errorf("object %d: %w", num, err)
			}
			if d, ok := obj.(Dict); ok {
				lx.skipSpace()
				if lx.hasKeyword("stream") {
					st, err := lx.readStream(d, doc)
					if err != nil {
						return nil, fmt.Errorf("object %d: %w", num, err)
					}
					obj = st
				}
			}
			lx.skipSpace()
			lx.consumeKeyword("endobj") // tolerated if missing
			doc.Set(num, obj)
		}
	}

	if err := checkSupported(doc); err != nil {
		return nil, err
	}
	if _, have := doc.trailer[nameRoot]; !have {
		// Recover the catalog by scanning, some producers omit a usable trailer.
		for _, n := range doc.objectNumbers() {
			if d, ok := doc.objects[n].(Dict); ok {
				if t, _ := d[nameType].(Name); t == nameCatalog {
					doc.trailer[nameRoot] = Ref{Num: n}
					break
				}
			}
		}
	}
	if _, have := doc.trailer[nameRoot]; !have {
		return nil, errors.New("no document catalog found")
	}
	return doc, nil
}

// checkSupported rejects object layouts the engine cannot edit safely.
func checkSupported(doc *Document) error {
	for _, obj := range doc.objects {
		st, ok := obj.(*Stream)
		if !ok {
			continue
		}
		switch t, _ := st.Dict[nameType].(Name); t {
		case "ObjStm":
			return errors.New("compressed object streams are not supported")
		case "XRef":
			return errors.New("cross-reference streams are not supported")
		}
	}
	return nil
}

// =============================================================================
// LEXER
// =============================================================================

type lexer struct {
	data []byte
	pos  int
}

func (lx *lexer) eof() bool         { return lx.pos >= len(lx.data) }
func (lx *lexer) peek() byte        { return lx.data[lx.pos] }
func (lx *lexer) remaining() []byte { return lx.data[lx.pos:] }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (lx *lexer) skipSpace() {
	for !lx.eof() {
		c := lx.peek()
		if isSpace(c) {
			lx.pos++
			continue
		}
		if c == '%' {
			// Comments run to end of line. %%EOF is just a comment too.
			lx.skipLine()
			continue
		}
		return
	}
}

func (lx *lexer) skipLine() {
	for !lx.eof() && lx.peek() != '\n' && lx.peek() != '\r' {
		lx.pos++
	}
	for !lx.eof() && (lx.peek() == '\n' || lx.peek() == '\r') {
		lx.pos++
	}
}

// scanToken reads a bare token (number or keyword) delimited by space/delim.
func (lx *lexer) scanToken() string {
	start := lx.pos
	for !lx.eof() && !isSpace(lx.peek()) && !isDelim(lx.peek()) {
		lx.pos++
	}
	return string(lx.data[start:lx.pos])
}

// hasKeyword reports whether the next token is exactly kw, without consuming.
func (lx *lexer) hasKeyword(kw string) bool {
	if !bytes.HasPrefix(lx.remaining(), []byte(kw)) {
		return false
	}
	end := lx.pos + len(kw)
	return end >= len(lx.data) || isSpace(lx.data[end]) || isDelim(lx.data[end])
}

func (lx *lexer) consumeKeyword(kw string) bool {
	if lx.hasKeyword(kw) {
		lx.pos += len(kw)
		return true
	}
	return false
}

// parseIndirectHeader expects "N G obj" and returns N.
func (lx *lexer) parseIndirectHeader() (int, error) {
	lx.skipSpace()
	numTok := lx.scanToken()
	num, err := strconv.Atoi(numTok)
	if err != nil {
		return 0, fmt.Errorf("expected object number at offset %d, got %q", lx.pos, numTok)
	}
	lx.skipSpace()
	genTok := lx.scanToken()
	if _, err := strconv.Atoi(genTok); err != nil {
		return 0, fmt.Errorf("expected generation number for object %d", num)
	}
	lx.skipSpace()
	if !lx.consumeKeyword("obj") {
		return 0, fmt.Errorf("expected 'obj' keyword for object %d", num)
	}
	return num, nil
}

// parseObject parses any direct object, including "N G R" references.
func (lx *lexer) parseObject() (Object, error) {
	lx.skipSpace()
	if lx.eof() {
		return nil, errors.New("unexpected end of data")
	}
	c := lx.peek()
	switch {
	case c == '<':
		if lx.pos+1 < len(lx.data) && lx.data[lx.pos+1] == '<' {
			return lx.parseDict()
		}
		return lx.parseHexString()
	case c == '(':
		return lx.parseLiteralString()
	case c == '/':
		return lx.parseName()
	case c == '[':
		return lx.parseArray()
	case c == 't':
		if lx.consumeKeyword("true") {
			return Bool(true), nil
		}
	case c == 'f':
		if lx.consumeKeyword("false") {
			return Bool(false), nil
		}
	case c == 'n':
		if lx.consumeKeyword("null") {
			return Null{}, nil
		}
	}
	if c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
		return lx.parseNumberOrRef()
	}
	return nil, fmt.Errorf("unexpected byte %q at offset %d", c, lx.pos)
}

func (lx *lexer) parseNumberOrRef() (Object, error) {
	tok := lx.scanToken()
	if bytes.ContainsAny([]byte(tok), ".") {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", tok)
		}
		return Real(f), nil
	}
	i, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad number %q", tok)
	}
	// Lookahead for "G R" to form an indirect reference.
	save := lx.pos
	lx.skipSpace()
	genTok := lx.scanToken()
	if gen, gerr := strconv.Atoi(genTok); gerr == nil {
		lx.skipSpace()
		if lx.consumeKeyword("R") {
			return Ref{Num: int(i), Gen: gen}, nil
		}
	}
	lx.pos = save
	return Integer(i), nil
}

func (lx *lexer) parseName() (Object, error) {
	lx.pos++ // consume '/'
	var out []byte
	for !lx.eof() && !isSpace(lx.peek()) && !isDelim(lx.peek()) {
		c := lx.peek()
		if c == '#' && lx.pos+2 < len(lx.data) {
			if v, err := strconv.ParseUint(string(lx.data[lx.pos+1:lx.pos+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				lx.pos += 3
				continue
			}
		}
		out = append(out, c)
		lx.pos++
	}
	return Name(out), nil
}

func (lx *lexer) parseArray() (Object, error) {
	lx.pos++ // consume '['
	var arr Array
	for {
		lx.skipSpace()
		if lx.eof() {
			return nil, errors.New("unterminated array")
		}
		if lx.peek() == ']' {
			lx.pos++
			return arr, nil
		}
		obj, err := lx.parseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (lx *lexer) parseDict() (Object, error) {
	lx.pos += 2 // consume '<<'
	d := Dict{}
	for {
		lx.skipSpace()
		if lx.eof() {
			return nil, errors.New("unterminated dictionary")
		}
		if lx.peek() == '>' {
			if lx.pos+1 < len(lx.data) && lx.data[lx.pos+1] == '>' {
				lx.pos += 2
				return d, nil
			}
			return nil, errors.New("stray '>' in dictionary")
		}
		if lx.peek() != '/' {
			return nil, fmt.Errorf("dictionary key must be a name at offset %d", lx.pos)
		}
		key, err := lx.parseName()
		if err != nil {
			return nil, err
		}
		val, err := lx.parseObject()
		if err != nil {
			return nil, err
		}
		d[key.(Name)] = val
	}
}

func (lx *lexer) parseLiteralString() (Object, error) {
	lx.pos++ // consume '('
	var out []byte
	depth := 1
	for !lx.eof() {
		c := lx.peek()
		lx.pos++
		switch c {
		case '\\':
			if lx.eof() {
				return nil, errors.New("unterminated string escape")
			}
			e := lx.peek()
			lx.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				if !lx.eof() && lx.peek() == '\n' {
					lx.pos++
				}
			case '\n':
				// line continuation, emit nothing
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for i := 0; i < 2 && !lx.eof(); i++ {
						n := lx.peek()
						if n < '0' || n > '7' {
							break
						}
						val = val*8 + int(n-'0')
						lx.pos++
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return String(out), nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return nil, errors.New("unterminated string")
}

func (lx *lexer) parseHexString() (Object, error) {
	lx.pos++ // consume '<'
	var nibbles []byte
	for !lx.eof() {
		c := lx.peek()
		lx.pos++
		if c == '>' {
			if len(nibbles)%2 == 1 {
				nibbles = append(nibbles, '0')
			}
			out := make([]byte, len(nibbles)/2)
			for i := 0; i < len(out); i++ {
				v, err := strconv.ParseUint(string(nibbles[2*i:2*i+2]), 16, 8)
				if err != nil {
					return nil, fmt.Errorf("bad hex string: %w", err)
				}
				out[i] = byte(v)
			}
			return String(out), nil
		}
		if isSpace(c) {
			continue
		}
		nibbles = append(nibbles, c)
	}
	return nil, errors.New("unterminated hex string")
}

// readStream consumes stream data following a dictionary. The /Length entry
// is honored when it resolves against already-parsed objects; otherwise the
// data runs to the next "endstream" keyword.
func (lx *lexer) readStream(d Dict, doc *Document) (*Stream, error) {
	lx.consumeKeyword("stream")
	// EOL after the keyword: CRLF or LF.
	if !lx.eof() && lx.peek() == '\r' {
		lx.pos++
	}
	if !lx.eof() && lx.peek() == '\n' {
		lx.pos++
	}
	length := -1
	switch v := d[nameLength].(type) {
	case Integer:
		length = int(v)
	case Ref:
		if lv, ok := doc.Get(v.Num).(Integer); ok {
			length = int(lv)
		}
	}
	var data []byte
	if length >= 0 && lx.pos+length <= len(lx.data) {
		candidate := lx.data[lx.pos : lx.pos+length]
		rest := lx.data[lx.pos+length:]
		if idx := bytes.Index(rest, []byte("endstream")); idx >= 0 && idx <= 2 {
			data = candidate
			lx.pos += length
		}
	}
	if data == nil {
		idx := bytes.Index(lx.remaining(), []byte("endstream"))
		if idx < 0 {
			return nil, errors.New("unterminated stream")
		}
		data = lx.data[lx.pos : lx.pos+idx]
		// Strip the EOL that precedes the endstream keyword.
		data = bytes.TrimRight(data, "\r\n")
		lx.pos += idx
	}
	lx.skipSpace()
	lx.consumeKeyword("endstream")
	cp := make([]byte, len(data))
	copy(cp, data)
	d[nameLength] = Integer(len(cp))
	return &Stream{Dict: d, Data: cp}, nil
}

// skipXrefTable consumes a classic cross-reference section.
func (lx *lexer) skipXrefTable() error {
	lx.consumeKeyword("xref")
	for {
		lx.skipSpace()
		if lx.eof() {
			return errors.New("unterminated xref table")
		}
		if lx.hasKeyword("trailer") {
			return nil
		}
		// Subsection header: "start count", then count fixed-width entries.
		startTok := lx.scanToken()
		if _, err := strconv.Atoi(startTok); err != nil {
			return fmt.Errorf("bad xref subsection at offset %d", lx.pos)
		}
		lx.skipSpace()
		countTok := lx.scanToken()
		count, err := strconv.Atoi(countTok)
		if err != nil {
			return fmt.Errorf("bad xref subsection count at offset %d", lx.pos)
		}
		for i := 0; i < count; i++ {
			lx.skipSpace()
			lx.scanToken() // offset
			lx.skipSpace()
			lx.scanToken() // generation
			lx.skipSpace()
			lx.scanToken() // n / f
		}
	}
}
