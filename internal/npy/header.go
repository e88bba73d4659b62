package npy

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/backmassage/npy2mat/internal/ndarray"
)

// Magic is the six-byte prefix of every array file.
const Magic = "\x93NUMPY"

// Header is the parsed preamble of an array file.
type Header struct {
	Major, Minor byte
	DType        ndarray.DType
	BigEndian    bool
	FortranOrder bool
	Shape        []int
	// DataOffset is the byte offset of the element buffer from the start of the file.
	DataOffset int64
}

// Len returns the element count declared by the header.
func (h *Header) Len() int {
	n := 1
	for _, d := range h.Shape {
		n *= d
	}
	return n
}

// PayloadSize returns the number of element bytes the header promises.
func (h *Header) PayloadSize() int64 {
	return int64(h.Len()) * int64(h.DType.Size())
}

// Descr renders the dtype back in NumPy's descr notation (e.g. "<f8").
func (h *Header) Descr() string {
	order := "<"
	if h.BigEndian {
		order = ">"
	}
	return descrFor(h.DType, order)
}

// ReadHeader parses the magic, version, and header dictionary from r. On
// success r is positioned at the first payload byte.
func ReadHeader(r io.Reader) (*Header, error) {
	var pre [8]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return nil, malformed(err, "read preamble")
	}
	if string(pre[:6]) != Magic {
		return nil, errors.Mark(errors.New("missing array file magic"), ErrMalformed)
	}

	h := &Header{Major: pre[6], Minor: pre[7]}
	var headerLen int
	switch h.Major {
	case 1:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, malformed(err, "read header length")
		}
		headerLen = int(binary.LittleEndian.Uint16(b[:]))
		h.DataOffset = 10
	case 2, 3:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, malformed(err, "read header length")
		}
		headerLen = int(binary.LittleEndian.Uint32(b[:]))
		h.DataOffset = 12
	default:
		return nil, errors.Mark(errors.Newf("unsupported format version %d.%d", h.Major, h.Minor), ErrMalformed)
	}
	if headerLen > maxHeaderLen {
		return nil, errors.Mark(errors.Newf("header length %d exceeds %d bytes", headerLen, maxHeaderLen), ErrMalformed)
	}

	raw := make([]byte, headerLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, malformed(err, "read header")
	}
	h.DataOffset += int64(headerLen)

	if err := h.parseDict(string(raw)); err != nil {
		return nil, err
	}
	return h, nil
}

// maxHeaderLen bounds the header dictionary. NumPy refuses headers above
// 10000 bytes unless told otherwise; allow some slack for large shapes.
const maxHeaderLen = 1 << 20

func malformed(err error, op string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Mark(errors.Newf("%s: file is truncated", op), ErrMalformed)
	}
	return errors.Mark(errors.Wrap(err, op), ErrMalformed)
}

func (h *Header) parseDict(s string) error {
	p := &literalParser{s: strings.TrimSpace(s)}
	fields, err := p.dict()
	if err != nil {
		return errors.Mark(errors.Wrap(err, "parse header dictionary"), ErrMalformed)
	}

	descr, ok := fields["descr"].(string)
	if !ok {
		if _, present := fields["descr"]; present {
			return errors.Mark(errors.New("structured dtypes are not supported"), ErrUnsupportedDType)
		}
		return errors.Mark(errors.New("header has no descr"), ErrMalformed)
	}
	if err := h.parseDescr(descr); err != nil {
		return err
	}

	fortran, ok := fields["fortran_order"].(bool)
	if !ok {
		return errors.Mark(errors.New("header has no boolean fortran_order"), ErrMalformed)
	}
	h.FortranOrder = fortran

	shape, ok := fields["shape"].([]int)
	if !ok {
		return errors.Mark(errors.New("header has no integer shape tuple"), ErrMalformed)
	}
	// Bound the byte count, not just the element count, so PayloadSize
	// cannot wrap for wide dtypes.
	limit := int64(math.MaxInt64) / int64(h.DType.Size())
	total := int64(1)
	for _, d := range shape {
		if d < 0 {
			return errors.Mark(errors.Newf("negative dimension in shape %v", shape), ErrMalformed)
		}
		if d > 0 && total > limit/int64(d) && !slices.Contains(shape, 0) {
			return errors.Mark(errors.Newf("shape %v is too large", shape), ErrMalformed)
		}
		total *= int64(d)
	}
	h.Shape = shape
	return nil
}

func (h *Header) parseDescr(descr string) error {
	if len(descr) < 3 {
		return errors.Mark(errors.Newf("unsupported dtype %q", descr), ErrUnsupportedDType)
	}
	order, kind, sizeStr := descr[0], descr[1], descr[2:]
	switch order {
	case '<', '|', '=':
		h.BigEndian = false
	case '>':
		h.BigEndian = true
	default:
		return errors.Mark(errors.Newf("unsupported dtype %q", descr), ErrUnsupportedDType)
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		return errors.Mark(errors.Newf("unsupported dtype %q", descr), ErrUnsupportedDType)
	}

	var k ndarray.Kind
	switch kind {
	case 'b':
		k = ndarray.KindBool
	case 'i':
		k = ndarray.KindInt
	case 'u':
		k = ndarray.KindUint
	case 'f':
		k = ndarray.KindFloat
	case 'c':
		k = ndarray.KindComplex
	default:
		// O (object), S/U (strings), V (void), M/m (datetimes).
		return errors.Mark(errors.Newf("unsupported dtype %q", descr), ErrUnsupportedDType)
	}
	d, ok := ndarray.Lookup(k, size)
	if !ok {
		return errors.Mark(errors.Newf("unsupported dtype %q", descr), ErrUnsupportedDType)
	}
	h.DType = d
	return nil
}

var kindChars = map[ndarray.Kind]byte{
	ndarray.KindBool:    'b',
	ndarray.KindInt:     'i',
	ndarray.KindUint:    'u',
	ndarray.KindFloat:   'f',
	ndarray.KindComplex: 'c',
}

func descrFor(d ndarray.DType, order string) string {
	if d.Size() == 1 {
		order = "|"
	}
	return order + string(kindChars[d.Kind()]) + strconv.Itoa(d.Size())
}

// formatHeader renders the v1.0 header dictionary, padded with spaces and a
// trailing newline so the payload starts on a 64-byte boundary.
func formatHeader(a *ndarray.Array) []byte {
	var b bytes.Buffer
	b.WriteString("{'descr': '")
	b.WriteString(descrFor(a.DType, "<"))
	b.WriteString("', 'fortran_order': ")
	if a.FortranOrder {
		b.WriteString("True")
	} else {
		b.WriteString("False")
	}
	b.WriteString(", 'shape': (")
	for i, d := range a.Shape {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(d))
	}
	if len(a.Shape) == 1 {
		b.WriteString(",")
	}
	b.WriteString("), }")

	const prefix = 10
	total := prefix + b.Len() + 1
	if pad := (64 - total%64) % 64; pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteByte('\n')
	return b.Bytes()
}

// literalParser reads the restricted Python literal syntax used in headers:
// a dict with string keys whose values are strings, booleans, or integer tuples.
type literalParser struct {
	s   string
	pos int
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.s) && strings.IndexByte(" \t\r\n", p.s[p.pos]) >= 0 {
		p.pos++
	}
}

func (p *literalParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *literalParser) expect(c byte) error {
	if p.peek() != c {
		return errors.Newf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *literalParser) dict() (map[string]any, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for {
		if p.peek() == '}' {
			p.pos++
			return out, nil
		}
		key, err := p.str()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		out[key] = val
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, errors.Newf("expected ',' or '}' at offset %d", p.pos)
		}
	}
}

func (p *literalParser) value() (any, error) {
	switch c := p.peek(); {
	case c == '\'' || c == '"':
		return p.str()
	case c == '(':
		return p.tuple()
	case c == '[':
		// Structured dtype descriptions are lists; skip and report them as such.
		if err := p.skipList(); err != nil {
			return nil, err
		}
		return listMarker{}, nil
	case strings.HasPrefix(p.s[p.pos:], "True"):
		p.pos += 4
		return true, nil
	case strings.HasPrefix(p.s[p.pos:], "False"):
		p.pos += 5
		return false, nil
	default:
		return nil, errors.Newf("unexpected value at offset %d", p.pos)
	}
}

type listMarker struct{}

func (p *literalParser) skipList() error {
	depth := 0
	var quote byte
	for ; p.pos < len(p.s); p.pos++ {
		c := p.s[p.pos]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
			if depth == 0 {
				p.pos++
				return nil
			}
		}
	}
	return errors.New("unterminated list")
}

func (p *literalParser) str() (string, error) {
	q := p.peek()
	if q != '\'' && q != '"' {
		return "", errors.Newf("expected string at offset %d", p.pos)
	}
	end := strings.IndexByte(p.s[p.pos+1:], q)
	if end < 0 {
		return "", errors.New("unterminated string")
	}
	s := p.s[p.pos+1 : p.pos+1+end]
	p.pos += end + 2
	return s, nil
}

func (p *literalParser) tuple() ([]int, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	out := []int{}
	for {
		if p.peek() == ')' {
			p.pos++
			return out, nil
		}
		start := p.pos
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
		}
		if start == p.pos {
			return nil, errors.Newf("expected integer at offset %d", p.pos)
		}
		n, err := strconv.Atoi(p.s[start:p.pos])
		if err != nil {
			return nil, errors.Wrapf(err, "dimension at offset %d", start)
		}
		// Python 2 era files spell long integers with an L suffix.
		if p.pos < len(p.s) && p.s[p.pos] == 'L' {
			p.pos++
		}
		out = append(out, n)
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
		default:
			return nil, errors.Newf("expected ',' or ')' at offset %d", p.pos)
		}
	}
}

// bufferedReader avoids many tiny reads against the file while parsing.
func bufferedReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, 64*1024)
}
