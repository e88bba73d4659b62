// Package npy reads and writes NumPy's single-array binary format (.npy).
//
// Supported: format versions 1.0, 2.0 and 3.0; bool, signed and unsigned
// integers, float16/32/64 and complex64/128 elements in either byte order and
// either memory order. Object, string, datetime and structured dtypes are
// rejected with [ErrUnsupportedDType].
package npy

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/backmassage/npy2mat/internal/ndarray"
)

// Sentinel errors. Every error returned by this package is marked with one of
// them (or wraps an OS error from opening the file).
var (
	ErrMalformed        = errors.New("malformed array file")
	ErrUnsupportedDType = errors.New("unsupported array dtype")
)

// Decoder loads array files from disk.
type Decoder struct{}

// Decode reads the file at path into a new array.
func (Decoder) Decode(path string) (*ndarray.Array, error) {
	return ReadFile(path)
}

// ReadFile opens path and decodes it. The declared payload size is checked
// against the file size before any element buffer is allocated.
func ReadFile(path string) (*ndarray.Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open array file")
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat array file")
	}

	br := bufferedReader(f)
	h, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}
	if remaining := fi.Size() - h.DataOffset; h.PayloadSize() > remaining {
		return nil, errors.Mark(errors.Newf("payload is %d bytes, file holds %d after the header",
			h.PayloadSize(), remaining), ErrMalformed)
	}
	return readPayload(br, h)
}

// readArray decodes a complete array from r.
func readArray(r io.Reader) (*ndarray.Array, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	return readPayload(r, h)
}

// FileHeader reads only the header of the file at path and returns it with
// the file size, for inspection without loading the payload.
func FileHeader(path string) (*Header, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, "open array file")
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, 0, errors.Wrap(err, "stat array file")
	}
	h, err := ReadHeader(bufferedReader(f))
	if err != nil {
		return nil, fi.Size(), err
	}
	return h, fi.Size(), nil
}

func readPayload(r io.Reader, h *Header) (*ndarray.Array, error) {
	want := h.PayloadSize()

	// Grow with the data actually present rather than trusting the header.
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r, want)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Mark(errors.Wrap(err, "read payload"), ErrMalformed)
	}
	if n != want {
		return nil, errors.Mark(errors.Newf("payload truncated: got %d of %d bytes", n, want), ErrMalformed)
	}

	a := &ndarray.Array{
		DType:        h.DType,
		Shape:        h.Shape,
		FortranOrder: h.FortranOrder,
		Data:         buf.Bytes(),
	}
	if err := a.Validate(); err != nil {
		return nil, errors.Mark(err, ErrMalformed)
	}
	if h.BigEndian {
		swapBytes(a)
	}
	return a, nil
}

// swapBytes converts a big-endian buffer to little-endian in place. Complex
// elements are two floats and are swapped half by half.
func swapBytes(a *ndarray.Array) {
	unit := a.ElemSize()
	if a.DType.Kind() == ndarray.KindComplex {
		unit /= 2
	}
	if unit <= 1 {
		return
	}
	for off := 0; off+unit <= len(a.Data); off += unit {
		b := a.Data[off : off+unit]
		for i, j := 0, unit-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
	}
}

// Write encodes a as a version 1.0 little-endian array file.
func Write(w io.Writer, a *ndarray.Array) error {
	if err := a.Validate(); err != nil {
		return err
	}
	header := formatHeader(a)
	if len(header) > 0xffff {
		return errors.Newf("header of %d bytes does not fit format version 1.0", len(header))
	}

	var pre [10]byte
	copy(pre[:], Magic)
	pre[6], pre[7] = 1, 0
	binary.LittleEndian.PutUint16(pre[8:], uint16(len(header)))

	for _, chunk := range [][]byte{pre[:], header, a.Data} {
		if _, err := w.Write(chunk); err != nil {
			return errors.Wrap(err, "write array file")
		}
	}
	return nil
}

// WriteFile writes a to path, replacing any existing file.
func WriteFile(path string, a *ndarray.Array) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create array file")
	}
	if err := Write(f, a); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close array file")
}
