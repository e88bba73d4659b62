package mat

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zlib"

	"github.com/backmassage/npy2mat/internal/ndarray"
)

const headerText = "MATLAB 5.0 MAT-file, Platform: posix, Created by: npy2mat"

var le = binary.LittleEndian

// writeMatrix encodes a as a complete MAT-file holding one variable called name.
func writeMatrix(w io.Writer, name string, a *ndarray.Array, compress bool) error {
	element, err := matrixElement(name, a)
	if err != nil {
		return err
	}
	return writeFile(w, element, compress)
}

func writeFile(w io.Writer, element []byte, compress bool) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(fileHeader()); err != nil {
		return errors.Wrap(err, "write header")
	}

	if compress {
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		if _, err := zw.Write(element); err != nil {
			return errors.Wrap(err, "compress matrix")
		}
		if err := zw.Close(); err != nil {
			return errors.Wrap(err, "compress matrix")
		}
		if uint64(z.Len()) > math.MaxUint32 {
			return errors.Mark(errors.New("compressed matrix exceeds 4 GiB"), ErrUnsupported)
		}
		// Compressed elements are not padded.
		if err := writeTag(bw, miCOMPRESSED, z.Len()); err != nil {
			return err
		}
		if _, err := bw.Write(z.Bytes()); err != nil {
			return errors.Wrap(err, "write compressed matrix")
		}
	} else if _, err := bw.Write(element); err != nil {
		return errors.Wrap(err, "write matrix")
	}

	return errors.Wrap(bw.Flush(), "flush output")
}

// fileHeader returns the fixed 128-byte file header: descriptive text padded
// with spaces, a zero subsystem offset, version 0x0100, and the "IM" endian
// indicator of a little-endian writer.
func fileHeader() []byte {
	h := make([]byte, 128)
	copy(h, headerText+strings.Repeat(" ", 116-len(headerText)))
	le.PutUint16(h[124:], 0x0100)
	h[126], h[127] = 'I', 'M'
	return h
}

// matrixElement renders the complete miMATRIX element (tag included) for a.
func matrixElement(name string, a *ndarray.Array) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.Mark(err, ErrUnsupported)
	}
	info, ok := classes[a.DType]
	if !ok {
		return nil, errors.Mark(errors.Newf("%s elements have no MAT-file class", a.DType), ErrUnsupported)
	}
	dims, err := matDims(a.Shape)
	if err != nil {
		return nil, err
	}

	flags := info.class
	if a.DType == ndarray.Bool {
		flags |= flagLogical
	}
	complexArray := a.DType.Kind() == ndarray.KindComplex
	if complexArray {
		flags |= flagComplex
	}

	data := a.ColumnMajor()
	var re, im []byte
	if complexArray {
		re, im = splitComplex(data, a.ElemSize()/2)
	} else {
		re = data
	}
	if uint64(len(re)) > math.MaxUint32-256 {
		return nil, errors.Mark(errors.Newf("payload of %d bytes exceeds the 4 GiB element limit", len(data)), ErrUnsupported)
	}

	var body bytes.Buffer
	writeElement(&body, miUINT32, u32s(flags, 0))
	writeElement(&body, miINT32, i32s(dims))
	writeElement(&body, miINT8, []byte(name))
	writeElement(&body, info.dataType, re)
	if complexArray {
		writeElement(&body, info.dataType, im)
	}
	if uint64(body.Len()) > math.MaxUint32 {
		return nil, errors.Mark(errors.New("matrix element exceeds 4 GiB"), ErrUnsupported)
	}

	out := make([]byte, 8, 8+body.Len())
	le.PutUint32(out[0:], miMATRIX)
	le.PutUint32(out[4:], uint32(body.Len()))
	return append(out, body.Bytes()...), nil
}

// matDims maps an array shape onto MAT dimensions, which always have at
// least two entries.
func matDims(shape []int) ([]int32, error) {
	switch len(shape) {
	case 0:
		return []int32{1, 1}, nil
	case 1:
		shape = []int{1, shape[0]}
	}
	dims := make([]int32, len(shape))
	for i, d := range shape {
		if d > math.MaxInt32 {
			return nil, errors.Mark(errors.Newf("dimension %d of shape %v exceeds int32", i, shape), ErrUnsupported)
		}
		dims[i] = int32(d)
	}
	return dims, nil
}

// splitComplex separates interleaved (re, im) pairs into two planes.
func splitComplex(data []byte, half int) (re, im []byte) {
	n := len(data) / (2 * half)
	re = make([]byte, 0, n*half)
	im = make([]byte, 0, n*half)
	for i := 0; i < n; i++ {
		off := i * 2 * half
		re = append(re, data[off:off+half]...)
		im = append(im, data[off+half:off+2*half]...)
	}
	return re, im
}

// writeElement appends a tagged data element padded to an 8-byte boundary.
func writeElement(b *bytes.Buffer, dataType uint32, payload []byte) {
	var tag [8]byte
	le.PutUint32(tag[0:], dataType)
	le.PutUint32(tag[4:], uint32(len(payload)))
	b.Write(tag[:])
	b.Write(payload)
	if pad := (8 - len(payload)%8) % 8; pad > 0 {
		b.Write(make([]byte, pad))
	}
}

func writeTag(w io.Writer, dataType uint32, size int) error {
	var tag [8]byte
	le.PutUint32(tag[0:], dataType)
	le.PutUint32(tag[4:], uint32(size))
	_, err := w.Write(tag[:])
	return errors.Wrap(err, "write element tag")
}

func u32s(vals ...uint32) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		le.PutUint32(b[i*4:], v)
	}
	return b
}

func i32s(vals []int32) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		le.PutUint32(b[i*4:], uint32(v))
	}
	return b
}
