// Package ndarray defines the in-memory numeric array passed from the array
// decoder to the matrix encoder.
//
// An [Array] is a tagged value: element type, shape, memory order, and a flat
// little-endian element buffer. Decoders normalize byte order on the way in so
// encoders never have to look at where the data came from.
package ndarray

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/cockroachdb/errors"
)

// Kind groups element types by their numeric family.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindUint
	KindFloat
	KindComplex
)

// DType is the element type of an array.
type DType string

const (
	Bool       DType = "bool"
	Int8       DType = "int8"
	Int16      DType = "int16"
	Int32      DType = "int32"
	Int64      DType = "int64"
	Uint8      DType = "uint8"
	Uint16     DType = "uint16"
	Uint32     DType = "uint32"
	Uint64     DType = "uint64"
	Float16    DType = "float16"
	Float32    DType = "float32"
	Float64    DType = "float64"
	Complex64  DType = "complex64"
	Complex128 DType = "complex128"
)

type dtypeInfo struct {
	kind Kind
	size int
}

var dtypes = map[DType]dtypeInfo{
	Bool:       {KindBool, 1},
	Int8:       {KindInt, 1},
	Int16:      {KindInt, 2},
	Int32:      {KindInt, 4},
	Int64:      {KindInt, 8},
	Uint8:      {KindUint, 1},
	Uint16:     {KindUint, 2},
	Uint32:     {KindUint, 4},
	Uint64:     {KindUint, 8},
	Float16:    {KindFloat, 2},
	Float32:    {KindFloat, 4},
	Float64:    {KindFloat, 8},
	Complex64:  {KindComplex, 8},
	Complex128: {KindComplex, 16},
}

// ErrInvalid marks an array whose buffer does not agree with its header.
var ErrInvalid = errors.New("invalid array")

// Known reports whether d is a supported element type.
func (d DType) Known() bool {
	_, ok := dtypes[d]
	return ok
}

// Size returns the element size in bytes, or 0 for an unknown type.
func (d DType) Size() int { return dtypes[d].size }

// Kind returns the numeric family of d.
func (d DType) Kind() Kind { return dtypes[d].kind }

// Lookup returns the dtype for a numeric family and element size.
func Lookup(kind Kind, size int) (DType, bool) {
	for d, info := range dtypes {
		if info.kind == kind && info.size == size {
			return d, true
		}
	}
	return "", false
}

// Array is an n-dimensional array with a flat little-endian buffer.
// A zero-length Shape is a 0-d (scalar) array holding one element.
type Array struct {
	DType        DType
	Shape        []int
	FortranOrder bool
	Data         []byte
}

// Len returns the number of elements (product of the shape).
func (a *Array) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// ElemSize returns the size of one element in bytes.
func (a *Array) ElemSize() int { return a.DType.Size() }

// ByteSize returns the buffer length the shape and dtype call for. ok is
// false when that length does not fit in an int.
func (a *Array) ByteSize() (n int, ok bool) {
	for _, d := range a.Shape {
		if d < 0 {
			return 0, false
		}
	}
	if slices.Contains(a.Shape, 0) {
		return 0, true
	}
	n = a.ElemSize()
	for _, d := range a.Shape {
		if n > math.MaxInt/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}

// Validate checks the dtype, shape, and buffer length against each other.
func (a *Array) Validate() error {
	if !a.DType.Known() {
		return errors.Mark(errors.Newf("unknown dtype %q", a.DType), ErrInvalid)
	}
	for _, d := range a.Shape {
		if d < 0 {
			return errors.Mark(errors.Newf("negative dimension in shape %v", a.Shape), ErrInvalid)
		}
	}
	want, ok := a.ByteSize()
	if !ok {
		return errors.Mark(errors.Newf("shape %v of %s overflows the addressable size",
			a.Shape, a.DType), ErrInvalid)
	}
	if len(a.Data) != want {
		return errors.Mark(errors.Newf("buffer holds %d bytes, shape %v of %s needs %d",
			len(a.Data), a.Shape, a.DType, want), ErrInvalid)
	}
	return nil
}

// ColumnMajor returns the element buffer in column-major (Fortran) order.
// The receiver is not modified; when the array is already column-major, or has
// at most one non-trivial axis, the original buffer is returned as-is.
func (a *Array) ColumnMajor() []byte {
	if a.FortranOrder || len(a.Shape) < 2 || a.Len() == 0 {
		return a.Data
	}
	size := a.ElemSize()
	n := a.Len()
	ndim := len(a.Shape)

	// Row-major strides (in elements) of the source buffer.
	strides := make([]int, ndim)
	stride := 1
	for i := ndim - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= a.Shape[i]
	}

	out := make([]byte, len(a.Data))
	idx := make([]int, ndim)
	for dst := 0; dst < n; dst++ {
		src := 0
		for i, v := range idx {
			src += v * strides[i]
		}
		copy(out[dst*size:(dst+1)*size], a.Data[src*size:(src+1)*size])

		// Advance the column-major index: first axis varies fastest.
		for i := 0; i < ndim; i++ {
			idx[i]++
			if idx[i] < a.Shape[i] {
				break
			}
			idx[i] = 0
		}
	}
	return out
}

// Float64s converts every element of a real-valued array to float64 in buffer
// order. Complex arrays are rejected.
func (a *Array) Float64s() ([]float64, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	n := a.Len()
	out := make([]float64, n)
	le := binary.LittleEndian
	for i := 0; i < n; i++ {
		b := a.Data[i*a.ElemSize():]
		switch a.DType {
		case Bool, Uint8:
			out[i] = float64(b[0])
		case Int8:
			out[i] = float64(int8(b[0]))
		case Int16:
			out[i] = float64(int16(le.Uint16(b)))
		case Uint16:
			out[i] = float64(le.Uint16(b))
		case Int32:
			out[i] = float64(int32(le.Uint32(b)))
		case Uint32:
			out[i] = float64(le.Uint32(b))
		case Int64:
			out[i] = float64(int64(le.Uint64(b)))
		case Uint64:
			out[i] = float64(le.Uint64(b))
		case Float16:
			out[i] = float64(halfToFloat32(le.Uint16(b)))
		case Float32:
			out[i] = float64(math.Float32frombits(le.Uint32(b)))
		case Float64:
			out[i] = math.Float64frombits(le.Uint64(b))
		default:
			return nil, errors.Newf("cannot convert %s elements to float64", a.DType)
		}
	}
	return out, nil
}

// FromFloat64s builds a row-major float64 array with the given shape.
func FromFloat64s(shape []int, vals []float64) (*Array, error) {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	a := &Array{DType: Float64, Shape: append([]int(nil), shape...), Data: buf}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// halfToFloat32 widens an IEEE 754 binary16 value.
func halfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: normalize the fraction.
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		return math.Float32frombits(sign | e<<23 | frac<<13)
	case 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | frac<<13)
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | frac<<13)
	}
}
