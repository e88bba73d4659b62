// Package mat writes MATLAB Level 5 MAT-files (.mat).
//
// Every file produced here holds exactly one named variable. Arrays are stored
// column-major; 0-d arrays become 1x1 and 1-d arrays become 1xN row vectors,
// the same layout scipy.io.savemat uses by default. The header carries no
// timestamp, so encoding the same array twice yields identical bytes.
package mat

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/backmassage/npy2mat/internal/ndarray"
)

// DefaultVariable is the name of the single entry written to every file.
const DefaultVariable = "data"

// ErrUnsupported marks payloads that cannot be represented in a Level 5 file.
var ErrUnsupported = errors.New("array cannot be stored in a MAT-file")

// Level 5 data element types.
const (
	miINT8       uint32 = 1
	miUINT8      uint32 = 2
	miINT16      uint32 = 3
	miUINT16     uint32 = 4
	miINT32      uint32 = 5
	miUINT32     uint32 = 6
	miSINGLE     uint32 = 7
	miDOUBLE     uint32 = 9
	miINT64      uint32 = 12
	miUINT64     uint32 = 13
	miMATRIX     uint32 = 14
	miCOMPRESSED uint32 = 15
)

// MATLAB array classes.
const (
	mxDOUBLE uint32 = 6
	mxSINGLE uint32 = 7
	mxINT8   uint32 = 8
	mxUINT8  uint32 = 9
	mxINT16  uint32 = 10
	mxUINT16 uint32 = 11
	mxINT32  uint32 = 12
	mxUINT32 uint32 = 13
	mxINT64  uint32 = 14
	mxUINT64 uint32 = 15
)

// Array flag bits (second byte of the flags word).
const (
	flagLogical uint32 = 1 << 9
	flagComplex uint32 = 1 << 11
)

type classInfo struct {
	class    uint32
	dataType uint32
}

// classes maps element types onto (class, storage type). Complex types use the
// class of their component float; bool is stored as logical uint8.
var classes = map[ndarray.DType]classInfo{
	ndarray.Bool:       {mxUINT8, miUINT8},
	ndarray.Int8:       {mxINT8, miINT8},
	ndarray.Uint8:      {mxUINT8, miUINT8},
	ndarray.Int16:      {mxINT16, miINT16},
	ndarray.Uint16:     {mxUINT16, miUINT16},
	ndarray.Int32:      {mxINT32, miINT32},
	ndarray.Uint32:     {mxUINT32, miUINT32},
	ndarray.Int64:      {mxINT64, miINT64},
	ndarray.Uint64:     {mxUINT64, miUINT64},
	ndarray.Float32:    {mxSINGLE, miSINGLE},
	ndarray.Float64:    {mxDOUBLE, miDOUBLE},
	ndarray.Complex64:  {mxSINGLE, miSINGLE},
	ndarray.Complex128: {mxDOUBLE, miDOUBLE},
}

// Encoder writes arrays to MAT-files on disk.
type Encoder struct {
	// Variable is the entry name; empty means DefaultVariable.
	Variable string
	// Compress wraps the matrix element in a zlib-compressed element.
	Compress bool
}

// Encode writes a to path. The file is assembled under a temporary name in
// the destination directory and renamed into place only after a successful
// close, so a failed encode never leaves a partial file at path. The
// destination directory must already exist.
func (e Encoder) Encode(a *ndarray.Array, path string) (err error) {
	name := e.Variable
	if name == "" {
		name = DefaultVariable
	}

	// Reject the payload before touching the filesystem.
	body, err := matrixElement(name, a)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WithHint(
			errors.Wrapf(err, "create output in %s", dir),
			"the destination directory must exist and be writable; it is never created automatically")
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err = writeFile(tmp, body, e.Compress); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return errors.Wrap(err, "set output permissions")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close output")
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "move output into place")
	}
	return nil
}
