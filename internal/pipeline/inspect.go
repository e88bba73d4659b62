package pipeline

import (
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/backmassage/npy2mat/internal/naming"
	"github.com/backmassage/npy2mat/internal/npy"
)

// HeaderRow describes one source file as seen by its header alone.
type HeaderRow struct {
	Name     string
	Header   *npy.Header // nil when the header itself could not be read
	FileSize int64
	Err      error
}

// Inspect reads only the headers of the files in dir that carry ext. The
// payloads are never loaded, so it is safe to run on very large arrays. The
// second return value counts the listed files that did not carry ext.
func Inspect(dir, ext string) (rows []HeaderRow, other int, err error) {
	names, err := ListFiles(dir)
	if err != nil {
		return nil, 0, err
	}
	for _, name := range names {
		if !naming.HasExtension(name, ext) {
			other++
			continue
		}
		h, size, err := npy.FileHeader(filepath.Join(dir, name))
		if err == nil && h.PayloadSize() > size-h.DataOffset {
			err = errors.Mark(errors.Newf("payload is %d bytes, file holds %d after the header",
				h.PayloadSize(), size-h.DataOffset), npy.ErrMalformed)
		}
		rows = append(rows, HeaderRow{Name: name, Header: h, FileSize: size, Err: err})
	}
	return rows, other, nil
}
