package pipeline

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// ListFiles returns the base names of the regular files directly inside dir,
// sorted lexicographically. Subdirectories are skipped. Symlinks are
// followed: one that resolves to a regular file is listed, one that resolves
// to a directory or to nothing is not.
//
// Errors are marked [ErrListing].
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "list %s", dir), ErrListing)
	}

	var names []string
	for _, e := range entries {
		mode := e.Type()
		if mode&os.ModeSymlink != 0 {
			fi, err := os.Stat(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			mode = fi.Mode().Type()
		}
		if mode.IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
