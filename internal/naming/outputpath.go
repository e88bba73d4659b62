package naming

import (
	"path/filepath"
	"strings"
)

// Paths is the resolved input and output location of one file.
type Paths struct {
	Source      string
	Destination string
}

// Resolve builds the source path of name inside sourceDir and its output path
// inside destDir with the final extension replaced by destExt.
//
//	Resolve("in", "scan.01.npy", "out", ".mat") → {in/scan.01.npy, out/scan.01.mat}
//
// A name made only of an extension (".npy") is kept whole, so it maps to
// ".npy.mat" rather than an empty stem.
func Resolve(sourceDir, name, destDir, destExt string) Paths {
	return Paths{
		Source:      filepath.Join(sourceDir, name),
		Destination: filepath.Join(destDir, Stem(name)+destExt),
	}
}

// Stem returns name without its final extension.
func Stem(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if strings.TrimLeft(stem, ".") == "" {
		return name
	}
	return stem
}
