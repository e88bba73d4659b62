package naming

import "strings"

// HasExtension reports whether name ends with ext. The comparison is
// case-sensitive: "A.NPY" does not match ".npy".
func HasExtension(name, ext string) bool {
	return strings.HasSuffix(name, ext)
}

// AllHaveExtension reports whether every name ends with ext. It is the AND of
// [HasExtension] over names and is true for an empty slice.
func AllHaveExtension(names []string, ext string) bool {
	for _, n := range names {
		if !HasExtension(n, ext) {
			return false
		}
	}
	return true
}
