package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/npy2mat/internal/mat"
	"github.com/backmassage/npy2mat/internal/ndarray"
	"github.com/backmassage/npy2mat/internal/npy"
)

// --- ListFiles tests ---

func TestListFiles_RegularFilesSorted(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "c.npy")
	touch(t, dir, "a.npy")
	touch(t, dir, "B.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.npy"), 0o755))
	touch(t, filepath.Join(dir, "sub.npy"), "nested.npy")

	names, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"B.txt", "a.npy", "c.npy"}, names)
}

func TestListFiles_Symlinks(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	touch(t, other, "target.npy")
	require.NoError(t, os.Symlink(filepath.Join(other, "target.npy"), filepath.Join(dir, "file-link.npy")))
	require.NoError(t, os.Symlink(other, filepath.Join(dir, "dir-link")))
	require.NoError(t, os.Symlink(filepath.Join(other, "gone.npy"), filepath.Join(dir, "dangling.npy")))

	names, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"file-link.npy"}, names)
}

func TestListFiles_Errors(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "plain.npy")

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "missing")},
		{"not a directory", filepath.Join(dir, "plain.npy")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names, err := ListFiles(tt.path)
			require.Error(t, err)
			assert.Nil(t, names)
			assert.True(t, errors.Is(err, ErrListing), "got %v", err)
		})
	}
}

// --- RunBatch tests ---

func TestRunBatch_MixedDirectory(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeArray(t, src, "a.npy", []float64{1, 2, 3, 4})
	touch(t, src, "b.txt")
	require.NoError(t, os.WriteFile(filepath.Join(src, "c.npy"), []byte("definitely not an array"), 0o644))

	s := New(Options{}, nil).RunBatch(src, dst)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Converted)
	assert.Equal(t, 1, s.SkippedWrongType)
	assert.Equal(t, 1, s.DecodeFailed)
	assert.Equal(t, 0, s.EncodeFailed)
	assert.False(t, s.Uniform)
	assert.Equal(t, OutcomePartial, s.Outcome())

	require.Len(t, s.Results, 3)
	assert.Equal(t, []Kind{Converted, SkippedWrongType, DecodeFailed}, kinds(s.Results))
	assert.True(t, errors.Is(s.Results[2].Err, ErrDecode))
	assert.True(t, errors.Is(s.Results[2].Err, npy.ErrMalformed))

	assert.Equal(t, []string{"a.mat"}, dirNames(t, dst))
	out, err := os.ReadFile(filepath.Join(dst, "a.mat"))
	require.NoError(t, err)
	assert.Equal(t, "MATLAB 5.0 MAT-file", string(out[:19]))
	assert.Equal(t, int64(len(out)), s.TotalOutputBytes)
	assert.Positive(t, s.TotalInputBytes)
}

func TestRunBatch_AllValid(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	for _, name := range []string{"x.npy", "y.npy", "z.npy"} {
		writeArray(t, src, name, []float64{1})
	}

	s := New(Options{}, nil).RunBatch(src, dst)

	assert.Equal(t, 3, s.Converted)
	assert.True(t, s.Uniform)
	assert.Equal(t, OutcomeAllConverted, s.Outcome())
	assert.Equal(t, []string{"x.mat", "y.mat", "z.mat"}, dirNames(t, dst))
	for _, r := range s.Results {
		assert.NoError(t, r.Err)
		assert.Equal(t, filepath.Join(dst, r.Name[:1]+".mat"), r.Destination)
	}
}

func TestRunBatch_UnwritableDestination(t *testing.T) {
	src := t.TempDir()
	writeArray(t, src, "a.npy", []float64{1})
	writeArray(t, src, "b.npy", []float64{2})
	touch(t, src, "notes.txt")

	parent := t.TempDir()
	touch(t, parent, "file")
	tests := []struct {
		name string
		dst  string
	}{
		{"missing", filepath.Join(parent, "missing")},
		{"regular file", filepath.Join(parent, "file")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{}, nil).RunBatch(src, tt.dst)

			assert.Equal(t, 2, s.EncodeFailed)
			assert.Equal(t, 2, s.Failed())
			assert.Equal(t, 1, s.SkippedWrongType)
			assert.Zero(t, s.Converted)
			for _, r := range s.Results {
				if r.Kind == EncodeFailed {
					assert.True(t, errors.Is(r.Err, ErrEncode))
					assert.Empty(t, r.Destination)
				}
			}
		})
	}
	_, err := os.Stat(filepath.Join(parent, "missing"))
	assert.True(t, os.IsNotExist(err), "destination directory must not be created")
}

func TestRunBatch_UnsupportedPayloadLeavesNoArtifact(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	half := &ndarray.Array{DType: ndarray.Float16, Shape: []int{2}, Data: make([]byte, 4)}
	require.NoError(t, npy.WriteFile(filepath.Join(src, "half.npy"), half))
	writeArray(t, src, "ok.npy", []float64{1})

	s := New(Options{}, nil).RunBatch(src, dst)

	assert.Equal(t, []Kind{EncodeFailed, Converted}, kinds(s.Results))
	assert.True(t, errors.Is(s.Results[0].Err, mat.ErrUnsupported))
	assert.Equal(t, []string{"ok.mat"}, dirNames(t, dst))
}

func TestRunBatch_OverflowingShapeIsDecodeFailure(t *testing.T) {
	for _, fortran := range []string{"False", "True"} {
		t.Run("fortran_order "+fortran, func(t *testing.T) {
			src, dst := t.TempDir(), t.TempDir()
			writeRaw(t, src, "c.npy",
				"{'descr': '<c16', 'fortran_order': "+fortran+", 'shape': (1073741824, 1073741824), }")
			writeArray(t, src, "d.npy", []float64{1})

			s := New(Options{}, nil).RunBatch(src, dst)

			require.Len(t, s.Results, 2)
			assert.Equal(t, DecodeFailed, s.Results[0].Kind)
			assert.True(t, errors.Is(s.Results[0].Err, npy.ErrMalformed), "got %v", s.Results[0].Err)
			assert.Equal(t, Converted, s.Results[1].Kind)
			assert.Equal(t, []string{"d.mat"}, dirNames(t, dst))
		})
	}
}

func TestRunBatch_DecodeFailureDoesNotAbort(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	for _, name := range []string{"1.npy", "2.npy", "3.npy", "4.npy"} {
		touch(t, src, name)
	}

	var encoded []string
	opts := Options{
		Decoder: decoderFunc(func(path string) (*ndarray.Array, error) {
			if filepath.Base(path) == "2.npy" {
				return nil, errors.New("boom")
			}
			return ndarray.FromFloat64s([]int{1}, []float64{0})
		}),
		Encoder: encoderFunc(func(_ *ndarray.Array, path string) error {
			encoded = append(encoded, filepath.Base(path))
			return nil
		}),
	}

	s := New(opts, nil).RunBatch(src, dst)

	assert.Equal(t, []Kind{Converted, DecodeFailed, Converted, Converted}, kinds(s.Results))
	assert.Equal(t, []string{"1.mat", "3.mat", "4.mat"}, encoded)
}

func TestRunBatch_Idempotent(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeArray(t, src, "a.npy", []float64{1, 2, 3})
	writeArray(t, src, "b.npy", []float64{4, 5})

	p := New(Options{}, nil)
	p.RunBatch(src, dst)
	first := readAll(t, dst)
	p.RunBatch(src, dst)
	second := readAll(t, dst)

	assert.Equal(t, first, second)
	assert.Len(t, second, 2)
}

func TestRunBatch_SameSourceAndDestination(t *testing.T) {
	dir := t.TempDir()
	writeArray(t, dir, "a.npy", []float64{1})

	p := New(Options{}, nil)
	first := p.RunBatch(dir, dir)
	assert.Equal(t, 1, first.Converted)

	second := p.RunBatch(dir, dir)
	assert.Equal(t, 1, second.Converted)
	assert.Equal(t, 1, second.SkippedWrongType, "previous output is listed but skipped")
	assert.Equal(t, []string{"a.mat", "a.npy"}, dirNames(t, dir))
}

func TestRunBatch_EmptyDirectory(t *testing.T) {
	s := New(Options{}, nil).RunBatch(t.TempDir(), t.TempDir())

	assert.False(t, s.ListingFailed)
	assert.NoError(t, s.Err)
	assert.Zero(t, s.Total)
	for _, k := range []Kind{Converted, SkippedWrongType, DecodeFailed, EncodeFailed, ListingFailed} {
		assert.Zero(t, s.Count(k), k.String())
	}
	assert.True(t, s.Uniform)
	assert.Equal(t, OutcomeNoFiles, s.Outcome())
}

func TestRunBatch_ListingFailed(t *testing.T) {
	dst := t.TempDir()
	s := New(Options{}, nil).RunBatch(filepath.Join(t.TempDir(), "missing"), dst)

	assert.True(t, s.ListingFailed)
	assert.True(t, errors.Is(s.Err, ErrListing))
	assert.Equal(t, 1, s.Count(ListingFailed))
	assert.Zero(t, s.Total)
	assert.Empty(t, s.Results)
	assert.Equal(t, OutcomeListingFailed, s.Outcome())
	assert.Empty(t, dirNames(t, dst))
}

func TestRunBatch_CustomExtensions(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeArray(t, src, "a.arr", []float64{1})
	writeArray(t, src, "b.npy", []float64{1})

	s := New(Options{SourceExt: ".arr", DestExt: ".m5"}, nil).RunBatch(src, dst)

	assert.Equal(t, []Kind{Converted, SkippedWrongType}, kinds(s.Results))
	assert.Equal(t, []string{"a.m5"}, dirNames(t, dst))
}

func TestRunBatch_Events(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeArray(t, src, "a.npy", []float64{1})
	touch(t, src, "b.txt")

	var events []Event
	s := New(Options{}, SinkFunc(func(e Event) { events = append(events, e) })).RunBatch(src, dst)

	require.NotEmpty(t, events)
	assert.NotEmpty(t, s.BatchID)
	for _, e := range events {
		assert.Equal(t, s.BatchID, e.BatchID)
	}
	assert.Empty(t, events[0].File, "batch start is not tied to a file")
	last := events[len(events)-1]
	assert.Empty(t, last.File)
	assert.Equal(t, LevelWarn, last.Level)

	perFile := map[string][]Level{}
	for _, e := range events {
		if e.File != "" {
			perFile[e.File] = append(perFile[e.File], e.Level)
		}
	}
	assert.Equal(t, []Level{LevelInfo, LevelSuccess}, perFile["a.npy"])
	assert.Equal(t, []Level{LevelInfo, LevelWarn}, perFile["b.txt"])
}

func TestRunBatch_DistinctBatchIDs(t *testing.T) {
	p := New(Options{}, nil)
	a := p.RunBatch(t.TempDir(), t.TempDir())
	b := p.RunBatch(t.TempDir(), t.TempDir())
	assert.NotEqual(t, a.BatchID, b.BatchID)
}

// --- Summary tests ---

func TestSummary_Outcome(t *testing.T) {
	tests := []struct {
		name string
		s    Summary
		want Outcome
	}{
		{"listing failed", Summary{ListingFailed: true}, OutcomeListingFailed},
		{"no files", Summary{}, OutcomeNoFiles},
		{"all converted", Summary{Total: 2, Converted: 2}, OutcomeAllConverted},
		{"some skipped", Summary{Total: 2, Converted: 1, SkippedWrongType: 1}, OutcomePartial},
		{"nothing convertible", Summary{Total: 1, SkippedWrongType: 1}, OutcomePartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.Outcome())
		})
	}
}

// --- Inspect tests ---

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	writeArray(t, dir, "a.npy", []float64{1, 2})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.npy"), []byte("junk"), 0o644))
	touch(t, dir, "readme.txt")

	short := &ndarray.Array{DType: ndarray.Int32, Shape: []int{4}, Data: make([]byte, 16)}
	require.NoError(t, npy.WriteFile(filepath.Join(dir, "short.npy"), short))
	path := filepath.Join(dir, "short.npy")
	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, fi.Size()-4))

	rows, other, err := Inspect(dir, ".npy")
	require.NoError(t, err)
	assert.Equal(t, 1, other)
	require.Len(t, rows, 3)

	assert.Equal(t, "a.npy", rows[0].Name)
	assert.NoError(t, rows[0].Err)
	assert.Equal(t, []int{2}, rows[0].Header.Shape)

	assert.Equal(t, "bad.npy", rows[1].Name)
	assert.Nil(t, rows[1].Header)
	assert.True(t, errors.Is(rows[1].Err, npy.ErrMalformed))

	assert.Equal(t, "short.npy", rows[2].Name)
	assert.NotNil(t, rows[2].Header)
	assert.True(t, errors.Is(rows[2].Err, npy.ErrMalformed))
}

func TestInspect_OverflowingShape(t *testing.T) {
	dir := t.TempDir()
	writeRaw(t, dir, "wide.npy", "{'descr': '<c16', 'fortran_order': False, 'shape': (1073741824, 1073741824), }")
	writeRaw(t, dir, "deep.npy", "{'descr': '<f8', 'fortran_order': False, 'shape': (1048576, 1048576, 1048576), }")

	rows, _, err := Inspect(dir, ".npy")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Nil(t, r.Header, r.Name)
		assert.True(t, errors.Is(r.Err, npy.ErrMalformed), "%s: got %v", r.Name, r.Err)
	}
}

// --- Helpers ---

type decoderFunc func(string) (*ndarray.Array, error)

func (f decoderFunc) Decode(path string) (*ndarray.Array, error) { return f(path) }

type encoderFunc func(*ndarray.Array, string) error

func (f encoderFunc) Encode(a *ndarray.Array, path string) error { return f(a, path) }

func touch(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}

func writeArray(t *testing.T, dir, name string, vals []float64) {
	t.Helper()
	a, err := ndarray.FromFloat64s([]int{len(vals)}, vals)
	require.NoError(t, err)
	require.NoError(t, npy.WriteFile(filepath.Join(dir, name), a))
}

// writeRaw writes a header-only v1.0 array file with the given dictionary.
func writeRaw(t *testing.T, dir, name, dict string) {
	t.Helper()
	hdr := dict + "\n"
	b := append([]byte(npy.Magic), 1, 0, byte(len(hdr)), byte(len(hdr)>>8))
	b = append(b, hdr...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), b, 0o644))
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func readAll(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	out := map[string][]byte{}
	for _, name := range dirNames(t, dir) {
		b, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		out[name] = b
	}
	return out
}

func kinds(results []Result) []Kind {
	out := make([]Kind, len(results))
	for i, r := range results {
		out[i] = r.Kind
	}
	return out
}
