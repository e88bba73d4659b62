package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/backmassage/npy2mat/internal/mat"
	"github.com/backmassage/npy2mat/internal/naming"
	"github.com/backmassage/npy2mat/internal/ndarray"
	"github.com/backmassage/npy2mat/internal/npy"
)

// Sentinels marking the stage that produced an error.
var (
	ErrListing = errors.New("cannot list source directory")
	ErrDecode  = errors.New("cannot decode source file")
	ErrEncode  = errors.New("cannot encode destination file")
)

// Decoder loads one source file.
type Decoder interface {
	Decode(path string) (*ndarray.Array, error)
}

// Encoder writes one array to path. An Encoder must not leave a partial
// file at path when it fails.
type Encoder interface {
	Encode(a *ndarray.Array, path string) error
}

// Options configures a [Pipeline]. Zero fields take the defaults below.
type Options struct {
	SourceExt string  // default ".npy"
	DestExt   string  // default ".mat"
	Decoder   Decoder // default npy.Decoder
	Encoder   Encoder // default mat.Encoder writing the "data" variable
}

// Pipeline converts batches. It holds no per-batch state and may be reused.
type Pipeline struct {
	opts Options
	sink Sink
}

// New returns a pipeline reporting to sink. A nil sink discards events.
func New(opts Options, sink Sink) *Pipeline {
	if opts.SourceExt == "" {
		opts.SourceExt = ".npy"
	}
	if opts.DestExt == "" {
		opts.DestExt = ".mat"
	}
	if opts.Decoder == nil {
		opts.Decoder = npy.Decoder{}
	}
	if opts.Encoder == nil {
		opts.Encoder = mat.Encoder{}
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Pipeline{opts: opts, sink: sink}
}

// RunBatch converts every file in sourceDir into destDir and returns the
// summary. It never panics on bad input and never creates destDir.
func (p *Pipeline) RunBatch(sourceDir, destDir string) Summary {
	start := time.Now()
	s := Summary{
		BatchID:     uuid.NewString(),
		Source:      sourceDir,
		Destination: destDir,
	}
	p.emit(&s, LevelInfo, "", nil, "Converting %s files in %s to %s in %s",
		p.opts.SourceExt, sourceDir, p.opts.DestExt, destDir)

	// Listing
	names, err := ListFiles(sourceDir)
	if err != nil {
		s.ListingFailed = true
		s.Err = err
		p.emit(&s, LevelError, "", err, "Cannot list %s", sourceDir)
		return p.finish(&s, start)
	}
	s.Total = len(names)
	s.Uniform = naming.AllHaveExtension(names, p.opts.SourceExt)
	p.emit(&s, LevelInfo, "", nil, "Found %d files", s.Total)
	if !s.Uniform {
		p.emit(&s, LevelWarn, "", nil, "Not every file in %s is a %s file; others will be skipped",
			sourceDir, p.opts.SourceExt)
	}

	for i, name := range names {
		p.emit(&s, LevelInfo, name, nil, "[%d/%d] %s", i+1, s.Total, name)
		r := p.convert(sourceDir, name, destDir)
		s.record(r)
		p.report(&s, r)
	}

	return p.finish(&s, start)
}

// convert takes one file through Validating, Decoding and Encoding. Each
// stage either hands its value to the next or ends the file with a result.
// The decoded array does not outlive this call.
func (p *Pipeline) convert(sourceDir, name, destDir string) (r Result) {
	start := time.Now()
	paths := naming.Resolve(sourceDir, name, destDir, p.opts.DestExt)
	r = Result{Name: name, Source: paths.Source}
	defer func() { r.Elapsed = time.Since(start) }()

	if !naming.HasExtension(name, p.opts.SourceExt) {
		r.Kind = SkippedWrongType
		return r
	}

	a, err := p.opts.Decoder.Decode(paths.Source)
	if err != nil {
		r.Kind = DecodeFailed
		r.Err = errors.Mark(errors.Wrapf(err, "decode %s", name), ErrDecode)
		return r
	}

	if err := p.opts.Encoder.Encode(a, paths.Destination); err != nil {
		r.Kind = EncodeFailed
		r.Err = errors.Mark(errors.Wrapf(err, "encode %s", name), ErrEncode)
		return r
	}

	r.Kind = Converted
	r.Destination = paths.Destination
	r.InputBytes = fileSize(paths.Source)
	r.OutputBytes = fileSize(paths.Destination)
	return r
}

func (p *Pipeline) report(s *Summary, r Result) {
	switch r.Kind {
	case Converted:
		p.emit(s, LevelSuccess, r.Name, nil, "  -> %s (%s)",
			r.Destination, humanize.IBytes(uint64(r.OutputBytes)))
	case SkippedWrongType:
		p.emit(s, LevelWarn, r.Name, nil, "  Skip (not a %s file)", p.opts.SourceExt)
	case DecodeFailed:
		p.emit(s, LevelError, r.Name, r.Err, "  Decode failed: %v", r.Err)
	case EncodeFailed:
		p.emit(s, LevelError, r.Name, r.Err, "  Encode failed: %v", r.Err)
	}
}

func (p *Pipeline) finish(s *Summary, start time.Time) Summary {
	s.Elapsed = time.Since(start)
	level := LevelInfo
	switch s.Outcome() {
	case OutcomeListingFailed:
		level = LevelError
	case OutcomeAllConverted:
		level = LevelSuccess
	case OutcomePartial:
		level = LevelWarn
	}
	p.emit(s, level, "", s.Err, "Done: %d converted, %d skipped, %d decode failed, %d encode failed",
		s.Converted, s.SkippedWrongType, s.DecodeFailed, s.EncodeFailed)
	return *s
}

func (p *Pipeline) emit(s *Summary, level Level, file string, err error, format string, args ...any) {
	p.sink.Emit(Event{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		BatchID: s.BatchID,
		File:    file,
		Err:     err,
	})
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
