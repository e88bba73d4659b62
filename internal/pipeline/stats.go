package pipeline

import (
	"time"
)

// Kind is the terminal outcome of one file in a batch.
type Kind int

const (
	Converted Kind = iota
	SkippedWrongType
	DecodeFailed
	EncodeFailed
	// ListingFailed never appears on a per-file result; it is reported
	// through Summary.ListingFailed.
	ListingFailed
)

func (k Kind) String() string {
	switch k {
	case Converted:
		return "converted"
	case SkippedWrongType:
		return "skipped"
	case DecodeFailed:
		return "decode failed"
	case EncodeFailed:
		return "encode failed"
	case ListingFailed:
		return "listing failed"
	default:
		return "unknown"
	}
}

// Result records what happened to one listed file.
type Result struct {
	Name        string
	Kind        Kind
	Source      string
	Destination string // set only when Kind is Converted
	Err         error
	InputBytes  int64
	OutputBytes int64
	Elapsed     time.Duration
}

// Summary is the aggregate outcome of a batch.
type Summary struct {
	BatchID     string
	Source      string
	Destination string

	Total            int
	Converted        int
	SkippedWrongType int
	DecodeFailed     int
	EncodeFailed     int

	// ListingFailed is set when the source directory could not be read.
	// No files are processed in that case and Err holds the cause.
	ListingFailed bool
	Err           error

	// Uniform reports whether every listed file carried the source
	// extension. It is informational only.
	Uniform bool

	Results          []Result
	TotalInputBytes  int64
	TotalOutputBytes int64
	Elapsed          time.Duration
}

// Outcome classifies a summary for the UI.
type Outcome int

const (
	OutcomeNoFiles Outcome = iota
	OutcomeListingFailed
	OutcomeAllConverted
	OutcomePartial
)

// Outcome tells apart "could not list", "no files found", "everything
// converted" and "some files were skipped or failed".
func (s *Summary) Outcome() Outcome {
	switch {
	case s.ListingFailed:
		return OutcomeListingFailed
	case s.Total == 0:
		return OutcomeNoFiles
	case s.Converted == s.Total:
		return OutcomeAllConverted
	default:
		return OutcomePartial
	}
}

// Failed returns the number of files that failed to decode or encode.
func (s *Summary) Failed() int {
	return s.DecodeFailed + s.EncodeFailed
}

// Count returns the number of results of kind k.
func (s *Summary) Count(k Kind) int {
	switch k {
	case Converted:
		return s.Converted
	case SkippedWrongType:
		return s.SkippedWrongType
	case DecodeFailed:
		return s.DecodeFailed
	case EncodeFailed:
		return s.EncodeFailed
	case ListingFailed:
		if s.ListingFailed {
			return 1
		}
	}
	return 0
}

func (s *Summary) record(r Result) {
	s.Results = append(s.Results, r)
	switch r.Kind {
	case Converted:
		s.Converted++
		s.TotalInputBytes += r.InputBytes
		s.TotalOutputBytes += r.OutputBytes
	case SkippedWrongType:
		s.SkippedWrongType++
	case DecodeFailed:
		s.DecodeFailed++
	case EncodeFailed:
		s.EncodeFailed++
	}
}
