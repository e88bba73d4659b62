// Package check provides preflight diagnostics (the check subcommand) and
// the pre-batch path validation (CheckPaths) for source and destination
// directories.
package check

import (
	"os"

	"github.com/cockroachdb/errors"

	"github.com/backmassage/npy2mat/internal/config"
	"github.com/backmassage/npy2mat/internal/naming"
	"github.com/backmassage/npy2mat/internal/pipeline"
)

// Sentinel errors returned by CheckPaths.
var (
	ErrSourceUnreadable   = errors.New("source directory cannot be listed")
	ErrDestMissing        = errors.New("destination directory does not exist")
	ErrDestNotDir         = errors.New("destination is not a directory")
	ErrDestNotWritable    = errors.New("destination directory is not writable")
	ErrNoConvertibleFiles = errors.New("no convertible files in source directory")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// RunCheck runs the check subcommand: it reports on the source listing and
// on the destination directory. It reports every problem it finds rather
// than stopping at the first, and returns false if any check failed.
func RunCheck(cfg *config.Config, sourceDir, destDir string, log Logger) bool {
	log.Info("=== Preflight Check ===")
	ok := checkSource(cfg, sourceDir, log)
	if !checkDest(destDir, log) {
		ok = false
	}
	if sourceDir == destDir {
		log.Info("Source and destination are the same directory; outputs will be skipped on later runs")
	}
	return ok
}

func checkSource(cfg *config.Config, dir string, log Logger) bool {
	names, err := pipeline.ListFiles(dir)
	if err != nil {
		log.Error("Source: %v", err)
		return false
	}
	var matching int
	for _, n := range names {
		if naming.HasExtension(n, cfg.Convert.SourceExt) {
			matching++
		}
	}
	log.Success("Source: %s (%d files)", dir, len(names))
	switch {
	case len(names) == 0:
		log.Warn("  No files to convert")
	case matching == len(names):
		log.Success("  All %d files are %s files", matching, cfg.Convert.SourceExt)
	default:
		log.Warn("  %d of %d files are %s files; the rest will be skipped",
			matching, len(names), cfg.Convert.SourceExt)
	}
	return true
}

func checkDest(dir string, log Logger) bool {
	if err := destWritable(dir); err != nil {
		log.Error("Destination: %v", err)
		return false
	}
	log.Success("Destination: %s (writable)", dir)
	return true
}

// CheckPaths is the pre-batch validation. It returns a sentinel-marked
// error describing the first problem that would make every file in the
// batch fail, or nil. ErrNoConvertibleFiles is informational; a batch
// over such a directory still completes.
func CheckPaths(cfg *config.Config, sourceDir, destDir string) error {
	names, err := pipeline.ListFiles(sourceDir)
	if err != nil {
		return errors.Mark(err, ErrSourceUnreadable)
	}
	if err := destWritable(destDir); err != nil {
		return err
	}
	for _, n := range names {
		if naming.HasExtension(n, cfg.Convert.SourceExt) {
			return nil
		}
	}
	return errors.Mark(errors.Newf("no %s files in %s", cfg.Convert.SourceExt, sourceDir), ErrNoConvertibleFiles)
}

// destWritable probes dir by creating and removing a temporary file, the
// same way the encoder stages its output.
func destWritable(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.WithHint(errors.Mark(errors.Wrap(err, dir), ErrDestMissing),
				"create it first; it is never created automatically")
		}
		return errors.Mark(errors.Wrap(err, dir), ErrDestNotWritable)
	}
	if !fi.IsDir() {
		return errors.Mark(errors.Newf("%s is not a directory", dir), ErrDestNotDir)
	}
	f, err := os.CreateTemp(dir, ".npy2mat-check-*")
	if err != nil {
		return errors.Mark(errors.Wrap(err, dir), ErrDestNotWritable)
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		return errors.Mark(errors.Wrap(err, "remove probe file"), ErrDestNotWritable)
	}
	return nil
}
