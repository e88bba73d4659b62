package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/npy2mat/internal/config"
	"github.com/backmassage/npy2mat/internal/pipeline"
)

// newTestLogger returns a colorless logger whose console output is captured.
func newTestLogger(t *testing.T, mutate func(*config.Config)) (*Logger, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Logging.Color = config.ColorNever
	if mutate != nil {
		mutate(&cfg)
	}
	l, err := NewLogger(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	var stdout, stderr bytes.Buffer
	l.stdout, l.stderr = &stdout, &stderr
	return l, &stdout, &stderr
}

func TestLogger_ConsoleFormat(t *testing.T) {
	l, stdout, stderr := newTestLogger(t, nil)

	l.Info("found %d files", 3)
	l.Success("done")
	l.Warn("careful")
	l.Error("broken: %s", "x")

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 3)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} \[INFO\] found 3 files$`, lines[0])
	assert.Contains(t, lines[1], "[SUCCESS] done")
	assert.Contains(t, lines[2], "[WARN] careful")
	assert.Contains(t, stderr.String(), "[ERROR] broken: x")
}

func TestLogger_DebugNeedsVerbose(t *testing.T) {
	quiet, out, _ := newTestLogger(t, nil)
	quiet.Debug("hidden")
	quiet.Emit(pipeline.Event{Level: pipeline.LevelDebug, Message: "hidden"})
	assert.Empty(t, out.String())

	loud, out, _ := newTestLogger(t, func(c *config.Config) { c.Logging.Verbose = true })
	loud.Debug("shown")
	assert.Contains(t, out.String(), "[DEBUG] shown")
}

func TestLogger_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "npy2mat.jsonl")
	l, _, stderr := newTestLogger(t, func(c *config.Config) { c.Logging.File = path })

	l.Info("starting")
	l.Emit(pipeline.Event{
		Level:   pipeline.LevelError,
		Message: "Decode failed",
		BatchID: "b-1",
		File:    "c.npy",
		Err:     errors.New("bad magic"),
	})
	require.NoError(t, l.Close())
	assert.Contains(t, stderr.String(), "[ERROR] Decode failed")

	records := readRecords(t, path)
	require.Len(t, records, 2)

	assert.Equal(t, "info", records[0]["level"])
	assert.Equal(t, "starting", records[0]["msg"])
	assert.Equal(t, "cli", records[0][FieldComponent])

	assert.Equal(t, "error", records[1]["level"])
	assert.Equal(t, "pipeline", records[1][FieldComponent])
	assert.Equal(t, "b-1", records[1][FieldBatchID])
	assert.Equal(t, "c.npy", records[1][FieldFile])
	assert.Equal(t, "bad magic", records[1][FieldError])
}

func TestLogger_AsPipelineSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	l, out, _ := newTestLogger(t, func(c *config.Config) { c.Logging.File = path })

	s := pipeline.New(pipeline.Options{}, l).RunBatch(t.TempDir(), t.TempDir())
	require.NoError(t, l.Close())

	assert.Contains(t, out.String(), "Found 0 files")
	for _, r := range readRecords(t, path) {
		assert.Equal(t, s.BatchID, r[FieldBatchID])
	}
}

func TestLogger_CloseWithoutFile(t *testing.T) {
	l, _, _ := newTestLogger(t, nil)
	assert.NoError(t, l.Close())
	assert.NoError(t, l.Close())
}

func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec), sc.Text())
		out = append(out, rec)
	}
	require.NoError(t, sc.Err())
	return out
}
