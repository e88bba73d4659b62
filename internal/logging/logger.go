// Package logging prints leveled console lines and, when a log file is
// configured, mirrors every line as a JSON record through zap. *Logger is
// the production pipeline.Sink.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/backmassage/npy2mat/internal/config"
	"github.com/backmassage/npy2mat/internal/pipeline"
	"github.com/backmassage/npy2mat/internal/term"
)

// Field names used in JSON records.
const (
	FieldBatchID   = "batch_id"
	FieldFile      = "file"
	FieldError     = "error"
	FieldComponent = "component"
	FieldStatus    = "status"
)

// Logger provides leveled, optionally colored logging with an optional JSON
// file sink.
type Logger struct {
	mu      sync.Mutex
	stdout  io.Writer
	stderr  io.Writer
	verbose bool

	file *os.File
	zl   *zap.Logger
}

// NewLogger configures term colors from cfg and opens cfg.Logging.File when
// set. Call Close when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.Logging.Color)
	l := &Logger{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		verbose: cfg.Logging.Verbose,
		zl:      zap.NewNop(),
	}

	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err != nil {
			return nil, errors.Wrap(err, "create log directory")
		}
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errors.Wrap(err, "open log file")
		}
		l.file = f
		l.zl = zap.New(zapcore.NewCore(jsonEncoder(), zapcore.AddSync(f), zapcore.DebugLevel))
	}
	return l, nil
}

func jsonEncoder() zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(ec)
}

// Close flushes and closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	_ = l.zl.Sync()
	err := l.file.Close()
	l.file = nil
	l.zl = zap.NewNop()
	return err
}

// Emit implements pipeline.Sink.
func (l *Logger) Emit(e pipeline.Event) {
	if e.Level == pipeline.LevelDebug && !l.verbose {
		return
	}
	fields := []zap.Field{zap.String(FieldComponent, "pipeline")}
	if e.BatchID != "" {
		fields = append(fields, zap.String(FieldBatchID, e.BatchID))
	}
	if e.File != "" {
		fields = append(fields, zap.String(FieldFile, e.File))
	}
	if e.Err != nil {
		fields = append(fields, zap.String(FieldError, e.Err.Error()))
	}
	l.line(e.Level, e.Message, fields...)
}

func (l *Logger) line(level pipeline.Level, text string, fields ...zap.Field) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	name := level.String()

	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.stdout
	if level == pipeline.LevelError {
		out = l.stderr
	}
	if color := colorFor(level); color != "" {
		_, _ = io.WriteString(out, ts+" "+color+"["+name+"]"+term.NC+" "+text+"\n")
	} else {
		_, _ = io.WriteString(out, ts+" ["+name+"] "+text+"\n")
	}

	switch level {
	case pipeline.LevelDebug:
		l.zl.Debug(text, fields...)
	case pipeline.LevelInfo:
		l.zl.Info(text, fields...)
	case pipeline.LevelSuccess:
		l.zl.Info(text, append(fields, zap.String(FieldStatus, "success"))...)
	case pipeline.LevelWarn:
		l.zl.Warn(text, fields...)
	default:
		l.zl.Error(text, fields...)
	}
}

func colorFor(level pipeline.Level) string {
	switch level {
	case pipeline.LevelDebug:
		return term.Cyan
	case pipeline.LevelInfo:
		return term.Blue
	case pipeline.LevelSuccess:
		return term.Green
	case pipeline.LevelWarn:
		return term.Yellow
	default:
		return term.Red
	}
}

func (l *Logger) cli(level pipeline.Level, format string, args []interface{}) {
	l.line(level, fmt.Sprintf(format, args...), zap.String(FieldComponent, "cli"))
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.cli(pipeline.LevelInfo, format, args)
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...interface{}) {
	l.cli(pipeline.LevelSuccess, format, args)
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.cli(pipeline.LevelWarn, format, args)
}

// Error logs at ERROR level (red) to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.cli(pipeline.LevelError, format, args)
}

// Debug logs at DEBUG level (cyan) only when verbose.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.cli(pipeline.LevelDebug, format, args)
}
