package pipeline

// Level is the severity of an [Event].
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelSuccess
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelSuccess:
		return "SUCCESS"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is one structured log record emitted during a batch. File and Err
// are empty for batch-level events.
type Event struct {
	Level   Level
	Message string
	BatchID string
	File    string
	Err     error
}

// Sink receives events. Where they end up is the sink's business.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(Event) {}
