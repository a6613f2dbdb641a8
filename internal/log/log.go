package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ParseLevel maps a config string ("debug", "info", ...) to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) rank() int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 0
	}
}

// Logger writes key=value lines at or above its minimum level.
//
// The render core receives a *Logger explicitly instead of consulting a
// process-wide verbose flag; a nil *Logger discards everything.
type Logger struct {
	mu       sync.Mutex
	out      *stdlog.Logger
	minLevel Level
}

// New returns a Logger writing to w with the given minimum level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{
		out:      stdlog.New(w, "", 0),
		minLevel: level,
	}
}

// Discard returns a Logger that drops every line.
func Discard() *Logger {
	return New(io.Discard, LevelError)
}

var (
	std     *Logger
	stdOnce sync.Once
)

// initLogger initializes the global logger to write to stderr.
func initLogger() {
	stdOnce.Do(func() {
		std = New(os.Stderr, LevelInfo)
	})
}

// Default returns the process logger used by the package-level helpers.
func Default() *Logger {
	initLogger()
	return std
}

func SetLevel(l Level) {
	Default().SetLevel(l)
}

func Debug(msg string, kv ...any) { Default().Debug(msg, kv...) }

func Info(msg string, kv ...any) { Default().Info(msg, kv...) }

func Warn(msg string, kv ...any) { Default().Warn(msg, kv...) }

func Error(msg string, err error, kv ...any) { Default().Error(msg, err, kv...) }

func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.minLevel = level
	l.mu.Unlock()
}

// Enabled reports whether a line at level would be written.
func (l *Logger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return level.rank() >= l.minLevel.rank()
}

func (l *Logger) Debug(msg string, kv ...any) { l.logWithLevel(LevelDebug, msg, kv...) }

func (l *Logger) Info(msg string, kv ...any) { l.logWithLevel(LevelInfo, msg, kv...) }

func (l *Logger) Warn(msg string, kv ...any) { l.logWithLevel(LevelWarn, msg, kv...) }

func (l *Logger) Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	l.logWithLevel(LevelError, msg, extended...)
}

func (l *Logger) logWithLevel(level Level, msg string, kv ...any) {
	if !l.Enabled(level) {
		return
	}

	ts := time.Now().Format(time.RFC3339Nano)

	// 2025-01-01T00:00:00Z [LEVEL] msg key=value ...
	line := ts + " [" + string(level) + "] " + msg
	if len(kv) > 0 {
		line += formatKVs(kv...)
	}

	l.out.Println(line)
}

func formatKVs(kv ...any) string {
	var b strings.Builder
	// Expect kv as pairs: key, value, key, value, ...
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(fmt.Sprint(kv[i+1]))
	}
	// If odd number of args, last one is ignored.
	return b.String()
}
