// Package logging provides the structured event logger used by the
// transmitter, the receiver and the camera backends.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Logger records a named event with key/value pairs.
type Logger interface {
	Log(event string, keyvals ...interface{})
}

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

// ParseLevel maps "debug", "info" and "error" to a Level. Unknown names
// default to info.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type kitLogger struct {
	base log.Logger
}

// New writes logfmt lines with a UTC timestamp to w, dropping events below lvl.
func New(w io.Writer, lvl Level) Logger {
	base := log.NewLogfmtLogger(log.NewSyncWriter(w))
	base = log.With(base, "ts", log.DefaultTimestampUTC)
	base = level.NewFilter(base, allow(lvl))
	return &kitLogger{base: base}
}

// OpenFile appends to the log file at path, creating it and its directory
// when missing. The returned closer releases the file.
func OpenFile(path string, lvl Level) (Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(file, lvl), file, nil
}

func (l *kitLogger) Log(event string, keyvals ...interface{}) {
	kv := make([]interface{}, 0, len(keyvals)+2)
	kv = append(kv, "event", event)
	kv = append(kv, keyvals...)
	_ = leveled(event, l.base).Log(kv...)
}

// leveled picks the level from the event name: failures are errors,
// per-bit and per-frame events are debug, everything else is info.
func leveled(event string, base log.Logger) log.Logger {
	switch {
	case strings.HasSuffix(event, "_failed"):
		return level.Error(base)
	case strings.HasPrefix(event, "bit_"), strings.HasPrefix(event, "frame_"):
		return level.Debug(base)
	default:
		return level.Info(base)
	}
}

func allow(lvl Level) level.Option {
	switch lvl {
	case LevelDebug:
		return level.AllowDebug()
	case LevelError:
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

type nop struct{}

func (nop) Log(string, ...interface{}) {}

// Nop discards every event.
func Nop() Logger {
	return nop{}
}
