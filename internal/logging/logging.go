// Package logging builds the zerolog loggers used across workerd and adapts
// host-supplied log sinks.
package logging

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CategoryField is the field every component tags its lines with.
const CategoryField = "category"

// ParseLevel maps debug|info|warn|error to a zerolog level; anything else is info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "OFF", "DISABLED":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New returns a timestamped logger writing to w (stderr when nil). format
// "json" emits JSON lines, anything else a console layout.
func New(level, format string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if strings.ToLower(format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Sink receives one call per log line.
type Sink interface {
	Log(message, category string, level zerolog.Level)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(message, category string, level zerolog.Level)

func (f SinkFunc) Log(message, category string, level zerolog.Level) { f(message, category, level) }

// FromSink returns a logger that forwards each line to s as a
// (message, category, level) triple. Other structured fields are appended to
// the message as key=value pairs.
func FromSink(s Sink) zerolog.Logger {
	return zerolog.New(sinkWriter{s: s})
}

type sinkWriter struct{ s Sink }

func (w sinkWriter) Write(p []byte) (int, error) { return w.WriteLevel(zerolog.NoLevel, p) }

func (w sinkWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	var fields map[string]any
	if err := json.Unmarshal(p, &fields); err != nil {
		w.s.Log(strings.TrimSpace(string(p)), "", level)
		return len(p), nil
	}
	msg, _ := fields[zerolog.MessageFieldName].(string)
	cat, _ := fields[CategoryField].(string)
	delete(fields, zerolog.MessageFieldName)
	delete(fields, zerolog.LevelFieldName)
	delete(fields, CategoryField)
	delete(fields, zerolog.TimestampFieldName)
	if len(fields) > 0 {
		msg += " " + formatFields(fields)
	}
	w.s.Log(msg, cat, level)
	return len(p), nil
}

func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		v, err := json.Marshal(fields[k])
		if err != nil {
			continue
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Trim(string(v), `"`))
	}
	return b.String()
}
