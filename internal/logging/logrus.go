// Package logging adapts logrus to the core.Logger interface.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"stockroom/internal/core"
)

// Formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var _ core.Logger = (*Logger)(nil)

// Logger forwards key/value pairs to logrus as fields.
type Logger struct {
	entry *logrus.Entry
}

// New builds a logger writing to out at level ("debug", "info", ...) in the
// given format. Empty values mean info and text.
func New(out io.Writer, level, format string) (*Logger, error) {
	base := logrus.New()
	base.SetOutput(out)
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	base.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "", FormatText:
		base.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	case FormatJSON:
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return &Logger{entry: logrus.NewEntry(base)}, nil
}

// Wrap adapts an existing logrus entry.
func Wrap(entry *logrus.Entry) *Logger { return &Logger{entry: entry} }

// With returns a logger that adds the given pairs to every message.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{entry: l.entry.WithFields(fields(args))}
}

func (l *Logger) Debug(msg string, args ...any) { l.entry.WithFields(fields(args)).Debug(msg) }
func (l *Logger) Info(msg string, args ...any)  { l.entry.WithFields(fields(args)).Info(msg) }
func (l *Logger) Warn(msg string, args ...any)  { l.entry.WithFields(fields(args)).Warn(msg) }
func (l *Logger) Error(msg string, args ...any) { l.entry.WithFields(fields(args)).Error(msg) }

// fields pairs up args. A trailing key without a value is kept under "!BADKEY".
func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			f["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if err, isErr := args[i+1].(error); isErr {
			f[key] = err.Error()
			continue
		}
		f[key] = args[i+1]
	}
	return f
}
