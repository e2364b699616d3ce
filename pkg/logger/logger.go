// Package logger is the process-wide structured logger. Every call names the
// component it comes from and may attach a field map:
//
//	logger.InfoCF("discord", "Command registered", map[string]interface{}{
//		"name": cmd.Name,
//	})
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"
)

// Level mirrors slog levels under the names used in configuration.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) slogLevel() slog.Level {
	switch Level(strings.ToLower(string(l))) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn, "warning":
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// Configure replaces the process logger. format is "json" or "text".
func Configure(w io.Writer, level Level, format string) {
	opts := &slog.HandlerOptions{Level: level.slogLevel()}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	current.Store(slog.New(h))
}

// SetLogger installs an existing slog logger (tests capture output this way).
func SetLogger(l *slog.Logger) {
	if l != nil {
		current.Store(l)
	}
}

func log(level slog.Level, component, msg string, fields map[string]interface{}) {
	l := current.Load()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(fields)+1)
	if component != "" {
		attrs = append(attrs, slog.String("component", component))
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	l.LogAttrs(ctx, level, msg, attrs...)
}

func Debug(msg string) { log(slog.LevelDebug, "", msg, nil) }
func Info(msg string)  { log(slog.LevelInfo, "", msg, nil) }
func Warn(msg string)  { log(slog.LevelWarn, "", msg, nil) }
func Error(msg string) { log(slog.LevelError, "", msg, nil) }

func DebugC(component, msg string) { log(slog.LevelDebug, component, msg, nil) }
func InfoC(component, msg string)  { log(slog.LevelInfo, component, msg, nil) }
func WarnC(component, msg string)  { log(slog.LevelWarn, component, msg, nil) }
func ErrorC(component, msg string) { log(slog.LevelError, component, msg, nil) }

// DebugCF logs at debug level with a component name and fields.
func DebugCF(component, msg string, fields map[string]interface{}) {
	log(slog.LevelDebug, component, msg, fields)
}

// InfoCF logs at info level with a component name and fields.
func InfoCF(component, msg string, fields map[string]interface{}) {
	log(slog.LevelInfo, component, msg, fields)
}

// WarnCF logs at warn level with a component name and fields.
func WarnCF(component, msg string, fields map[string]interface{}) {
	log(slog.LevelWarn, component, msg, fields)
}

// ErrorCF logs at error level with a component name and fields.
func ErrorCF(component, msg string, fields map[string]interface{}) {
	log(slog.LevelError, component, msg, fields)
}
