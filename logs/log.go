// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package logs implements the small leveled-logging primitive used by
// every subsystem of carversync. It intentionally mirrors the shape of
// btcsuite's own logging backend: a Backend fans a formatted line out to
// one or more BackendWriters, and per-subsystem Loggers each hold their
// own independent level so verbosity can be tuned per component at
// runtime.
package logs

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
)

// Level is a logging priority.
type Level uint32

// The available logging levels, in increasing order of severity.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

var levelStrings = map[Level]string{
	LevelTrace:    "TRC",
	LevelDebug:    "DBG",
	LevelInfo:     "INF",
	LevelWarn:     "WRN",
	LevelError:    "ERR",
	LevelCritical: "CRT",
	LevelOff:      "OFF",
}

// String returns the three-letter tag for the level.
func (l Level) String() string {
	if s, ok := levelStrings[l]; ok {
		return s
	}
	return "UNK"
}

// LevelFromString returns the level matching the given case-insensitive
// string, defaulting to LevelInfo when s does not match a known level.
func LevelFromString(s string) (l Level, ok bool) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "critical":
		return LevelCritical, true
	case "off":
		return LevelOff, true
	default:
		return LevelInfo, false
	}
}

// BackendWriter is an io.Writer gated by a minimum level: lines below
// minLevel are not written to it. A Backend fans out to any number of
// these, letting a full-detail file and a warnings-only file share one
// call site.
type BackendWriter struct {
	w        io.Writer
	minLevel Level
}

// NewBackendWriter wraps w so it only receives lines at or above
// minLevel.
func NewBackendWriter(w io.Writer, minLevel Level) *BackendWriter {
	return &BackendWriter{w: w, minLevel: minLevel}
}

// NewAllLevelsBackendWriter wraps w so it receives every line regardless
// of level.
func NewAllLevelsBackendWriter(w io.Writer) *BackendWriter {
	return NewBackendWriter(w, LevelTrace)
}

// NewErrorBackendWriter wraps w so it only receives LevelError and above.
func NewErrorBackendWriter(w io.Writer) *BackendWriter {
	return NewBackendWriter(w, LevelError)
}

// Backend routes formatted log lines to every configured BackendWriter
// whose minLevel admits them, and mints per-subsystem Loggers.
type Backend struct {
	writers []*BackendWriter
}

// NewBackend creates a Backend fanning out to the given writers.
func NewBackend(writers ...*BackendWriter) *Backend {
	return &Backend{writers: writers}
}

// Logger mints a Logger tagged with subsystem, defaulting to LevelInfo.
func (b *Backend) Logger(subsystem string) *Logger {
	logger := &Logger{tag: subsystem, backend: b}
	logger.level.Store(uint32(LevelInfo))
	return logger
}

func (b *Backend) print(level Level, tag, msg string) {
	line := fmt.Sprintf("%s [%s] %s: %s\n", time.Now().UTC().Format("2006-01-02 15:04:05.000"), level, tag, msg)
	for _, w := range b.writers {
		if level < w.minLevel {
			continue
		}
		_, _ = io.WriteString(w.w, line)
	}
}

// Close is a no-op hook kept for symmetry with the rotators owned by the
// writers; closing those is the caller's responsibility since the
// Backend does not own them.
func (b *Backend) Close() error { return nil }

// Logger is a single subsystem's handle onto a Backend. Loggers are safe
// for concurrent use; SetLevel may be called while other goroutines are
// logging.
type Logger struct {
	tag     string
	level   atomic.Uint32
	backend *Backend
}

// Level returns the logger's current minimum level.
func (l *Logger) Level() Level { return Level(l.level.Load()) }

// SetLevel changes the logger's minimum level.
func (l *Logger) SetLevel(level Level) { l.level.Store(uint32(level)) }

// Backend returns the Backend this logger was minted from.
func (l *Logger) Backend() *Backend { return l.backend }

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if level < l.Level() {
		return
	}
	l.backend.print(level, l.tag, fmt.Sprintf(format, args...))
}

// Tracef logs at LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) { l.logf(LevelTrace, format, args...) }

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) { l.logf(LevelInfo, format, args...) }

// Warnf logs at LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) { l.logf(LevelWarn, format, args...) }

// Errorf logs at LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }

// Criticalf logs at LevelCritical. It never panics or exits; callers
// (see util/panics) decide what critical-severity logging implies for
// process lifetime.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.logf(LevelCritical, format, args...)
}
