// Package rxlog provides the ambient structured logger shared by the
// scheduler and cache packages for their log-and-continue paths
// (recovered task panics, refresh failures, removal-listener panics).
// It is deliberately narrow: it exposes only the handful of calls those
// packages need, rather than the full logiface builder surface.
package rxlog

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the logging surface used throughout this module.
type Logger = logiface.Logger[*stumpy.Event]

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// Default returns the process-wide default logger, lazily constructed on
// first use with a stumpy-backed writer to os.Stderr.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLogger = stumpy.L.New(
			stumpy.L.WithStumpy(),
			stumpy.L.WithLevel(logiface.LevelWarning),
		)
	})
	return defaultLogger
}

// Warn logs msg at warning level with err and the given KV fields.
// Intended for refresh-failure and removal-listener-panic reporting.
func Warn(l *Logger, msg string, err error, fields ...KV) {
	if l == nil {
		l = Default()
	}
	b := l.Warning()
	if b == nil {
		return
	}
	if err != nil {
		b = b.Err(err)
	}
	for _, f := range fields {
		b = b.Interface(f.Key, f.Value)
	}
	b.Log(msg)
}

// Error logs msg at error level, used for recovered scheduler task panics.
func Error(l *Logger, msg string, err error, fields ...KV) {
	if l == nil {
		l = Default()
	}
	b := l.Err()
	if b == nil {
		return
	}
	if err != nil {
		b = b.Err(err)
	}
	for _, f := range fields {
		b = b.Interface(f.Key, f.Value)
	}
	b.Log(msg)
}

// KV is a single structured logging field.
type KV struct {
	Key   string
	Value any
}

// F constructs a KV, for concise call sites.
func F(key string, value any) KV { return KV{Key: key, Value: value} }
