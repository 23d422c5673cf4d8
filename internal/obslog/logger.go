// Package obslog is the default mem.Logger implementation, backed by
// log/slog. It discards everything until Init is called, mirroring the
// teacher's cmd/hiveexplorer/logger package.
package obslog

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LevelTrace sits one tier below slog's Debug, for the allocator's
// per-alloc/free trace lines (spec.md §6 Logger collaborator).
const LevelTrace = slog.LevelDebug - 4

// L is the package logger. Defaults to discarding all output; call Init
// to enable it.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures Init.
type Options struct {
	// Enabled turns logging on. If false, Init resets L to discard.
	Enabled bool
	// Level is the minimum level passed through once enabled. Defaults
	// to LevelTrace so every mem.Logger method is visible.
	Level slog.Level
	// Writer receives output once enabled. Defaults to os.Stderr.
	Writer io.Writer
}

// Init (re)configures L. Call from main() before constructing a
// mem.Allocator.
func Init(opts Options) {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	w := opts.Writer
	if w == nil {
		w = defaultWriter()
	}
	level := opts.Level
	if level == 0 {
		level = LevelTrace
	}
	L = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func defaultWriter() io.Writer { return os.Stderr }

// Logger adapts L to mem.Logger.
type Logger struct{}

// New returns a Logger backed by the package-level L, so callers that
// later call Init see the change take effect immediately.
func New() Logger { return Logger{} }

func (Logger) Trace(msg string, args ...any) { L.Log(context.Background(), LevelTrace, msg, args...) }

func (Logger) Debug(msg string, args ...any) { L.Debug(msg, args...) }

func (Logger) Warn(msg string, args ...any) { L.Warn(msg, args...) }
