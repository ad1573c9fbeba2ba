// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package evotri

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/evotri/evolve"
	"github.com/gogpu/evotri/gpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for evotri and all its sub-packages:
// the resource layer, both devices and the evolution engine. By default
// evotri produces no log output.
//
// Pass nil to disable logging.
//
// Log levels used by evotri:
//   - [slog.LevelDebug]: per-generation diagnostics (elite, fitness, pipelines)
//   - [slog.LevelInfo]: lifecycle events (device opened, pipeline built or released)
//   - [slog.LevelWarn]: non-fatal issues (live resources at close, release errors)
//
// Example:
//
//	evotri.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
	evolve.SetLogger(l)
}

// Logger returns the current logger used by evotri.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
