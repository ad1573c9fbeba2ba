// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package evolve

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards everything.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := slog.New(nopHandler{})
	loggerPtr.Store(l)
}

func logger() *slog.Logger { return loggerPtr.Load() }

// SetLogger sets the logger of the engine. nil silences it.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}
