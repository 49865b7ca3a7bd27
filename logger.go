// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ssr

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/ssr/internal/gpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with rendering.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for ssr and its GPU backend.
// By default ssr produces no log output. Pass nil to restore that.
//
// Log levels used by ssr:
//   - [slog.LevelDebug]: per-frame counts and stage timings
//   - [slog.LevelInfo]: lifecycle events (cold start, GPU backend selected)
//   - [slog.LevelWarn]: non-fatal issues (CPU fallback)
//
// Example:
//
//	ssr.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
}

// Logger returns the current logger used by ssr.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
