// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package noop provides a slog.Handler which discards every record.
package noop

import (
	"context"
	"log/slog"
)

// LogHandler is the default handler for every component which accepts
// a LogHandler option.
type LogHandler struct{}

func (LogHandler) Enabled(_ context.Context, _ slog.Level) bool  { return false }
func (LogHandler) Handle(_ context.Context, _ slog.Record) error { return nil }
func (h LogHandler) WithAttrs(_ []slog.Attr) slog.Handler        { return h }
func (h LogHandler) WithGroup(_ string) slog.Handler             { return h }

// Logger returns a *slog.Logger backed by h, or by LogHandler if h is nil.
func Logger(h slog.Handler) *slog.Logger {
	if h == nil {
		h = LogHandler{}
	}
	return slog.New(h)
}
