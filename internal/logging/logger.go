// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures structured logging for the chat widget.
//
// Log messages are upper-snake event names (RENDER_DEGRADED, IMPORT_FAILED)
// with details as attributes.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey struct{}

// ParseLevel converts a level name to a slog level. Unknown names map to
// info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger writing to w. format is "json" or "text".
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OpenSink opens a log destination: "stderr" (or empty), "stdout", or
// "file:/path" (appended to). The returned closer is a no-op for the
// standard streams.
func OpenSink(sink string) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	switch {
	case sink == "" || sink == "stderr":
		return os.Stderr, noop, nil
	case sink == "stdout":
		return os.Stdout, noop, nil
	case strings.HasPrefix(sink, "file:"):
		path := strings.TrimPrefix(sink, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		return f, f.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown log sink %q (use stderr, stdout or file:PATH)", sink)
	}
}

// ForWidget returns a logger tagged with a widget instance id.
func ForWidget(l *slog.Logger, id string) *slog.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With("widget", id)
}

// WithLogger stores l in ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or a discarding logger.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return Discard()
}
