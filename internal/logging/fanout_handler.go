package logging

import (
	"context"
	"errors"
	"log/slog"
)

// runLogHandler sends every record to the console handler and mirrors it into
// the per-run JSON file. Each side applies its own level, so a quiet console
// still leaves a complete run log behind.
type runLogHandler struct {
	console slog.Handler
	file    slog.Handler
}

func newRunLogHandler(console, file slog.Handler) slog.Handler {
	switch {
	case file == nil && console == nil:
		return NoopHandler{}
	case file == nil:
		return console
	case console == nil:
		return file
	}
	return &runLogHandler{console: console, file: file}
}

func (h *runLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.file.Enabled(ctx, level)
}

// Handle writes to the run log even when the console write fails.
func (h *runLogHandler) Handle(ctx context.Context, record slog.Record) error {
	var consoleErr, fileErr error
	if h.console.Enabled(ctx, record.Level) {
		consoleErr = h.console.Handle(ctx, record.Clone())
	}
	if h.file.Enabled(ctx, record.Level) {
		fileErr = h.file.Handle(ctx, record)
	}
	return errors.Join(consoleErr, fileErr)
}

func (h *runLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runLogHandler{console: h.console.WithAttrs(attrs), file: h.file.WithAttrs(attrs)}
}

func (h *runLogHandler) WithGroup(name string) slog.Handler {
	return &runLogHandler{console: h.console.WithGroup(name), file: h.file.WithGroup(name)}
}

func mirrorToRunLog(console *slog.Logger, file slog.Handler) *slog.Logger {
	if console == nil {
		return slog.New(newRunLogHandler(nil, file))
	}
	return slog.New(newRunLogHandler(console.Handler(), file))
}
