// Package logging assembles structured slog loggers and formatting helpers used
// across batchscribe.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, phases, and chunk names. The package also provides a
// no-op logger for tests, a fan-out handler that mirrors console output into
// per-run log files, and a sampler for throttling progress lines.
package logging
