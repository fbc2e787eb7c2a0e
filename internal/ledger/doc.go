// Package ledger persists a history of transcription runs in SQLite.
//
// Each run gets one row in runs and one row per processed chunk in chunks,
// recording the resolved duration, where it came from, and any failure. The
// schema is embedded and versioned; a version mismatch is reported rather
// than migrated, matching how the history is treated as disposable state.
package ledger
