// Package services defines shared utilities consumed by the transcription
// pipeline and the external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and chunk names for
//     logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (fatal configuration problems vs per-chunk tool failures)
//     consistent across packages.
//   - UnsupportedOptionError, the signal a transcription adapter returns when
//     the underlying engine rejects a requested option.
package services
