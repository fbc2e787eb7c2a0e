// Package main hosts the batchscribe CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, applies flag overrides,
// and hands off to internal packages: batchrun for transcription runs,
// ledger for history, subtitles for verification. Commands stay thin and
// only shape output for the terminal (go-pretty tables) or for scripts
// (--json / --yaml).
package main
