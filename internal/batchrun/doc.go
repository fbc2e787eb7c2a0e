// Package batchrun wires configuration, preflight checks, the history
// ledger, and progress reporting around a single stitch.Pipeline run.
//
// Run is what the "transcribe" command calls. It assigns the run ID,
// mirrors logs into a per-run file, serializes runs that target the same
// transcript with a lock file, and returns the pipeline summary unchanged.
package batchrun
