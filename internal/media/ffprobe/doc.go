// Package ffprobe wraps the ffprobe CLI to read container metadata for audio
// chunks.
//
// Inspect returns the decoded JSON payload. Prober layers a per-call timeout
// and a duration lookup on top of it so the pipeline can learn a chunk's
// length without running the speech model.
package ffprobe
