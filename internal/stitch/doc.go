// Package stitch turns a directory of independently transcribed audio
// chunks into one continuous transcript.
//
// Every chunk is transcribed against its own zero-based clock. The pipeline
// walks chunks in filename order, shifts each chunk's segments by the sum of
// the resolved durations of all earlier chunks, numbers them with a single
// run-wide counter, and streams them into the enabled output formats. A
// chunk that fails to transcribe contributes no segments but still advances
// the clock by its resolved duration, so later chunks stay aligned with the
// source recording.
//
// The run is strictly sequential. State that must survive from one chunk to
// the next is carried in an explicit State value rather than in fields of
// the Pipeline.
package stitch
