package ledger

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned when no run matches an identifier.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRun is returned when an identifier prefix matches several runs.
var ErrAmbiguousRun = errors.New("ambiguous run id")

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	// RunPartial marks a run that finished with one or more failed chunks.
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// ChunkStatus is the per-chunk outcome.
type ChunkStatus string

const (
	ChunkOK     ChunkStatus = "ok"
	ChunkFailed ChunkStatus = "failed"
)

// Run is one recorded invocation of the pipeline.
type Run struct {
	ID           string
	BaseName     string
	InputDir     string
	OutputDir    string
	Language     string
	Status       RunStatus
	ChunkCount   int
	SegmentCount int
	FailedChunks int
	TotalSeconds float64
	Outputs      []string
	LogPath      string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Elapsed returns the wall time of a finished run, or zero.
func (r Run) Elapsed() time.Duration {
	if r.FinishedAt == nil || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ChunkRecord is the stored outcome of one chunk.
type ChunkRecord struct {
	RunID          string
	Index          int
	Name           string
	Offset         float64
	Duration       float64
	DurationSource string
	SegmentCount   int
	FirstOrdinal   int
	Status         ChunkStatus
	Retried        bool
	DroppedOption  string
	ErrorMessage   string
	Elapsed        time.Duration
}

// RunResult carries the final counters written by FinishRun.
type RunResult struct {
	Status       RunStatus
	ChunkCount   int
	SegmentCount int
	FailedChunks int
	TotalSeconds float64
	Outputs      []string
	Language     string
	ErrorMessage string
	FinishedAt   time.Time
}
