package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"batchscribe/internal/logging"
	"batchscribe/internal/stitch"
)

// Recorder writes pipeline events into the store. Write failures are logged
// once as warnings and never interrupt the run.
type Recorder struct {
	store   *Store
	logger  *slog.Logger
	logPath string
	runID   string
	warned  bool
	now     func() time.Time
}

// NewRecorder returns a stitch.Reporter backed by store. logPath is stored
// with the run so history can point at the run log.
func NewRecorder(store *Store, logger *slog.Logger, logPath string) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{store: store, logger: logger, logPath: logPath, now: time.Now}
}

func (r *Recorder) RunStarted(ctx context.Context, info stitch.RunInfo) {
	r.runID = info.RunID
	if r.store == nil || r.runID == "" {
		return
	}
	r.check(r.store.StartRun(ctx, Run{
		ID:         info.RunID,
		BaseName:   info.BaseName,
		InputDir:   info.InputDir,
		OutputDir:  info.OutputDir,
		Language:   info.Language,
		ChunkCount: len(info.Chunks),
		LogPath:    r.logPath,
		StartedAt:  r.now(),
	}))
}

func (r *Recorder) ChunkStarted(context.Context, stitch.Chunk, int) {}

func (r *Recorder) ChunkFinished(ctx context.Context, report stitch.ChunkReport) {
	if r.store == nil || r.runID == "" {
		return
	}
	rec := ChunkRecord{
		RunID:          r.runID,
		Index:          report.Chunk.Index,
		Name:           report.Chunk.Name,
		Offset:         report.Offset,
		Duration:       report.Duration,
		DurationSource: string(report.Source),
		SegmentCount:   report.Segments,
		FirstOrdinal:   report.FirstOrdinal,
		Status:         ChunkOK,
		Retried:        report.Retried,
		DroppedOption:  report.Dropped,
		Elapsed:        report.Elapsed,
	}
	if report.Err != nil {
		rec.Status = ChunkFailed
		rec.ErrorMessage = report.Err.Error()
	}
	// Use a context that survives cancellation so the last chunk is kept.
	r.check(r.store.RecordChunk(context.WithoutCancel(ctx), rec))
}

func (r *Recorder) RunFinished(ctx context.Context, summary *stitch.Summary, err error) {
	if r.store == nil || r.runID == "" || summary == nil {
		return
	}
	result := RunResult{
		Status:       StatusFor(summary, err),
		ChunkCount:   len(summary.Chunks),
		SegmentCount: summary.Segments,
		FailedChunks: summary.Failed,
		TotalSeconds: summary.TotalSeconds,
		Outputs:      summary.Outputs,
		Language:     summary.Language,
		FinishedAt:   r.now(),
	}
	if err != nil {
		result.ErrorMessage = err.Error()
	}
	r.check(r.store.FinishRun(context.WithoutCancel(ctx), r.runID, result))
}

// StatusFor maps a pipeline outcome to a stored run status.
func StatusFor(summary *stitch.Summary, err error) RunStatus {
	switch {
	case summary != nil && summary.Cancelled, errors.Is(err, context.Canceled):
		return RunCancelled
	case err != nil, summary == nil, summary.Phase == stitch.PhaseFailed:
		return RunFailed
	case summary.Failed > 0:
		return RunPartial
	default:
		return RunCompleted
	}
}

func (r *Recorder) check(err error) {
	if err == nil || r.warned {
		return
	}
	r.warned = true
	logging.WarnWithContext(r.logger, "history ledger write failed", "history_write_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check state_dir permissions or delete the history database"),
		logging.String(logging.FieldImpact, "this run may be missing from history"),
	)
}
