package stitch

import (
	"context"
	"log/slog"
	"time"

	"batchscribe/internal/logging"
)

// RunInfo describes a run once its chunks are known.
type RunInfo struct {
	RunID     string
	InputDir  string
	BaseName  string
	Language  string
	OutputDir string
	Chunks    []Chunk
}

// ChunkReport records what happened to one chunk.
type ChunkReport struct {
	Chunk        Chunk
	Offset       float64
	Duration     float64
	Source       DurationSource
	Segments     int
	FirstOrdinal int
	Err          error
	Retried      bool
	Dropped      string
	Language     string
	Elapsed      time.Duration
}

// Failed reports whether transcription of the chunk failed.
func (r ChunkReport) Failed() bool { return r.Err != nil }

// Reporter observes run progress. Implementations must not block for long;
// they run on the pipeline goroutine.
type Reporter interface {
	RunStarted(ctx context.Context, info RunInfo)
	ChunkStarted(ctx context.Context, chunk Chunk, total int)
	ChunkFinished(ctx context.Context, report ChunkReport)
	RunFinished(ctx context.Context, summary *Summary, err error)
}

// NopReporter ignores every event.
type NopReporter struct{}

func (NopReporter) RunStarted(context.Context, RunInfo) {}

func (NopReporter) ChunkStarted(context.Context, Chunk, int) {}

func (NopReporter) ChunkFinished(context.Context, ChunkReport) {}

func (NopReporter) RunFinished(context.Context, *Summary, error) {}

// MultiReporter fans events out to each reporter in order.
type MultiReporter []Reporter

// NewMultiReporter drops nil entries and collapses trivial cases.
func NewMultiReporter(reporters ...Reporter) Reporter {
	filtered := make(MultiReporter, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			filtered = append(filtered, r)
		}
	}
	switch len(filtered) {
	case 0:
		return NopReporter{}
	case 1:
		return filtered[0]
	default:
		return filtered
	}
}

func (m MultiReporter) RunStarted(ctx context.Context, info RunInfo) {
	for _, r := range m {
		r.RunStarted(ctx, info)
	}
}

func (m MultiReporter) ChunkStarted(ctx context.Context, chunk Chunk, total int) {
	for _, r := range m {
		r.ChunkStarted(ctx, chunk, total)
	}
}

func (m MultiReporter) ChunkFinished(ctx context.Context, report ChunkReport) {
	for _, r := range m {
		r.ChunkFinished(ctx, report)
	}
}

func (m MultiReporter) RunFinished(ctx context.Context, summary *Summary, err error) {
	for _, r := range m {
		r.RunFinished(ctx, summary, err)
	}
}

// LogReporter writes chunk progress to a logger, sampled so long runs log
// roughly once per bucket of completed chunks.
type LogReporter struct {
	logger  *slog.Logger
	sampler *logging.ProgressSampler
	total   int
	done    int
}

// NewLogReporter logs progress every bucket percent (10 when <= 0).
func NewLogReporter(logger *slog.Logger, bucket float64) *LogReporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogReporter{logger: logger, sampler: logging.NewProgressSampler(bucket)}
}

func (r *LogReporter) RunStarted(_ context.Context, info RunInfo) {
	r.total = len(info.Chunks)
	r.done = 0
	r.sampler.Reset()
}

func (r *LogReporter) ChunkStarted(context.Context, Chunk, int) {}

func (r *LogReporter) ChunkFinished(ctx context.Context, report ChunkReport) {
	r.done++
	percent := 100.0
	if r.total > 0 {
		percent = float64(r.done) * 100 / float64(r.total)
	}
	if !r.sampler.ShouldLog(percent, string(PhaseProcessingChunk)) {
		return
	}
	logging.WithContext(ctx, r.logger).Info("transcription progress",
		logging.String(logging.FieldEventType, "progress"),
		logging.Int("chunks_done", r.done),
		logging.Int("chunks_total", r.total),
		logging.Float64("percent", percent),
		logging.String("timeline", formatClock(report.Offset+report.Duration)),
	)
}

func (r *LogReporter) RunFinished(context.Context, *Summary, error) {}
