package stitch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"batchscribe/internal/logging"
	"batchscribe/internal/services"
	"batchscribe/internal/services/whisper"
	"batchscribe/internal/staging"
)

// Phase is a pipeline state.
type Phase string

const (
	PhaseInit              Phase = "init"
	PhaseLoadingModel      Phase = "loading_model"
	PhaseScanningDurations Phase = "scanning_durations"
	PhaseProcessingChunk   Phase = "processing_chunk"
	PhaseFinalizing        Phase = "finalizing"
	PhaseDone              Phase = "done"
	PhaseFailed            Phase = "failed"
)

// ModelLoader prepares the transcription engine. A load error ends the run
// before any output file is created.
type ModelLoader interface {
	Load(ctx context.Context) (Engine, error)
}

// ModelLoaderFunc adapts a function to ModelLoader.
type ModelLoaderFunc func(ctx context.Context) (Engine, error)

// Load calls f.
func (f ModelLoaderFunc) Load(ctx context.Context) (Engine, error) { return f(ctx) }

// Config is the per-run input to a Pipeline.
type Config struct {
	InputDir  string
	Pattern   string
	OutputDir string
	BaseName  string
	Formats   Formats
	// Cleanup removes InputDir after every chunk has been processed.
	Cleanup bool
	Options whisper.Options
}

// Summary describes a finished (or failed) run.
type Summary struct {
	RunID        string
	Phase        Phase
	Chunks       []ChunkReport
	Segments     int
	Failed       int
	TotalSeconds float64
	Outputs      []string
	Language     string
	Cancelled    bool
	CleanedUp    bool
	Elapsed      time.Duration
}

// RemoveFunc deletes the input directory, refusing any path in protect.
type RemoveFunc func(dir string, protect ...string) (staging.RemovalResult, error)

// LockFunc claims the output transcript for one run. It is called only after
// chunks are discovered, so a run that finds nothing leaves OutputDir alone.
type LockFunc func(outputDir, base string) (unlock func(), err error)

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithProber sets the duration probe used during the scanning phase.
func WithProber(prober Prober) Option {
	return func(p *Pipeline) { p.prober = prober }
}

// WithResolver replaces the default duration resolver.
func WithResolver(resolver *Resolver) Option {
	return func(p *Pipeline) {
		if resolver != nil {
			p.resolver = resolver
		}
	}
}

// WithReporter attaches a progress reporter.
func WithReporter(reporter Reporter) Option {
	return func(p *Pipeline) {
		if reporter != nil {
			p.reporter = reporter
		}
	}
}

// WithOutputLock guards the transcript outputs for the length of the run.
func WithOutputLock(lock LockFunc) Option {
	return func(p *Pipeline) { p.lock = lock }
}

// WithRemoveFunc overrides input directory removal (for testing).
func WithRemoveFunc(remove RemoveFunc) Option {
	return func(p *Pipeline) {
		if remove != nil {
			p.remove = remove
		}
	}
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline runs one stitching pass over a chunk directory.
type Pipeline struct {
	cfg      Config
	loader   ModelLoader
	prober   Prober
	resolver *Resolver
	reporter Reporter
	remove   RemoveFunc
	lock     LockFunc
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a pipeline.
func New(cfg Config, loader ModelLoader, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:      cfg,
		loader:   loader,
		resolver: NewResolver(),
		reporter: NopReporter{},
		remove:   staging.RemoveInputDir,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline. Chunk failures are recorded in the summary and
// do not produce an error. Errors are returned for a missing or empty input
// directory, an output lock that cannot be taken, a model load failure, an
// output write failure, and context cancellation; the summary is always
// non-nil.
func (p *Pipeline) Run(ctx context.Context) (summary *Summary, err error) {
	started := p.now()
	runID, _ := services.RunIDFromContext(ctx)
	summary = &Summary{RunID: runID, Phase: PhaseInit}
	logger := p.enter(ctx, summary, PhaseInit)

	chunks, err := Discover(p.cfg.InputDir, p.cfg.Pattern)
	if err != nil {
		summary.Phase = PhaseFailed
		summary.Elapsed = p.now().Sub(started)
		logger.Error("chunk discovery failed",
			logging.String(logging.FieldEventType, "discovery_failed"),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
			logging.Error(err),
		)
		return summary, err
	}
	logger.Info("chunks discovered",
		logging.Int("chunk_count", len(chunks)),
		logging.String("input_dir", p.cfg.InputDir),
	)
	if p.lock != nil {
		unlock, lerr := p.lock(p.cfg.OutputDir, p.cfg.BaseName)
		if lerr != nil {
			summary.Phase = PhaseFailed
			summary.Elapsed = p.now().Sub(started)
			return summary, lerr
		}
		if unlock != nil {
			defer unlock()
		}
	}
	p.reporter.RunStarted(ctx, RunInfo{
		RunID:     runID,
		InputDir:  p.cfg.InputDir,
		BaseName:  p.cfg.BaseName,
		Language:  p.cfg.Options.Language,
		OutputDir: p.cfg.OutputDir,
		Chunks:    chunks,
	})
	defer func() {
		summary.Elapsed = p.now().Sub(started)
		p.reporter.RunFinished(ctx, summary, err)
	}()

	logger = p.enter(ctx, summary, PhaseLoadingModel)
	engine, err := p.load(ctx)
	if err != nil {
		summary.Phase = PhaseFailed
		logger.Error("model load failed",
			logging.String(logging.FieldEventType, "model_load_failed"),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
			logging.Error(err),
		)
		return summary, err
	}

	writer, err := OpenWriter(p.cfg.OutputDir, p.cfg.BaseName, p.cfg.Formats)
	if err != nil {
		summary.Phase = PhaseFailed
		return summary, err
	}
	summary.Outputs = writer.Paths()
	completed := false
	defer func() {
		err = p.finalize(ctx, summary, writer, completed, err)
	}()

	logger = p.enter(ctx, summary, PhaseScanningDurations)
	probed := ScanDurations(ctx, p.prober, chunks, logger)

	p.enter(ctx, summary, PhaseProcessingChunk)
	transcriber := NewTranscriber(engine, p.cfg.Options, p.logger)
	state := NewState()
	for i, chunk := range chunks {
		if cerr := ctx.Err(); cerr != nil {
			summary.Cancelled = true
			return summary, cerr
		}
		report, next, werr := p.processChunk(ctx, transcriber, writer, state, chunk, probed[i], len(chunks))
		state = next
		summary.Chunks = append(summary.Chunks, report)
		summary.Segments += report.Segments
		summary.TotalSeconds = state.CumulativeTime
		if report.Failed() {
			summary.Failed++
		}
		if summary.Language == "" {
			summary.Language = report.Language
		}
		p.reporter.ChunkFinished(services.WithChunk(ctx, chunk.Name), report)
		if werr != nil {
			summary.Phase = PhaseFailed
			return summary, werr
		}
	}
	if cerr := ctx.Err(); cerr != nil {
		summary.Cancelled = true
		return summary, cerr
	}
	if summary.Language == "" {
		summary.Language = p.cfg.Options.Language
	}
	completed = true
	return summary, nil
}

func (p *Pipeline) load(ctx context.Context) (Engine, error) {
	if p.loader == nil {
		return nil, services.Wrap(services.ErrConfiguration, string(PhaseLoadingModel), "load model", "no model loader configured", nil)
	}
	engine, err := p.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, services.Wrap(services.ErrConfiguration, string(PhaseLoadingModel), "load model", "loader returned no engine", nil)
	}
	return engine, nil
}

// processChunk runs one PROCESSING_CHUNK step: transcribe, resolve the
// duration, translate, emit, flush, and advance.
func (p *Pipeline) processChunk(ctx context.Context, transcriber *Transcriber, writer *Writer, state State, chunk Chunk, probed float64, total int) (ChunkReport, State, error) {
	chunkCtx := services.WithChunk(ctx, chunk.Name)
	logger := logging.WithContext(chunkCtx, p.logger)
	p.reporter.ChunkStarted(chunkCtx, chunk, total)
	began := p.now()
	logger.Debug("chunk started",
		logging.Int("index", chunk.Index),
		logging.Float64("offset_seconds", state.CumulativeTime),
	)

	result := transcriber.Transcribe(chunkCtx, chunk)
	duration, source := p.resolver.Resolve(DurationEvidence{
		Probed:   probed,
		Hint:     result.DurationHint,
		Segments: result.Segments,
	})

	report := ChunkReport{
		Chunk:        chunk,
		Offset:       state.CumulativeTime,
		Duration:     duration,
		Source:       source,
		Segments:     len(result.Segments),
		FirstOrdinal: state.NextOrdinal,
		Err:          result.Err,
		Retried:      result.Retried,
		Dropped:      result.DroppedOption,
		Language:     result.Language,
	}

	globals := state.Translate(result.Segments)
	next, werr := writer.Emit(globals, state.NextOrdinal)
	if flushErr := writer.Flush(); werr == nil {
		werr = flushErr
	}
	if werr != nil {
		werr = services.Wrap(services.ErrExternalTool, string(PhaseProcessingChunk), chunk.Name, "write transcript", werr)
	}

	if source == SourceProbe || source == SourceHint {
		if over := Overrun(result.Segments, duration); over > 0 {
			logging.WarnWithContext(logger, "segments run past chunk duration", "timeline_overlap",
				logging.Float64("overrun_seconds", over),
				logging.Float64("duration_seconds", duration),
				logging.String("duration_source", string(source)),
				logging.String(logging.FieldErrorHint, "chunk boundaries may overlap; timestamps are kept as reported"),
				logging.String(logging.FieldImpact, "subtitle cues may overlap at the chunk boundary"),
			)
		}
	}

	state = state.WithOrdinal(next).Advance(duration)
	report.Elapsed = p.now().Sub(began)
	logger.Info("chunk processed",
		logging.String(logging.FieldEventType, "chunk_done"),
		logging.Int("segments", report.Segments),
		logging.Float64("duration_seconds", duration),
		logging.String("duration_source", string(source)),
		logging.Bool("failed", report.Failed()),
		logging.Duration("chunk_elapsed", report.Elapsed),
	)
	return report, state, werr
}

// finalize flushes and closes the outputs and, when the chunk loop ran to
// completion, removes the input directory. It returns the run error.
func (p *Pipeline) finalize(ctx context.Context, summary *Summary, writer *Writer, completed bool, runErr error) error {
	failed := summary.Phase == PhaseFailed
	logger := p.enter(ctx, summary, PhaseFinalizing)
	if err := writer.Close(); err != nil {
		logger.Error("closing transcript failed",
			logging.String(logging.FieldEventType, "output_close_failed"),
			logging.Error(err),
		)
		if runErr == nil {
			runErr = services.Wrap(services.ErrExternalTool, string(PhaseFinalizing), "close outputs", "", err)
			failed = true
		}
	}

	if completed && !failed && p.cfg.Cleanup {
		removed, err := p.remove(p.cfg.InputDir, p.cfg.OutputDir)
		if err != nil {
			logging.WarnWithContext(logger, "input directory cleanup failed", "cleanup_failed",
				logging.String("input_dir", p.cfg.InputDir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the chunk directory manually"),
				logging.String(logging.FieldImpact, "chunk files remain on disk"),
			)
		} else {
			summary.CleanedUp = true
			logger.Info("input directory removed",
				logging.String("input_dir", removed.Path),
				logging.Int("files", removed.Files),
				logging.Int64("bytes", removed.Bytes),
			)
		}
	}

	if failed {
		summary.Phase = PhaseFailed
	} else {
		summary.Phase = PhaseDone
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("chunks", len(summary.Chunks)),
		logging.Int("segments", summary.Segments),
		logging.Int("failed_chunks", summary.Failed),
		logging.String("timeline", formatClock(summary.TotalSeconds)),
		logging.String("outputs", strings.Join(summary.Outputs, ", ")),
	}
	switch {
	case summary.Cancelled:
		logger.Warn("transcription interrupted", logging.Args(append(attrs, logging.String(logging.FieldImpact, "transcript is partial"))...)...)
	case failed:
		logger.Error("transcription aborted", logging.Args(append(attrs, logging.Error(runErr))...)...)
	case summary.Failed > 0:
		logging.WarnWithContext(logger, "transcription finished with failed chunks", "run_complete",
			append(attrs,
				logging.String(logging.FieldErrorHint, "rerun after fixing the failed chunks listed above"),
				logging.String(logging.FieldImpact, fmt.Sprintf("%d chunk(s) missing from the transcript", summary.Failed)),
			)...,
		)
	default:
		logger.Info("transcription finished", logging.Args(attrs...)...)
	}
	return runErr
}

// enter records a phase transition and returns a logger tagged with it.
func (p *Pipeline) enter(ctx context.Context, summary *Summary, phase Phase) *slog.Logger {
	if summary.Phase != PhaseFailed {
		summary.Phase = phase
	}
	logger := logging.WithContext(services.WithStage(ctx, string(phase)), p.logger)
	if phase != PhaseInit {
		logger.Debug("phase entered", logging.String("phase", string(phase)))
	}
	return logger
}
