package stitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"batchscribe/internal/logging"
	"batchscribe/internal/services"
	"batchscribe/internal/services/whisper"
)

// Engine transcribes a single audio file.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, opts whisper.Options) (whisper.Result, error)
}

// ChunkResult is the outcome of transcribing one chunk. A failed chunk has
// no segments and a non-nil Err.
type ChunkResult struct {
	Segments     []Segment
	DurationHint float64
	Language     string
	Err          error
	// Retried is set when the engine rejected an option and the call was
	// repeated without it. DroppedOption names that option.
	Retried       bool
	DroppedOption string
	// Discarded counts engine segments removed by normalization.
	Discarded int
}

// Transcriber isolates engine failures to the chunk that caused them.
//
// Options rejected by the engine are dropped for the retry and for every
// later chunk, so a run negotiates its option set once.
type Transcriber struct {
	engine  Engine
	options whisper.Options
	logger  *slog.Logger
}

// NewTranscriber wraps engine with the run's decoding options.
func NewTranscriber(engine Engine, opts whisper.Options, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transcriber{engine: engine, options: opts, logger: logger}
}

// Options returns the currently negotiated options.
func (t *Transcriber) Options() whisper.Options { return t.options }

// Transcribe runs the engine on chunk. It never returns an error; failures
// are reported through ChunkResult.Err.
func (t *Transcriber) Transcribe(ctx context.Context, chunk Chunk) ChunkResult {
	if _, ok := services.ChunkFromContext(ctx); !ok {
		ctx = services.WithChunk(ctx, chunk.Name)
	}
	logger := logging.WithContext(ctx, t.logger)
	if t.engine == nil {
		return t.fail(logger, ChunkResult{}, services.Wrap(services.ErrConfiguration, "transcribe", chunk.Name, "no transcription engine", nil))
	}

	result, err := t.call(ctx, chunk, t.options)
	out := ChunkResult{}
	if option, ok := services.UnsupportedOption(err); ok {
		reduced, dropped := t.options.Without(option)
		if dropped {
			logging.WarnWithContext(logger, "engine rejected option; retrying without it",
				"unsupported_option",
				logging.String("option", option),
				logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
				logging.String(logging.FieldImpact, "option disabled for the rest of the run"),
			)
			t.options = reduced
			out.Retried = true
			out.DroppedOption = option
			result, err = t.call(ctx, chunk, reduced)
		}
	}
	if err != nil {
		return t.fail(logger, out, err)
	}

	segments, discarded := normalizeSegments(result.Segments)
	out.Segments = segments
	out.Discarded = discarded
	out.DurationHint = result.DurationHint
	out.Language = result.Language
	if discarded > 0 {
		logger.Debug("discarded unusable segments",
			logging.Int("discarded", discarded),
		)
	}
	return out
}

// call invokes the engine and converts a panic into an error.
func (t *Transcriber) call(ctx context.Context, chunk Chunk, opts whisper.Options) (result whisper.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Debug("engine panic", logging.String("stack", string(debug.Stack())))
			result = whisper.Result{}
			err = services.Wrap(services.ErrExternalTool, "transcribe", chunk.Name, fmt.Sprintf("engine panic: %v", r), nil)
		}
	}()
	return t.engine.Transcribe(ctx, chunk.Path, opts)
}

func (t *Transcriber) fail(logger *slog.Logger, out ChunkResult, err error) ChunkResult {
	out.Segments = nil
	out.DurationHint = 0
	out.Err = err
	if errors.Is(err, context.Canceled) {
		logger.Debug("chunk transcription interrupted")
		return out
	}
	logging.ErrorWithContext(logger, "chunk transcription failed", "chunk_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
		logging.String(logging.FieldImpact, "chunk contributes no segments; timeline still advances"),
	)
	return out
}
