package batchrun

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"batchscribe/internal/config"
	"batchscribe/internal/ledger"
	"batchscribe/internal/logging"
	"batchscribe/internal/media/ffprobe"
	"batchscribe/internal/preflight"
	"batchscribe/internal/services"
	"batchscribe/internal/services/whisper"
	"batchscribe/internal/stitch"
)

// progressBucket is the percentage step between sampled progress log lines.
const progressBucket = 10

// Request names the chunk directory and transcript for one run.
type Request struct {
	InputDir string

	// BaseName is reduced to its stem; "meeting.mp3" writes meeting.txt.
	BaseName string

	// Progress enables the terminal progress bar when ProgressOut is a TTY.
	Progress    bool
	ProgressOut *os.File
}

// Option customizes Run. Tests use these to avoid external tools.
type Option func(*runner)

// WithLoader replaces the whisper model loader.
func WithLoader(loader stitch.ModelLoader) Option {
	return func(r *runner) { r.loader = loader }
}

// WithProber replaces the ffprobe duration prober.
func WithProber(prober stitch.Prober) Option {
	return func(r *runner) { r.prober = prober }
}

// WithProgressWriter forces the progress bar onto w regardless of TTY state.
func WithProgressWriter(w io.Writer) Option {
	return func(r *runner) { r.barOut = w }
}

// WithSkipPreflight disables environment checks.
func WithSkipPreflight() Option {
	return func(r *runner) { r.skipPreflight = true }
}

type runner struct {
	loader        stitch.ModelLoader
	prober        stitch.Prober
	barOut        io.Writer
	skipPreflight bool
}

// Run executes one transcription run. The returned summary is nil only when
// the run was rejected before the pipeline started.
func Run(ctx context.Context, cfg *config.Config, req Request, logger *slog.Logger, opts ...Option) (*stitch.Summary, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "batchrun", "run", "config is required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &runner{}
	for _, opt := range opts {
		opt(r)
	}

	base := Stem(req.BaseName)
	if base == "" {
		return nil, services.Wrap(services.ErrValidation, "batchrun", "run", "base name is required", nil)
	}
	if strings.TrimSpace(req.InputDir) == "" {
		return nil, services.Wrap(services.ErrValidation, "batchrun", "run", "input directory is required", nil)
	}
	inputDir, err := filepath.Abs(req.InputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "batchrun", "run", "resolve input directory", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batchrun", "ensure directories", "create state and log directories", err)
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logName := fmt.Sprintf("batchscribe-%s", time.Now().UTC().Format("20060102T150405.000Z"))
	logger, logPath, closeLog, err := logging.AttachRunLog(logger, cfg.Paths.LogDir, logName, cfg.Logging.Level)
	if err != nil {
		logging.WarnWithContext(logger, "run log unavailable; logging to console only", "run_log_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no per-run log file"),
		)
	}
	defer func() { _ = closeLog() }()
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "batchscribe-*.log", logPath)

	logger = logger.With(logging.String(logging.FieldRunID, runID))
	logger.Info("run starting",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("input_dir", inputDir),
		logging.String("base_name", base),
		logging.String("output_dir", cfg.Paths.OutputDir),
		logging.String("log_path", logPath),
	)

	if !r.skipPreflight {
		results := preflight.RunAll(ctx, cfg, inputDir)
		logPreflight(logger, results)
		if err := preflight.Err(results); err != nil {
			return nil, err
		}
	}

	reporters := []stitch.Reporter{}
	if cfg.History.Enabled {
		if store := openHistory(ctx, cfg, logger); store != nil {
			defer store.Close()
			reporters = append(reporters, ledger.NewRecorder(store, logger, logPath))
		}
	}
	switch {
	case r.barOut != nil:
		reporters = append(reporters, stitch.NewBarReporter(r.barOut))
	case req.Progress && stitch.IsTerminal(req.ProgressOut):
		reporters = append(reporters, stitch.NewBarReporter(req.ProgressOut))
	default:
		reporters = append(reporters, stitch.NewLogReporter(logger, progressBucket))
	}

	loader := r.loader
	if loader == nil {
		loader = whisperLoader(cfg, logger)
	}
	pipelineOpts := []stitch.Option{
		stitch.WithReporter(stitch.NewMultiReporter(reporters...)),
		stitch.WithOutputLock(lockTranscript),
	}
	if prober := r.proberFor(cfg); prober != nil {
		pipelineOpts = append(pipelineOpts, stitch.WithProber(prober))
	}

	pipeline := stitch.New(stitch.Config{
		InputDir:  inputDir,
		Pattern:   cfg.Input.Pattern,
		OutputDir: cfg.Paths.OutputDir,
		BaseName:  base,
		Formats:   stitch.Formats{Text: cfg.Output.GenerateTXT, SRT: cfg.Output.GenerateSRT},
		Cleanup:   cfg.Output.CleanupTemp,
		Options:   OptionsFromConfig(cfg),
	}, loader, logger, pipelineOpts...)
	return pipeline.Run(ctx)
}

// Stem returns the base name without directories or its final extension.
func Stem(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// OptionsFromConfig maps the transcription section onto engine options.
func OptionsFromConfig(cfg *config.Config) whisper.Options {
	t := cfg.Transcription
	return whisper.Options{
		Language: t.Language,
		BeamSize: t.BeamSize,
		VAD:      t.VADFilter,
		VADParams: whisper.VADParams{
			MinSilenceMS: t.VADMinSilenceMS,
			SpeechPadMS:  t.VADSpeechPadMS,
			Threshold:    t.VADThreshold,
		},
	}
}

// WhisperConfig maps the model and whisper sections onto the engine config.
func WhisperConfig(cfg *config.Config) whisper.Config {
	return whisper.Config{
		Command:     cfg.Whisper.Command,
		Launcher:    cfg.Whisper.Launcher,
		Model:       cfg.Model.Path,
		ModelIsPath: cfg.ModelIsPath(),
		Device:      cfg.Model.Device,
		ComputeType: cfg.Model.ComputeType,
		Timeout:     time.Duration(cfg.Whisper.TimeoutSeconds) * time.Second,
	}
}

func whisperLoader(cfg *config.Config, logger *slog.Logger) stitch.ModelLoader {
	wcfg := WhisperConfig(cfg)
	return stitch.ModelLoaderFunc(func(ctx context.Context) (stitch.Engine, error) {
		model, err := whisper.Load(ctx, wcfg)
		if err != nil {
			return nil, err
		}
		logger.Info("model loaded",
			logging.String(logging.FieldEventType, "model_loaded"),
			logging.String("model", model.Name()),
			logging.String("device", model.Device()),
			logging.String("compute_type", model.ComputeType()),
		)
		return model, nil
	})
}

func (r *runner) proberFor(cfg *config.Config) stitch.Prober {
	if r.prober != nil {
		return r.prober
	}
	if !cfg.Probe.Enabled {
		return nil
	}
	return ffprobe.NewProber(cfg.FFprobeBinary(), time.Duration(cfg.Probe.TimeoutSeconds)*time.Second)
}

func lockTranscript(outputDir, base string) (func(), error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batchrun", "lock transcript", "create output directory", err)
	}
	lockPath := filepath.Join(outputDir, "."+base+".lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "batchrun", "lock transcript", "acquire "+lockPath, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrTransient, "batchrun", "lock transcript",
			fmt.Sprintf("another run is writing %s in %s", base, outputDir), nil)
	}
	return func() { _ = lock.Unlock() }, nil
}

func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) *ledger.Store {
	store, err := ledger.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "history ledger unavailable; run will not be recorded", "history_unavailable",
			logging.String("path", cfg.HistoryPath()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or set history.enabled = false"),
			logging.String(logging.FieldImpact, "run is missing from history"),
		)
		return nil
	}
	if days := cfg.Logging.RetentionDays; days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		if removed, err := store.PruneBefore(ctx, cutoff); err != nil {
			logger.Debug("history prune failed", logging.Error(err))
		} else if removed > 0 {
			logger.Debug("history pruned", logging.Int64("runs_removed", removed))
		}
	}
	return store
}

func logPreflight(logger *slog.Logger, results []preflight.Result) {
	for _, result := range results {
		attrs := []logging.Attr{
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		}
		switch {
		case result.Passed:
			logger.Debug("preflight check passed", logging.Args(attrs...)...)
		case result.Warning:
			logging.WarnWithContext(logger, "preflight check warning", "preflight_warning", attrs...)
		default:
			logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed", attrs...)
		}
	}
}
