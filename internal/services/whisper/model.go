package whisper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"batchscribe/internal/services"
)

const stageName = "transcribe"

// CommandRunner executes a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// LoadOption customizes Load.
type LoadOption func(*Model)

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(run CommandRunner) LoadOption {
	return func(m *Model) {
		if run != nil {
			m.run = run
		}
	}
}

// WithLookPath overrides executable resolution (for testing).
func WithLookPath(lookPath func(string) (string, error)) LoadOption {
	return func(m *Model) {
		if lookPath != nil {
			m.lookPath = lookPath
		}
	}
}

// Model is a validated handle to the transcription engine.
type Model struct {
	cfg         Config
	binary      string
	prefix      []string
	device      string
	computeType string
	run         CommandRunner
	lookPath    func(string) (string, error)
}

// Load validates the engine configuration and returns a ready Model. All
// failures are fatal for a run and carry ErrConfiguration or ErrExternalTool.
func Load(ctx context.Context, cfg Config, opts ...LoadOption) (*Model, error) {
	m := &Model{cfg: cfg, run: runCommand, lookPath: exec.LookPath}
	for _, opt := range opts {
		opt(m)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	command := strings.TrimSpace(cfg.Command)
	if command == "" {
		command = DefaultCommand
	}
	launcher := strings.TrimSpace(cfg.Launcher)
	entry := command
	if launcher != "" {
		entry = launcher
		m.prefix = []string{command}
	}
	resolved, err := m.lookPath(entry)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stageName, "load model", fmt.Sprintf("%s not found on PATH", entry), err)
	}
	m.binary = resolved

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "load model", "model path is empty", nil)
	}
	if cfg.ModelIsPath {
		info, err := os.Stat(model)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, stageName, "load model", fmt.Sprintf("model directory %s unavailable", model), err)
		}
		if !info.IsDir() {
			return nil, services.Wrap(services.ErrConfiguration, stageName, "load model", fmt.Sprintf("model path %s is not a directory", model), nil)
		}
	}
	m.cfg.Model = model

	m.device = m.resolveDevice(cfg.Device)
	m.computeType = resolveComputeType(m.device, cfg.ComputeType)
	return m, nil
}

// Device returns the resolved device (cpu or cuda).
func (m *Model) Device() string { return m.device }

// ComputeType returns the resolved precision.
func (m *Model) ComputeType() string { return m.computeType }

// Name returns the configured model path or name.
func (m *Model) Name() string { return m.cfg.Model }

// GPUs returns the adapter names reported by the GPU probe command, or nil
// when it is absent or fails.
func (m *Model) GPUs(ctx context.Context) []string {
	path, err := m.lookPath(GPUProbeCommand)
	if err != nil {
		return nil
	}
	out, err := m.run(ctx, path, "--query-gpu=name", "--format=csv,noheader")
	if err != nil {
		return nil
	}
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (m *Model) resolveDevice(device string) string {
	switch strings.ToLower(strings.TrimSpace(device)) {
	case DeviceCPU:
		return DeviceCPU
	case DeviceCUDA:
		return DeviceCUDA
	default:
		if _, err := m.lookPath(GPUProbeCommand); err == nil {
			return DeviceCUDA
		}
		return DeviceCPU
	}
}

func resolveComputeType(device, computeType string) string {
	computeType = strings.ToLower(strings.TrimSpace(computeType))
	if computeType == "" {
		computeType = ComputeFloat16
	}
	if device == DeviceCPU && computeType == ComputeFloat16 {
		return ComputeFloat32
	}
	return computeType
}

// Transcribe runs the engine against audioPath and returns its segments.
func (m *Model) Transcribe(ctx context.Context, audioPath string, opts Options) (Result, error) {
	if strings.TrimSpace(audioPath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "transcribe", "audio path required", nil)
	}
	workDir, err := os.MkdirTemp("", "batchscribe-whisper-*")
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, stageName, "transcribe", "create scratch directory", err)
	}
	defer os.RemoveAll(workDir)

	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	args := m.buildArgs(audioPath, workDir, opts)
	output, err := m.run(ctx, m.binary, args...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, services.Wrap(services.ErrTimeout, stageName, "transcribe", fmt.Sprintf("exceeded %s", m.cfg.Timeout), err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if unsupported := detectUnsupported(string(output)); unsupported != nil {
			return Result{}, unsupported
		}
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "transcribe", filepath.Base(m.binary), fmt.Errorf("%w: %s", err, tail(string(output), 400)))
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	result, err := LoadResult(filepath.Join(workDir, stem+".json"))
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "read output", "engine produced no usable json", err)
	}
	return result, nil
}

func (m *Model) buildArgs(audioPath, workDir string, opts Options) []string {
	args := make([]string, 0, 24)
	args = append(args, m.prefix...)
	args = append(args, audioPath)
	if m.cfg.ModelIsPath {
		args = append(args, "--model_directory", m.cfg.Model)
	} else {
		args = append(args, "--model", m.cfg.Model)
	}
	args = append(args,
		"--device", m.device,
		"--compute_type", m.computeType,
		"--output_dir", workDir,
		"--output_format", OutputFormat,
		"--verbose", "False",
	)
	return append(args, opts.Args()...)
}

var (
	unrecognizedPattern = regexp.MustCompile(`unrecognized arguments:\s*(\S+)`)
	invalidArgPattern   = regexp.MustCompile(`argument --([A-Za-z0-9_\-]+)(?:/[^:]*)?: (?:invalid|expected)[^\n]*`)
)

// detectUnsupported maps argparse rejections onto UnsupportedOptionError.
func detectUnsupported(output string) error {
	if match := unrecognizedPattern.FindStringSubmatch(output); match != nil {
		flag := strings.TrimLeft(match[1], "-")
		if flag != "" {
			return &services.UnsupportedOptionError{Option: flag, Detail: strings.TrimSpace(match[0])}
		}
	}
	if match := invalidArgPattern.FindStringSubmatch(output); match != nil {
		return &services.UnsupportedOptionError{Option: match[1], Detail: strings.TrimSpace(match[0])}
	}
	return nil
}

func tail(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return "…" + value[len(value)-limit:]
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}
