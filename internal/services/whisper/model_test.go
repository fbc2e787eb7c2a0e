package whisper_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"batchscribe/internal/services"
	"batchscribe/internal/services/whisper"
)

func lookPathWith(available ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		if slices.Contains(available, name) {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

// jsonRunner writes payload into the --output_dir the engine was asked to use.
func jsonRunner(t *testing.T, payload string, captured *[]string) whisper.CommandRunner {
	t.Helper()
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*captured = append([]string{name}, args...)
		dir := argValue(args, "--output_dir")
		if dir == "" {
			t.Fatalf("missing --output_dir in %v", args)
		}
		audio := args[0]
		if !strings.HasSuffix(audio, ".mp3") {
			audio = args[1]
		}
		stem := strings.TrimSuffix(filepath.Base(audio), filepath.Ext(audio))
		if err := os.WriteFile(filepath.Join(dir, stem+".json"), []byte(payload), 0o644); err != nil {
			t.Fatalf("write payload: %v", err)
		}
		return nil, nil
	}
}

func argValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestLoadResolvesDeviceAndPrecision(t *testing.T) {
	modelDir := t.TempDir()
	tests := []struct {
		name        string
		device      string
		available   []string
		wantDevice  string
		wantCompute string
	}{
		{"auto with gpu", "auto", []string{whisper.DefaultCommand, whisper.GPUProbeCommand}, "cuda", "float16"},
		{"auto without gpu", "auto", []string{whisper.DefaultCommand}, "cpu", "float32"},
		{"explicit cpu", "cpu", []string{whisper.DefaultCommand, whisper.GPUProbeCommand}, "cpu", "float32"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := whisper.Config{Model: modelDir, ModelIsPath: true, Device: tc.device, ComputeType: "float16"}
			model, err := whisper.Load(context.Background(), cfg, whisper.WithLookPath(lookPathWith(tc.available...)))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if model.Device() != tc.wantDevice || model.ComputeType() != tc.wantCompute {
				t.Fatalf("got %s/%s, want %s/%s", model.Device(), model.ComputeType(), tc.wantDevice, tc.wantCompute)
			}
		})
	}
}

func TestLoadFailures(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing-model")
	file := filepath.Join(t.TempDir(), "model.bin")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	tests := []struct {
		name   string
		cfg    whisper.Config
		marker error
	}{
		{"command missing", whisper.Config{Command: "nope", Model: "medium"}, services.ErrExternalTool},
		{"model dir missing", whisper.Config{Model: missing, ModelIsPath: true}, services.ErrConfiguration},
		{"model path is file", whisper.Config{Model: file, ModelIsPath: true}, services.ErrConfiguration},
		{"model empty", whisper.Config{}, services.ErrConfiguration},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := whisper.Load(context.Background(), tc.cfg, whisper.WithLookPath(lookPathWith(whisper.DefaultCommand)))
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
		})
	}
}

func TestTranscribeParsesSegments(t *testing.T) {
	modelDir := t.TempDir()
	var captured []string
	payload := `{"text":"ab","language":"zh","segments":[{"id":0,"start":0.0,"end":2.0,"text":" a "},{"id":1,"start":3.0,"end":5.5,"text":"b"}]}`
	model, err := whisper.Load(context.Background(),
		whisper.Config{Model: modelDir, ModelIsPath: true, Device: "cuda", ComputeType: "float16"},
		whisper.WithLookPath(lookPathWith(whisper.DefaultCommand)),
		whisper.WithCommandRunner(jsonRunner(t, payload, &captured)),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	opts := whisper.Options{Language: "zh", BeamSize: 5, VAD: true, VADParams: whisper.VADParams{MinSilenceMS: 500}}
	result, err := model.Transcribe(context.Background(), "/tmp/chunks/part001.mp3", opts)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(result.Segments) != 2 || result.Segments[1].End != 5.5 || result.Segments[0].Text != " a " {
		t.Fatalf("unexpected segments: %+v", result.Segments)
	}
	if result.Language != "zh" || result.DurationHint != 0 {
		t.Fatalf("unexpected metadata: %+v", result)
	}

	wantPairs := map[string]string{
		"--model_directory":             modelDir,
		"--device":                      "cuda",
		"--compute_type":                "float16",
		"--output_format":               "json",
		"--language":                    "zh",
		"--beam_size":                   "5",
		"--vad_filter":                  "True",
		"--vad_min_silence_duration_ms": "500",
	}
	for flag, want := range wantPairs {
		if got := argValue(captured, flag); got != want {
			t.Fatalf("%s = %q, want %q (args %v)", flag, got, want, captured)
		}
	}
	if slices.Contains(captured, "--vad_speech_pad_ms") {
		t.Fatalf("unset VAD parameters should not be passed: %v", captured)
	}
}

func TestTranscribeUsesLauncherAndDurationHint(t *testing.T) {
	var captured []string
	payload := `{"segments":[],"info":{"duration":12.75,"language":"en"}}`
	model, err := whisper.Load(context.Background(),
		whisper.Config{Command: "whisper-ctranslate2", Launcher: "uvx", Model: "small", Device: "cpu"},
		whisper.WithLookPath(lookPathWith("uvx")),
		whisper.WithCommandRunner(jsonRunner(t, payload, &captured)),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	result, err := model.Transcribe(context.Background(), "part002.mp3", whisper.Options{Language: "auto"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if captured[0] != "/usr/bin/uvx" || captured[1] != "whisper-ctranslate2" || captured[2] != "part002.mp3" {
		t.Fatalf("unexpected launcher invocation: %v", captured)
	}
	if argValue(captured, "--model") != "small" {
		t.Fatalf("expected model name flag, got %v", captured)
	}
	if slices.Contains(captured, "--language") {
		t.Fatalf("auto language should not be passed: %v", captured)
	}
	if result.DurationHint != 12.75 || result.Language != "en" {
		t.Fatalf("unexpected metadata: %+v", result)
	}
}

func TestTranscribeReportsUnsupportedOption(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"unrecognized", "usage: whisper-ctranslate2 [-h] ...\nwhisper-ctranslate2: error: unrecognized arguments: --vad_speech_pad_ms 400\n", "vad_speech_pad_ms"},
		{"invalid value", "whisper-ctranslate2: error: argument --vad_filter: invalid str2bool value: 'True'\n", "vad_filter"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := func(context.Context, string, ...string) ([]byte, error) {
				return []byte(tc.output), errors.New("exit status 2")
			}
			model, err := whisper.Load(context.Background(), whisper.Config{Model: "small", Device: "cpu"},
				whisper.WithLookPath(lookPathWith(whisper.DefaultCommand)),
				whisper.WithCommandRunner(runner),
			)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			_, err = model.Transcribe(context.Background(), "part001.mp3", whisper.Options{})
			option, ok := services.UnsupportedOption(err)
			if !ok || option != tc.want {
				t.Fatalf("expected unsupported %q, got %v", tc.want, err)
			}
		})
	}
}

func TestTranscribeToolFailure(t *testing.T) {
	runner := func(context.Context, string, ...string) ([]byte, error) {
		return []byte("CUDA out of memory"), errors.New("exit status 1")
	}
	model, err := whisper.Load(context.Background(), whisper.Config{Model: "small", Device: "cpu"},
		whisper.WithLookPath(lookPathWith(whisper.DefaultCommand)),
		whisper.WithCommandRunner(runner),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = model.Transcribe(context.Background(), "part001.mp3", whisper.Options{})
	if !errors.Is(err, services.ErrExternalTool) || errors.Is(err, services.ErrUnsupportedOption) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Fatalf("expected tool output in error, got %v", err)
	}
}

func TestTranscribeMissingOutput(t *testing.T) {
	runner := func(context.Context, string, ...string) ([]byte, error) { return nil, nil }
	model, err := whisper.Load(context.Background(), whisper.Config{Model: "small", Device: "cpu"},
		whisper.WithLookPath(lookPathWith(whisper.DefaultCommand)),
		whisper.WithCommandRunner(runner),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := model.Transcribe(context.Background(), "part001.mp3", whisper.Options{}); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestModelGPUsListsAdapters(t *testing.T) {
	cfg := whisper.Config{Model: t.TempDir(), ModelIsPath: true, Device: "auto"}
	var captured []string
	runner := func(_ context.Context, name string, args ...string) ([]byte, error) {
		captured = append([]string{name}, args...)
		return []byte("NVIDIA GeForce RTX 3060\n\nNVIDIA A100\n"), nil
	}
	model, err := whisper.Load(context.Background(), cfg,
		whisper.WithLookPath(lookPathWith(whisper.DefaultCommand, whisper.GPUProbeCommand)),
		whisper.WithCommandRunner(runner))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	gpus := model.GPUs(context.Background())
	if len(gpus) != 2 || gpus[0] != "NVIDIA GeForce RTX 3060" || gpus[1] != "NVIDIA A100" {
		t.Fatalf("gpus = %v", gpus)
	}
	if len(captured) == 0 || captured[0] != "/usr/bin/"+whisper.GPUProbeCommand {
		t.Fatalf("unexpected command %v", captured)
	}
}

func TestModelGPUsWithoutNvidiaSMI(t *testing.T) {
	cfg := whisper.Config{Model: t.TempDir(), ModelIsPath: true, Device: "cpu"}
	runner := func(context.Context, string, ...string) ([]byte, error) {
		t.Fatal("no command should run without nvidia-smi")
		return nil, nil
	}
	model, err := whisper.Load(context.Background(), cfg,
		whisper.WithLookPath(lookPathWith(whisper.DefaultCommand)),
		whisper.WithCommandRunner(runner))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if gpus := model.GPUs(context.Background()); gpus != nil {
		t.Fatalf("gpus = %v, want nil", gpus)
	}
}
