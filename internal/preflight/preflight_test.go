package preflight_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"batchscribe/internal/preflight"
	"batchscribe/internal/services"
	"batchscribe/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cases := []struct {
		name   string
		path   string
		passed bool
		detail string
	}{
		{"existing", dir, true, "read/write ok"},
		{"missing", filepath.Join(dir, "missing"), false, "does not exist"},
		{"file", file, false, "is not a directory"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := preflight.CheckDirectoryAccess("dir", tc.path, true)
			if result.Passed != tc.passed {
				t.Fatalf("passed = %v, want %v (%s)", result.Passed, tc.passed, result.Detail)
			}
			if !strings.Contains(result.Detail, tc.detail) {
				t.Fatalf("detail %q does not mention %q", result.Detail, tc.detail)
			}
			if !tc.passed && !result.Blocking() {
				t.Fatalf("failed access check should block")
			}
		})
	}
}

func TestCheckWritableTargetUsesExistingAncestor(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b")
	result := preflight.CheckWritableTarget("out", target)
	if !result.Passed {
		t.Fatalf("expected pass for creatable target: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created under "+dir) {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := preflight.CheckFreeSpace("space", dir, 1); !result.Passed {
		t.Fatalf("expected at least one free byte: %s", result.Detail)
	}
	result := preflight.CheckFreeSpace("space", dir, ^uint64(0))
	if result.Passed || !result.Warning {
		t.Fatalf("expected warning for impossible threshold, got %+v", result)
	}
	if result.Blocking() {
		t.Fatalf("free space warning must not block")
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	binDir := filepath.Join(testsupport.BaseDir(cfg), "bin")
	testsupport.WriteStubBinary(t, binDir, cfg.Whisper.Command, "exit 0\n")
	testsupport.WriteStubBinary(t, binDir, "ffprobe", "exit 0\n")
	t.Setenv("PATH", binDir)

	cfg.Probe.Enabled = true
	cfg.Probe.FFprobeBinary = "ffprobe"
	cfg.Model.Device = "auto"
	statuses := preflight.CheckSystemDeps(context.Background(), cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected transcriber, ffprobe, and nvidia-smi entries, got %+v", statuses)
	}
	if !statuses[0].Available || statuses[0].Optional {
		t.Fatalf("transcriber should be required and available: %+v", statuses[0])
	}
	if !statuses[1].Available || statuses[1].Command != filepath.Join(binDir, "ffprobe") {
		t.Fatalf("ffprobe should resolve beside the transcriber: %+v", statuses[1])
	}
	if statuses[2].Available || !statuses[2].Optional {
		t.Fatalf("nvidia-smi should be optional and missing: %+v", statuses[2])
	}

	cfg.Probe.Enabled = false
	cfg.Model.Device = "cpu"
	if statuses := preflight.CheckSystemDeps(context.Background(), cfg); len(statuses) != 1 {
		t.Fatalf("expected only the transcriber entry, got %+v", statuses)
	}
}

func TestRunAllAndErr(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	binDir := filepath.Join(testsupport.BaseDir(cfg), "bin")
	testsupport.WriteStubBinary(t, binDir, cfg.Whisper.Command, "exit 0\n")
	testsupport.PrependPath(t, binDir)
	input := t.TempDir()

	results := preflight.RunAll(context.Background(), cfg, input)
	if err := preflight.Err(results); err != nil {
		t.Fatalf("expected passing preflight, got %v (%+v)", err, results)
	}

	cfg.Whisper.Command = "batchscribe-missing-transcriber"
	results = preflight.RunAll(context.Background(), cfg, filepath.Join(input, "missing"))
	err := preflight.Err(results)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	for _, want := range []string{"Input directory", "Transcriber"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}
