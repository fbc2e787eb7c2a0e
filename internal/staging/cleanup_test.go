package staging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRemoveInputDirRemovesChunks(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "temp_audio")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"part000.mp3", "part001.mp3"} {
		if err := os.WriteFile(filepath.Join(input, name), []byte("abcd"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	result, err := RemoveInputDir(input, filepath.Join(tmpDir, "transcripts"))
	if err != nil {
		t.Fatalf("RemoveInputDir: %v", err)
	}
	if result.Files != 2 || result.Bytes != 8 {
		t.Fatalf("unexpected usage: %+v", result)
	}
	if _, err := os.Stat(input); !os.IsNotExist(err) {
		t.Fatalf("expected input dir removed, stat err=%v", err)
	}
}

func TestRemoveInputDirMissingIsNoop(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")
	result, err := RemoveInputDir(missing)
	if err != nil {
		t.Fatalf("expected nil error for missing dir, got %v", err)
	}
	if result.Files != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRemoveInputDirRefusesProtectedPaths(t *testing.T) {
	tmpDir := t.TempDir()
	output := filepath.Join(tmpDir, "transcripts")
	if err := os.MkdirAll(output, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	tests := []struct {
		name    string
		dir     string
		protect []string
	}{
		{name: "empty", dir: "  "},
		{name: "root", dir: string(filepath.Separator)},
		{name: "contains output", dir: tmpDir, protect: []string{output}},
		{name: "is output", dir: output, protect: []string{output}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := RemoveInputDir(tc.dir, tc.protect...)
			if !errors.Is(err, ErrUnsafeRemoval) {
				t.Fatalf("expected ErrUnsafeRemoval, got %v", err)
			}
		})
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("protected dir should remain: %v", err)
	}
}

func TestRemoveInputDirRefusesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if _, err := RemoveInputDir(home); !errors.Is(err, ErrUnsafeRemoval) {
		t.Fatalf("expected home refusal, got %v", err)
	}
}

func TestRemoveInputDirRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "part000.mp3")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := RemoveInputDir(file); err == nil {
		t.Fatal("expected error removing a plain file")
	}
}

func TestContains(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		parent, child string
		want          bool
	}{
		{sep + "a", sep + "a", true},
		{sep + "a", filepath.Join(sep, "a", "b"), true},
		{sep + "a", filepath.Join(sep, "ab"), false},
		{filepath.Join(sep, "a", "b"), sep + "a", false},
		{sep + "a", filepath.Join(sep, "a", "..b"), true},
	}
	for _, tc := range tests {
		if got := contains(tc.parent, tc.child); got != tc.want {
			t.Fatalf("contains(%q, %q) = %v, want %v", tc.parent, tc.child, got, tc.want)
		}
	}
}
