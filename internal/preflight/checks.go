package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"batchscribe/internal/config"
	"batchscribe/internal/deps"
)

// MinFreeBytes is the free space below which a warning is reported.
const MinFreeBytes uint64 = 64 << 20

// CheckDirectoryAccess verifies that the directory exists and is readable,
// and writable when write is set.
func CheckDirectoryAccess(name, path string, write bool) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	mode := uint32(unix.R_OK | unix.X_OK)
	label := "read ok"
	if write {
		mode |= unix.W_OK
		label = "read/write ok"
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, label)}
}

// CheckWritableTarget verifies that path can be created or written. When it
// does not exist yet, its nearest existing ancestor must be writable.
func CheckWritableTarget(name, path string) Result {
	existing, err := nearestExisting(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	result := CheckDirectoryAccess(name, existing, true)
	if result.Passed && existing != path {
		result.Detail = fmt.Sprintf("%s (will be created under %s)", path, existing)
	}
	return result
}

// CheckFreeSpace warns when the filesystem holding path has less than min
// bytes available.
func CheckFreeSpace(name, path string, min uint64) Result {
	existing, err := nearestExisting(path)
	if err != nil {
		return Result{Name: name, Warning: true, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(existing, &stat); err != nil {
		return Result{Name: name, Warning: true, Detail: fmt.Sprintf("%s (error: statfs: %v)", existing, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s free on %s", humanize.IBytes(free), existing)
	if free < min {
		return Result{Name: name, Warning: true, Detail: detail + fmt.Sprintf(" (below %s)", humanize.IBytes(min))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckSystemDeps evaluates the external tools for the given config. The
// "deps" command and RunAll share it so the requirements list lives in one
// place.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	entry := cfg.Whisper.Command
	description := "Required for transcription"
	if cfg.Whisper.Launcher != "" {
		entry = cfg.Whisper.Launcher
		description = fmt.Sprintf("Launches %s for transcription", cfg.Whisper.Command)
	}
	statuses := deps.CheckBinaries([]deps.Requirement{{
		Name:        "Transcriber",
		Command:     entry,
		Description: description,
	}})
	if cfg.Probe.Enabled {
		probe := deps.CheckCompanion(entry, cfg.FFprobeBinary(), "Duration probe; falls back to engine metadata")
		probe.Name = "FFprobe"
		probe.Optional = true
		statuses = append(statuses, probe)
	}
	if cfg.Model.Device == "auto" || cfg.Model.Device == "cuda" {
		statuses = append(statuses, deps.CheckBinaries([]deps.Requirement{{
			Name:        "nvidia-smi",
			Command:     "nvidia-smi",
			Description: "Detects a CUDA device; CPU is used without it",
			Optional:    cfg.Model.Device == "auto",
		}})...)
	}
	return statuses
}

func nearestExisting(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for current := abs; ; current = filepath.Dir(current) {
		if _, err := os.Stat(current); err == nil {
			return current, nil
		}
		if parent := filepath.Dir(current); parent == current {
			return "", fmt.Errorf("no existing ancestor")
		}
	}
}
