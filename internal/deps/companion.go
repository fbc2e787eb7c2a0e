package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckCompanion resolves a helper binary that may ship beside primary.
//
// Self-contained installs of the transcription tool (a virtualenv or a
// bundled release) often carry their own ffprobe next to the main
// executable. That copy wins; otherwise companion is resolved from PATH.
// An absolute or relative companion path is checked as given.
func CheckCompanion(primary, companion, description string) Status {
	companion = strings.TrimSpace(companion)
	result := Status{
		Name:        filepath.Base(companion),
		Command:     companion,
		Description: description,
	}
	if companion == "" {
		result.Detail = "command not configured"
		return result
	}

	if !strings.ContainsRune(companion, filepath.Separator) {
		if primaryBinary := strings.TrimSpace(primary); primaryBinary != "" {
			if resolved, err := exec.LookPath(primaryBinary); err == nil {
				candidate := filepath.Join(filepath.Dir(resolved), executableName(companion))
				if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
					result.Command = candidate
					result.Available = true
					return result
				}
			}
		}
	}

	if path, err := exec.LookPath(companion); err == nil {
		result.Command = path
		result.Available = true
		return result
	}

	result.Detail = fmt.Sprintf("binary %q not found", companion)
	return result
}

func executableName(base string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(base, ".exe") {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
