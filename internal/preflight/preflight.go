package preflight

import (
	"context"
	"fmt"
	"strings"

	"batchscribe/internal/config"
	"batchscribe/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string

	// Warning marks a failed check that does not block a run.
	Warning bool
}

// Blocking reports whether the result should stop a run.
func (r Result) Blocking() bool { return !r.Passed && !r.Warning }

// RunAll executes the checks a transcription run needs.
func RunAll(ctx context.Context, cfg *config.Config, inputDir string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Input directory", inputDir, false),
		CheckWritableTarget("Output directory", cfg.Paths.OutputDir),
		CheckFreeSpace("Output free space", cfg.Paths.OutputDir, MinFreeBytes),
	}
	for _, status := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Warning: status.Optional, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command
		}
		results = append(results, result)
	}
	return results
}

// Err folds blocking results into a single configuration error.
func Err(results []Result) error {
	var failures []string
	for _, r := range results {
		if r.Blocking() {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check environment", strings.Join(failures, "; "), nil)
}
