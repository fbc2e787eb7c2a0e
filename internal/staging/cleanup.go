package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"batchscribe/internal/services"
)

// ErrUnsafeRemoval marks a refusal to delete a directory that holds output
// or is a filesystem root.
var ErrUnsafeRemoval = errors.New("unsafe removal")

// RemovalResult describes a completed input directory removal.
type RemovalResult struct {
	Path  string
	Files int
	Bytes int64
}

// RemoveInputDir deletes dir and everything under it. It refuses when dir is
// a root, the user's home directory, the working directory, or an ancestor
// of (or equal to) any path in protect.
func RemoveInputDir(dir string, protect ...string) (RemovalResult, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return RemovalResult{}, services.Wrap(ErrUnsafeRemoval, "cleanup", "remove input dir", "directory is empty", nil)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return RemovalResult{}, fmt.Errorf("resolve %s: %w", dir, err)
	}
	if err := checkRemovable(abs, protect); err != nil {
		return RemovalResult{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return RemovalResult{Path: abs}, nil
		}
		return RemovalResult{}, err
	}
	if !info.IsDir() {
		return RemovalResult{}, services.Wrap(services.ErrValidation, "cleanup", "remove input dir", fmt.Sprintf("%s is not a directory", abs), nil)
	}

	files, size := dirUsage(abs)
	if err := os.RemoveAll(abs); err != nil {
		return RemovalResult{}, fmt.Errorf("remove %s: %w", abs, err)
	}
	return RemovalResult{Path: abs, Files: files, Bytes: size}, nil
}

func checkRemovable(abs string, protect []string) error {
	refuse := func(reason string) error {
		return services.Wrap(ErrUnsafeRemoval, "cleanup", "remove input dir", fmt.Sprintf("%s %s", abs, reason), nil)
	}
	if filepath.Dir(abs) == abs {
		return refuse("is a filesystem root")
	}
	if home, err := os.UserHomeDir(); err == nil && sameDir(home, abs) {
		return refuse("is the home directory")
	}
	if wd, err := os.Getwd(); err == nil && contains(abs, wd) {
		return refuse("contains the working directory")
	}
	for _, path := range protect {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		target, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if contains(abs, target) {
			return refuse(fmt.Sprintf("contains %s", target))
		}
	}
	return nil
}

func sameDir(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// contains reports whether child equals parent or lies beneath it.
func contains(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func dirUsage(path string) (int, int64) {
	var (
		files int
		size  int64
	)
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best effort
		}
		if !info.IsDir() {
			files++
			size += info.Size()
		}
		return nil
	})
	return files, size
}
