package stitch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"batchscribe/internal/services"
)

// DefaultPattern matches the chunk files produced by the splitting step.
const DefaultPattern = "part*.mp3"

// Chunk is one pre-split audio file. Index is its 0-based position in
// lexicographic filename order.
type Chunk struct {
	Index int
	Path  string
	Name  string
	Size  int64
}

// Discover returns the files in dir whose base name matches pattern, sorted
// by name. A missing directory is a validation error and an empty match set
// is ErrNotFound; both are fatal for a run.
func Discover(dir, pattern string) ([]Chunk, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrValidation, "discovery", "locate chunks", "input directory is required", nil)
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, services.Wrap(services.ErrValidation, "discovery", "locate chunks", fmt.Sprintf("invalid pattern %q", pattern), err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrValidation, "discovery", "locate chunks", fmt.Sprintf("input directory %s does not exist", dir), err)
		}
		return nil, services.Wrap(services.ErrValidation, "discovery", "locate chunks", fmt.Sprintf("stat %s", dir), err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "discovery", "locate chunks", fmt.Sprintf("%s is not a directory", dir), nil)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "discovery", "locate chunks", fmt.Sprintf("read %s", dir), err)
	}

	// os.ReadDir sorts by filename.
	chunks := make([]Chunk, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if ok, _ := filepath.Match(pattern, name); !ok {
			continue
		}
		path := filepath.Join(dir, name)
		stat, err := os.Stat(path)
		if err != nil || stat.IsDir() {
			continue
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Path:  path,
			Name:  name,
			Size:  stat.Size(),
		})
	}
	if len(chunks) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "discovery", "locate chunks", fmt.Sprintf("no files matching %s in %s", pattern, dir), nil)
	}
	return chunks, nil
}
