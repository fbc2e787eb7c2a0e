package stitch

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"batchscribe/internal/services"
	"batchscribe/internal/subtitles"
)

// Formats selects the transcript files a run produces.
type Formats struct {
	Text bool
	SRT  bool
}

// Any reports whether at least one format is enabled.
func (f Formats) Any() bool { return f.Text || f.SRT }

// Writer streams global segments into the enabled transcript files.
type Writer struct {
	txt     *outputFile
	srt     *outputFile
	closed  bool
	written int
}

type outputFile struct {
	path string
	file *os.File
	buf  *bufio.Writer
}

// OpenWriter creates dir and opens <base>.txt and/or <base>.srt inside it,
// truncating any previous content. Files for disabled formats are left alone.
func OpenWriter(dir, base string, formats Formats) (*Writer, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, services.Wrap(services.ErrValidation, "finalize", "open outputs", "base name is required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "finalize", "open outputs", fmt.Sprintf("create %s", dir), err)
	}
	w := &Writer{}
	if formats.Text {
		f, err := createOutput(filepath.Join(dir, base+".txt"))
		if err != nil {
			return nil, err
		}
		w.txt = f
	}
	if formats.SRT {
		f, err := createOutput(filepath.Join(dir, base+".srt"))
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		w.srt = f
	}
	return w, nil
}

func createOutput(path string) (*outputFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "finalize", "open outputs", fmt.Sprintf("open %s", path), err)
	}
	return &outputFile{path: path, file: file, buf: bufio.NewWriter(file)}, nil
}

// Paths lists the files this writer owns, txt first.
func (w *Writer) Paths() []string {
	var paths []string
	for _, f := range []*outputFile{w.txt, w.srt} {
		if f != nil {
			paths = append(paths, f.path)
		}
	}
	return paths
}

// Written returns the number of segments emitted so far.
func (w *Writer) Written() int { return w.written }

// Emit writes segments in order. Each cue is numbered by the segment's
// Ordinal, which must continue the sequence starting at next; a gap or repeat
// is rejected before anything is written. It returns the ordinal that follows
// the last segment. Numbering moves whether or not the SRT stream is enabled.
func (w *Writer) Emit(segments []GlobalSegment, next int) (int, error) {
	if w.closed {
		return next, errors.New("writer closed")
	}
	for i, seg := range segments {
		if seg.Ordinal != next+i {
			msg := fmt.Sprintf("segment ordinal %d out of sequence, expected %d", seg.Ordinal, next+i)
			return next, services.Wrap(services.ErrValidation, string(PhaseProcessingChunk), "emit", msg, nil)
		}
	}
	for _, seg := range segments {
		text := collapseSpace(seg.Text)
		if w.txt != nil {
			if _, err := w.txt.buf.WriteString(text + "\n"); err != nil {
				return next, fmt.Errorf("write %s: %w", w.txt.path, err)
			}
		}
		if w.srt != nil {
			cue := subtitles.Cue{Index: seg.Ordinal, Start: seg.Start, End: seg.End, Text: text}
			if err := subtitles.WriteCue(w.srt.buf, cue); err != nil {
				return next, fmt.Errorf("write %s: %w", w.srt.path, err)
			}
		}
		next = seg.Ordinal + 1
		w.written++
	}
	return next, nil
}

// Flush pushes buffered output to the files.
func (w *Writer) Flush() error {
	if w.closed {
		return nil
	}
	var errs []error
	for _, f := range []*outputFile{w.txt, w.srt} {
		if f == nil {
			continue
		}
		if err := f.buf.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", f.path, err))
		}
	}
	return errors.Join(errs...)
}

// Close flushes and closes every open file. Calling it again is a no-op.
func (w *Writer) Close() error {
	if w == nil || w.closed {
		return nil
	}
	err := w.Flush()
	w.closed = true
	errs := []error{err}
	for _, f := range []*outputFile{w.txt, w.srt} {
		if f == nil {
			continue
		}
		if cerr := f.file.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", f.path, cerr))
		}
	}
	return errors.Join(errs...)
}
