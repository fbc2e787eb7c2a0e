package stitch_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"batchscribe/internal/services"
	"batchscribe/internal/stitch"
	"batchscribe/internal/subtitles"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestWriterEmitsBothFormats(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := stitch.OpenWriter(dir, "talk", stitch.Formats{Text: true, SRT: true})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	next, err := w.Emit([]stitch.GlobalSegment{
		{Ordinal: 1, Start: 0, End: 2, Text: " a "},
		{Ordinal: 2, Start: 3661.9995, End: 3663, Text: "b"},
	}, 1)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if next != 3 || w.Written() != 2 {
		t.Fatalf("counter=%d written=%d", next, w.Written())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close should be a no-op: %v", err)
	}

	if got := readFile(t, filepath.Join(dir, "talk.txt")); got != "a\nb\n" {
		t.Fatalf("txt = %q", got)
	}
	wantSRT := "1\n00:00:00,000 --> 00:00:02,000\na\n\n2\n01:01:02,000 --> 01:01:03,000\nb\n\n"
	if got := readFile(t, filepath.Join(dir, "talk.srt")); got != wantSRT {
		t.Fatalf("srt = %q", got)
	}
	paths := w.Paths()
	if len(paths) != 2 || filepath.Ext(paths[0]) != ".txt" || filepath.Ext(paths[1]) != ".srt" {
		t.Fatalf("unexpected paths %v", paths)
	}
}

func TestWriterTruncatesExisting(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "talk.srt")
	if err := os.WriteFile(target, []byte("stale content that is longer than the new output\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	w, err := stitch.OpenWriter(dir, "talk", stitch.Formats{SRT: true})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if _, err := w.Emit([]stitch.GlobalSegment{{Ordinal: 1, Start: 1, End: 2, Text: "x"}}, 1); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := readFile(t, target); got != "1\n00:00:01,000 --> 00:00:02,000\nx\n\n" {
		t.Fatalf("srt = %q", got)
	}
}

func TestWriterLeavesDisabledFormatUntouched(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "talk.txt")
	if err := os.WriteFile(txt, []byte("keep me\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before, err := os.Stat(txt)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	w, err := stitch.OpenWriter(dir, "talk", stitch.Formats{SRT: true})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if _, err := w.Emit([]stitch.GlobalSegment{{Ordinal: 1, Start: 0, End: 1, Text: "y"}}, 1); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := readFile(t, txt); got != "keep me\n" {
		t.Fatalf("disabled txt modified: %q", got)
	}
	after, err := os.Stat(txt)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Fatalf("disabled txt mtime changed")
	}
}

func TestWriterCounterAdvancesWithoutSRT(t *testing.T) {
	w, err := stitch.OpenWriter(t.TempDir(), "talk", stitch.Formats{Text: true})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	defer w.Close()
	next, err := w.Emit([]stitch.GlobalSegment{
		{Ordinal: 7, Text: "a"},
		{Ordinal: 8, Text: "b"},
		{Ordinal: 9, Text: "c"},
	}, 7)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if next != 10 {
		t.Fatalf("counter = %d, want 10", next)
	}
}

func TestWriterNumbersCuesFromOrdinal(t *testing.T) {
	dir := t.TempDir()
	w, err := stitch.OpenWriter(dir, "talk", stitch.Formats{SRT: true})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	next, err := w.Emit([]stitch.GlobalSegment{
		{Ordinal: 42, Start: 0, End: 1, Text: "first"},
		{Ordinal: 43, Start: 1, End: 2, Text: "second"},
	}, 42)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if next != 44 {
		t.Fatalf("next = %d, want 44", next)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := "42\n00:00:00,000 --> 00:00:01,000\nfirst\n\n43\n00:00:01,000 --> 00:00:02,000\nsecond\n\n"
	if got := readFile(t, filepath.Join(dir, "talk.srt")); got != want {
		t.Fatalf("srt = %q", got)
	}
}

func TestWriterRejectsOrdinalOutOfSequence(t *testing.T) {
	dir := t.TempDir()
	w, err := stitch.OpenWriter(dir, "talk", stitch.Formats{Text: true, SRT: true})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	next, err := w.Emit([]stitch.GlobalSegment{
		{Ordinal: 1, Text: "one"},
		{Ordinal: 3, Text: "three"},
	}, 1)
	if err == nil {
		t.Fatal("expected error for ordinal gap")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if next != 1 || w.Written() != 0 {
		t.Fatalf("next=%d written=%d, want nothing emitted", next, w.Written())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "talk.txt")); got != "" {
		t.Fatalf("txt = %q, want empty", got)
	}
}

func TestWriterKeepsOneLinePerSegment(t *testing.T) {
	dir := t.TempDir()
	w, err := stitch.OpenWriter(dir, "talk", stitch.Formats{Text: true, SRT: true})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if _, err := w.Emit([]stitch.GlobalSegment{{Ordinal: 1, Start: 0, End: 1, Text: "line one\n\nline two"}}, 1); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "talk.txt")); got != "line one line two\n" {
		t.Fatalf("txt = %q", got)
	}
	cues, err := subtitles.ParseFile(filepath.Join(dir, "talk.srt"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(cues) != 1 || cues[0].Text != "line one line two" {
		t.Fatalf("cues = %+v", cues)
	}
}

func TestWriterRejectsEmitAfterClose(t *testing.T) {
	w, err := stitch.OpenWriter(t.TempDir(), "talk", stitch.Formats{Text: true})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := w.Emit([]stitch.GlobalSegment{{Ordinal: 1, Text: "late"}}, 1); err == nil {
		t.Fatal("expected error emitting after close")
	}
}

func TestOpenWriterRequiresBaseName(t *testing.T) {
	if _, err := stitch.OpenWriter(t.TempDir(), "  ", stitch.Formats{Text: true}); err == nil {
		t.Fatal("expected error for blank base name")
	}
}
