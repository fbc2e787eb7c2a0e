package stitch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogReporterSamplesProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	reporter := NewLogReporter(logger, 50)

	chunks := make([]Chunk, 10)
	reporter.RunStarted(context.Background(), RunInfo{Chunks: chunks})
	for i := range chunks {
		reporter.ChunkStarted(context.Background(), chunks[i], len(chunks))
		reporter.ChunkFinished(context.Background(), ChunkReport{Chunk: chunks[i], Offset: float64(i), Duration: 1})
	}
	reporter.RunFinished(context.Background(), &Summary{}, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 sampled progress lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[2], `"chunks_done":10`) || !strings.Contains(lines[2], `"timeline":"10s"`) {
		t.Fatalf("unexpected final progress line: %s", lines[2])
	}
}

func TestBarReporterToleratesEventsWithoutRun(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewBarReporter(&buf)
	reporter.ChunkStarted(context.Background(), Chunk{Name: "part001.mp3"}, 1)
	reporter.ChunkFinished(context.Background(), ChunkReport{})
	reporter.RunFinished(context.Background(), nil, errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("expected no output before RunStarted, got %q", buf.String())
	}
}

func TestBarReporterCountsFailures(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewBarReporter(&buf)
	reporter.RunStarted(context.Background(), RunInfo{Chunks: make([]Chunk, 2)})
	reporter.ChunkFinished(context.Background(), ChunkReport{Err: errors.New("x")})
	reporter.ChunkFinished(context.Background(), ChunkReport{})
	if got := reporter.describe("done"); got != "done (1 failed)" {
		t.Fatalf("describe = %q", got)
	}
	reporter.RunFinished(context.Background(), &Summary{}, nil)
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0s"},
		{-5, "0s"},
		{59.6, "1m0s"},
		{3725, "1h2m5s"},
	}
	for _, tc := range tests {
		if got := formatClock(tc.seconds); got != tc.want {
			t.Fatalf("formatClock(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
