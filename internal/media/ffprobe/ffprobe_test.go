package ffprobe

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Duration: "10.5"},
			{CodecType: "data"},
		},
		Format: Format{Duration: "10.512", Size: "1000"},
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 10.512 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.BestDuration() != 10.512 {
		t.Fatalf("expected container duration preferred, got %v", result.BestDuration())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestBestDurationFallsBackToAudioStream(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Duration: "4.0"},
			{CodecType: "audio", Duration: "6.25"},
			{CodecType: "video", Duration: "99"},
		},
		Format: Format{Duration: "N/A"},
	}
	if got := result.BestDuration(); got != 6.25 {
		t.Fatalf("BestDuration = %v, want 6.25", got)
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.BestDuration() != 0 {
		t.Fatalf("expected best duration 0, got %v", result.BestDuration())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestProberDuration(t *testing.T) {
	var gotArgs []string
	runner := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(`{"format":{"duration":"12.5"},"streams":[{"codec_type":"audio"}]}`), nil
	}
	prober := NewProber("ffprobe-custom", 0, WithRunner(runner))
	d, err := prober.Duration(context.Background(), "/tmp/part001.mp3")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if d != 12.5 {
		t.Fatalf("duration = %v, want 12.5", d)
	}
	if gotArgs[0] != "ffprobe-custom" || gotArgs[len(gotArgs)-1] != "/tmp/part001.mp3" {
		t.Fatalf("unexpected invocation: %v", gotArgs)
	}
}

func TestProberDurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
		check  func(error) bool
	}{
		{"zero duration", `{"format":{"duration":"0"}}`, nil, func(err error) bool { return errors.Is(err, ErrNoDuration) }},
		{"bad json", `not json`, nil, func(err error) bool { return strings.Contains(err.Error(), "ffprobe parse") }},
		{"command failure", `No such file`, errors.New("exit status 1"), func(err error) bool { return strings.Contains(err.Error(), "No such file") }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := func(context.Context, string, ...string) ([]byte, error) {
				return []byte(tc.output), tc.err
			}
			_, err := NewProber("", 0, WithRunner(runner)).Duration(context.Background(), "chunk.mp3")
			if err == nil || !tc.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	runner := func(context.Context, string, ...string) ([]byte, error) {
		t.Fatal("ffprobe should not run for an empty path")
		return nil, nil
	}
	if _, err := NewProber("", 0, WithRunner(runner)).Inspect(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestInspectReportsStreamsAndSize(t *testing.T) {
	var gotName string
	runner := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName = name
		if _, ok := ctx.Deadline(); !ok {
			t.Fatal("expected the timeout to set a deadline")
		}
		return []byte(`{"format":{"duration":"8","size":"2048"},"streams":[{"codec_type":"audio"},{"codec_type":"video"}]}`), nil
	}
	result, err := NewProber("", time.Minute, WithRunner(runner)).Inspect(context.Background(), "part001.m4a")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if gotName != "ffprobe" {
		t.Fatalf("binary = %q, want ffprobe default", gotName)
	}
	if result.AudioStreamCount() != 1 || result.SizeBytes() != 2048 || result.BestDuration() != 8 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
