package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrNoDuration reports that ffprobe succeeded but exposed no usable duration.
var ErrNoDuration = errors.New("ffprobe: no usable duration")

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// CommandRunner executes ffprobe and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func inspect(ctx context.Context, run CommandRunner, binary, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	output, err := run(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, 0 when absent,
// or NaN when the field is not a number.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// BestDuration prefers the container duration and falls back to the longest
// audio stream. It returns 0 when neither is positive and finite.
func (r Result) BestDuration() float64 {
	if d := r.DurationSeconds(); validDuration(d) {
		return d
	}
	best := 0.0
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		if d := parseFloat(stream.Duration); validDuration(d) && d > best {
			best = d
		}
	}
	return best
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// Prober resolves chunk durations through ffprobe.
type Prober struct {
	binary  string
	timeout time.Duration
	run     CommandRunner
}

// ProberOption customizes a Prober.
type ProberOption func(*Prober)

// WithRunner overrides command execution, primarily for tests.
func WithRunner(run CommandRunner) ProberOption {
	return func(p *Prober) {
		if run != nil {
			p.run = run
		}
	}
}

// NewProber builds a Prober for the given binary. A zero timeout disables the per-call deadline.
func NewProber(binary string, timeout time.Duration, opts ...ProberOption) *Prober {
	p := &Prober{binary: binary, timeout: timeout, run: defaultRunner}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Inspect runs ffprobe against path under the prober's timeout and decodes
// the format and stream sections.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return inspect(ctx, p.run, p.binary, path)
}

// Duration returns the chunk's duration in seconds. ErrNoDuration is returned
// when ffprobe runs but reports nothing usable.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	result, err := p.Inspect(ctx, path)
	if err != nil {
		return 0, err
	}
	d := result.BestDuration()
	if d <= 0 {
		return 0, fmt.Errorf("%w (format.duration=%q)", ErrNoDuration, result.Format.Duration)
	}
	return d, nil
}

func validDuration(d float64) bool {
	return d > 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "N/A" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
