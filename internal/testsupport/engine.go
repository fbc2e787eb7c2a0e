package testsupport

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"batchscribe/internal/services/whisper"
)

// FakeResponse scripts the engine's answer for one chunk file.
type FakeResponse struct {
	Result whisper.Result
	Err    error
	// Panic, when non-nil, is raised instead of returning.
	Panic any
}

// FakeCall records one Transcribe invocation.
type FakeCall struct {
	Name    string
	Options whisper.Options
}

// FakeModel is a scripted transcription engine keyed by chunk base name.
// Unscripted chunks return an empty result.
type FakeModel struct {
	mu        sync.Mutex
	responses map[string][]FakeResponse
	calls     []FakeCall
}

// NewFakeModel returns an engine with no scripted responses.
func NewFakeModel() *FakeModel {
	return &FakeModel{responses: make(map[string][]FakeResponse)}
}

// On queues responses for the chunk named name. Each call consumes one
// response; the final response repeats.
func (f *FakeModel) On(name string, responses ...FakeResponse) *FakeModel {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[name] = append(f.responses[name], responses...)
	return f
}

// Segments is shorthand for a successful response.
func Segments(duration float64, segments ...whisper.Segment) FakeResponse {
	return FakeResponse{Result: whisper.Result{Segments: segments, DurationHint: duration}}
}

// Seg builds a whisper segment.
func Seg(start, end float64, text string) whisper.Segment {
	return whisper.Segment{Start: start, End: end, Text: text}
}

// Failure is shorthand for an error response.
func Failure(err error) FakeResponse {
	if err == nil {
		err = fmt.Errorf("transcription failed")
	}
	return FakeResponse{Err: err}
}

// Transcribe implements the engine contract used by the pipeline.
func (f *FakeModel) Transcribe(ctx context.Context, audioPath string, opts whisper.Options) (whisper.Result, error) {
	name := filepath.Base(audioPath)
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Name: name, Options: opts})
	queue := f.responses[name]
	var resp FakeResponse
	if len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			f.responses[name] = queue[1:]
		}
	}
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return whisper.Result{}, err
	}
	if resp.Panic != nil {
		panic(resp.Panic)
	}
	if resp.Err != nil {
		return whisper.Result{}, resp.Err
	}
	return resp.Result, nil
}

// Calls returns a copy of the recorded invocations.
func (f *FakeModel) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// FakeProber returns scripted durations keyed by chunk base name.
type FakeProber struct {
	Durations map[string]float64
	Errors    map[string]error
	calls     int
}

// Duration implements the pipeline's probe contract.
func (p *FakeProber) Duration(_ context.Context, path string) (float64, error) {
	p.calls++
	name := filepath.Base(path)
	if err, ok := p.Errors[name]; ok {
		return 0, err
	}
	if d, ok := p.Durations[name]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("no duration for %s", name)
}

// Calls returns the number of probes made.
func (p *FakeProber) Calls() int { return p.calls }
