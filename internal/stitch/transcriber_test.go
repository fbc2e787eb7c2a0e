package stitch_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"batchscribe/internal/logging"
	"batchscribe/internal/services"
	"batchscribe/internal/services/whisper"
	"batchscribe/internal/stitch"
	"batchscribe/internal/testsupport"
)

func vadOptions() whisper.Options {
	return whisper.Options{
		Language: "zh",
		BeamSize: 5,
		VAD:      true,
		VADParams: whisper.VADParams{
			MinSilenceMS: 500,
			SpeechPadMS:  400,
		},
	}
}

func TestTranscriberNormalizesSegments(t *testing.T) {
	engine := testsupport.NewFakeModel().On("part001.mp3", testsupport.Segments(12,
		testsupport.Seg(0, 2, "  hello "),
		testsupport.Seg(2, 3, "   "),
		testsupport.Seg(4, 3.5, "backwards"),
		testsupport.Seg(math.NaN(), 5, "nan"),
		testsupport.Seg(6, math.Inf(1), "inf"),
		testsupport.Seg(7, 8, "line one\n\nline two"),
		testsupport.Seg(8, 9, "\n\t\r\n"),
	))
	tr := stitch.NewTranscriber(engine, vadOptions(), logging.NewNop())

	result := tr.Transcribe(context.Background(), stitch.Chunk{Name: "part001.mp3", Path: "/in/part001.mp3"})
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	want := []stitch.Segment{
		{Start: 0, End: 2, Text: "hello"},
		{Start: 4, End: 4, Text: "backwards"},
		{Start: 7, End: 8, Text: "line one line two"},
	}
	if len(result.Segments) != len(want) {
		t.Fatalf("got %+v, want %+v", result.Segments, want)
	}
	for i := range want {
		if result.Segments[i] != want[i] {
			t.Fatalf("segment %d = %+v, want %+v", i, result.Segments[i], want[i])
		}
	}
	if result.Discarded != 4 {
		t.Fatalf("expected 4 discarded, got %d", result.Discarded)
	}
	if result.DurationHint != 12 {
		t.Fatalf("expected hint 12, got %v", result.DurationHint)
	}
}

func TestTranscriberIsolatesErrors(t *testing.T) {
	engine := testsupport.NewFakeModel().On("part001.mp3", testsupport.Failure(errors.New("decoder crashed")))
	tr := stitch.NewTranscriber(engine, vadOptions(), logging.NewNop())

	result := tr.Transcribe(context.Background(), stitch.Chunk{Name: "part001.mp3", Path: "/in/part001.mp3"})
	if result.Err == nil {
		t.Fatal("expected error")
	}
	if len(result.Segments) != 0 || result.DurationHint != 0 || result.Retried {
		t.Fatalf("failed chunk must have no segments: %+v", result)
	}
	if len(engine.Calls()) != 1 {
		t.Fatalf("plain errors must not be retried, calls=%d", len(engine.Calls()))
	}
}

func TestTranscriberRecoversPanic(t *testing.T) {
	engine := testsupport.NewFakeModel().On("part001.mp3", testsupport.FakeResponse{Panic: "out of memory"})
	tr := stitch.NewTranscriber(engine, vadOptions(), logging.NewNop())

	result := tr.Transcribe(context.Background(), stitch.Chunk{Name: "part001.mp3", Path: "/in/part001.mp3"})
	if !errors.Is(result.Err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", result.Err)
	}
	if len(result.Segments) != 0 {
		t.Fatalf("expected no segments, got %+v", result.Segments)
	}
}

func TestTranscriberRetriesWithoutUnsupportedOption(t *testing.T) {
	rejected := &services.UnsupportedOptionError{Option: whisper.OptionVADSpeechPad}
	engine := testsupport.NewFakeModel().
		On("part001.mp3", testsupport.Failure(rejected), testsupport.Segments(5, testsupport.Seg(0, 1, "ok"))).
		On("part002.mp3", testsupport.Segments(5, testsupport.Seg(0, 1, "next")))
	tr := stitch.NewTranscriber(engine, vadOptions(), logging.NewNop())

	first := tr.Transcribe(context.Background(), stitch.Chunk{Name: "part001.mp3", Path: "/in/part001.mp3"})
	if first.Err != nil {
		t.Fatalf("retry should succeed: %v", first.Err)
	}
	if !first.Retried || first.DroppedOption != whisper.OptionVADSpeechPad {
		t.Fatalf("expected retry without %s: %+v", whisper.OptionVADSpeechPad, first)
	}
	if len(first.Segments) != 1 || first.Segments[0].Text != "ok" {
		t.Fatalf("unexpected segments: %+v", first.Segments)
	}

	second := tr.Transcribe(context.Background(), stitch.Chunk{Name: "part002.mp3", Path: "/in/part002.mp3"})
	if second.Err != nil || second.Retried {
		t.Fatalf("negotiated options should carry over: %+v", second)
	}

	calls := engine.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 engine calls, got %d", len(calls))
	}
	if calls[0].Options.VADParams.SpeechPadMS != 400 {
		t.Fatalf("first attempt should use full options: %+v", calls[0].Options)
	}
	for _, call := range calls[1:] {
		if !call.Options.VAD || call.Options.VADParams.SpeechPadMS != 0 || call.Options.VADParams.MinSilenceMS != 500 {
			t.Fatalf("retry should drop only the speech pad: %+v", call.Options)
		}
	}
	if tr.Options().VADParams.SpeechPadMS != 0 {
		t.Fatalf("transcriber should remember the dropped option")
	}
}

func TestTranscriberRetriesOnlyOnce(t *testing.T) {
	engine := testsupport.NewFakeModel().On("part001.mp3",
		testsupport.Failure(&services.UnsupportedOptionError{Option: whisper.OptionVADFilter}),
		testsupport.Failure(&services.UnsupportedOptionError{Option: whisper.OptionBeamSize}),
	)
	tr := stitch.NewTranscriber(engine, vadOptions(), logging.NewNop())

	result := tr.Transcribe(context.Background(), stitch.Chunk{Name: "part001.mp3", Path: "/in/part001.mp3"})
	if !errors.Is(result.Err, services.ErrUnsupportedOption) {
		t.Fatalf("expected unsupported option error, got %v", result.Err)
	}
	if !result.Retried || len(engine.Calls()) != 2 {
		t.Fatalf("expected exactly one retry, calls=%d", len(engine.Calls()))
	}
	if engine.Calls()[1].Options.VAD {
		t.Fatalf("dropping vad_filter should disable VAD entirely")
	}
}

func TestTranscriberUndroppableOptionFails(t *testing.T) {
	engine := testsupport.NewFakeModel().On("part001.mp3",
		testsupport.Failure(&services.UnsupportedOptionError{Option: whisper.OptionLanguage}),
	)
	tr := stitch.NewTranscriber(engine, vadOptions(), logging.NewNop())

	result := tr.Transcribe(context.Background(), stitch.Chunk{Name: "part001.mp3", Path: "/in/part001.mp3"})
	if result.Err == nil || result.Retried {
		t.Fatalf("language cannot be dropped: %+v", result)
	}
	if len(engine.Calls()) != 1 {
		t.Fatalf("expected no retry, calls=%d", len(engine.Calls()))
	}
}

func TestTranscriberWithoutEngine(t *testing.T) {
	tr := stitch.NewTranscriber(nil, whisper.Options{}, nil)
	result := tr.Transcribe(context.Background(), stitch.Chunk{Name: "x.mp3"})
	if !errors.Is(result.Err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", result.Err)
	}
}
