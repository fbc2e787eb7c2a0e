package ledger_test

import (
	"context"
	"errors"
	"testing"

	"batchscribe/internal/ledger"
	"batchscribe/internal/logging"
	"batchscribe/internal/stitch"
)

func TestRecorderPersistsPipelineEvents(t *testing.T) {
	store := openStore(t)
	rec := ledger.NewRecorder(store, logging.NewNop(), "/logs/run.log")
	ctx := context.Background()

	chunks := []stitch.Chunk{{Index: 0, Name: "part001.mp3"}, {Index: 1, Name: "part002.mp3"}}
	rec.RunStarted(ctx, stitch.RunInfo{RunID: "run-xyz", BaseName: "talk", InputDir: "/in", OutputDir: "/out", Language: "en", Chunks: chunks})
	rec.ChunkFinished(ctx, stitch.ChunkReport{Chunk: chunks[0], Duration: 10, Source: stitch.SourceProbe, Segments: 2, FirstOrdinal: 1})
	rec.ChunkFinished(ctx, stitch.ChunkReport{Chunk: chunks[1], Offset: 10, Source: stitch.SourceZero, FirstOrdinal: 3, Err: errors.New("boom")})
	rec.RunFinished(ctx, &stitch.Summary{
		RunID:        "run-xyz",
		Phase:        stitch.PhaseDone,
		Chunks:       make([]stitch.ChunkReport, 2),
		Segments:     2,
		Failed:       1,
		TotalSeconds: 10,
		Outputs:      []string{"/out/talk.srt"},
	}, nil)

	run, err := store.GetRun(ctx, "run-xyz")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != ledger.RunPartial || run.LogPath != "/logs/run.log" || run.FinishedAt == nil {
		t.Fatalf("unexpected run: %+v", run)
	}
	records, err := store.ListChunks(ctx, "run-xyz")
	if err != nil {
		t.Fatalf("ListChunks: %v", err)
	}
	if len(records) != 2 || records[1].Status != ledger.ChunkFailed || records[1].ErrorMessage != "boom" || records[0].DurationSource != "probe" {
		t.Fatalf("unexpected chunk records: %+v", records)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name    string
		summary *stitch.Summary
		err     error
		want    ledger.RunStatus
	}{
		{name: "completed", summary: &stitch.Summary{Phase: stitch.PhaseDone}, want: ledger.RunCompleted},
		{name: "partial", summary: &stitch.Summary{Phase: stitch.PhaseDone, Failed: 2}, want: ledger.RunPartial},
		{name: "failed phase", summary: &stitch.Summary{Phase: stitch.PhaseFailed}, want: ledger.RunFailed},
		{name: "error", summary: &stitch.Summary{Phase: stitch.PhaseDone}, err: errors.New("x"), want: ledger.RunFailed},
		{name: "cancelled", summary: &stitch.Summary{Cancelled: true}, err: context.Canceled, want: ledger.RunCancelled},
		{name: "nil summary", err: errors.New("x"), want: ledger.RunFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ledger.StatusFor(tc.summary, tc.err); got != tc.want {
				t.Fatalf("StatusFor = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRecorderWithoutStoreIsNoop(t *testing.T) {
	rec := ledger.NewRecorder(nil, nil, "")
	rec.RunStarted(context.Background(), stitch.RunInfo{RunID: "x"})
	rec.ChunkFinished(context.Background(), stitch.ChunkReport{})
	rec.RunFinished(context.Background(), &stitch.Summary{}, nil)
}
