package stitch

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// BarReporter draws a terminal progress bar with one step per chunk.
type BarReporter struct {
	out    io.Writer
	bar    *progressbar.ProgressBar
	failed int
}

// NewBarReporter renders to out.
func NewBarReporter(out io.Writer) *BarReporter {
	if out == nil {
		out = os.Stderr
	}
	return &BarReporter{out: out}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (r *BarReporter) RunStarted(_ context.Context, info RunInfo) {
	r.failed = 0
	r.bar = progressbar.NewOptions(len(info.Chunks),
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription("transcribing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(r.out) }),
	)
}

func (r *BarReporter) ChunkStarted(_ context.Context, chunk Chunk, _ int) {
	if r.bar == nil {
		return
	}
	r.bar.Describe(r.describe(chunk.Name))
}

func (r *BarReporter) ChunkFinished(_ context.Context, report ChunkReport) {
	if r.bar == nil {
		return
	}
	if report.Failed() {
		r.failed++
	}
	_ = r.bar.Add(1)
}

func (r *BarReporter) RunFinished(_ context.Context, summary *Summary, err error) {
	if r.bar == nil {
		return
	}
	if err != nil || (summary != nil && summary.Cancelled) {
		_ = r.bar.Exit()
		fmt.Fprintln(r.out)
		return
	}
	r.bar.Describe(r.describe("done"))
	_ = r.bar.Finish()
}

func (r *BarReporter) describe(label string) string {
	if r.failed == 0 {
		return label
	}
	return fmt.Sprintf("%s (%d failed)", label, r.failed)
}

// formatClock renders a timeline position rounded to the second.
func formatClock(seconds float64) string {
	if !finite(seconds) || seconds < 0 {
		seconds = 0
	}
	return (time.Duration(seconds * float64(time.Second))).Round(time.Second).String()
}
