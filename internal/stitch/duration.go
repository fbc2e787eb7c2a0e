package stitch

import (
	"context"
	"log/slog"

	"batchscribe/internal/logging"
)

// DurationSource names the strategy that produced a chunk duration.
type DurationSource string

const (
	SourceProbe    DurationSource = "probe"
	SourceHint     DurationSource = "hint"
	SourceSegments DurationSource = "segments"
	SourceZero     DurationSource = "zero"
)

// DurationEvidence is everything known about a chunk's length once it has
// been probed and transcribed. Zero fields mean "unknown".
type DurationEvidence struct {
	Probed   float64
	Hint     float64
	Segments []Segment
}

// DurationStrategy derives a duration from evidence. It reports false when
// it has nothing to offer.
type DurationStrategy struct {
	Source  DurationSource
	Resolve func(DurationEvidence) (float64, bool)
}

// DefaultStrategies returns probe, engine hint, then summed segment length.
func DefaultStrategies() []DurationStrategy {
	return []DurationStrategy{
		{Source: SourceProbe, Resolve: func(e DurationEvidence) (float64, bool) { return e.Probed, true }},
		{Source: SourceHint, Resolve: func(e DurationEvidence) (float64, bool) { return e.Hint, true }},
		{Source: SourceSegments, Resolve: summedSegments},
	}
}

func summedSegments(e DurationEvidence) (float64, bool) {
	if len(e.Segments) == 0 {
		return 0, false
	}
	total := 0.0
	for _, seg := range e.Segments {
		if d := seg.End - seg.Start; d > 0 {
			total += d
		}
	}
	return total, true
}

// Resolver applies an ordered list of strategies and keeps the first finite,
// positive answer. When every strategy declines the duration is zero.
type Resolver struct {
	strategies []DurationStrategy
}

// NewResolver builds a resolver. With no strategies it uses DefaultStrategies.
func NewResolver(strategies ...DurationStrategy) *Resolver {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Resolver{strategies: strategies}
}

// Resolve returns a duration >= 0 and the strategy that produced it.
func (r *Resolver) Resolve(e DurationEvidence) (float64, DurationSource) {
	if r == nil {
		r = NewResolver()
	}
	for _, s := range r.strategies {
		if s.Resolve == nil {
			continue
		}
		if v, ok := s.Resolve(e); ok && finite(v) && v > 0 {
			return v, s.Source
		}
	}
	return 0, SourceZero
}

// Prober reports a media file's duration in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// ScanDurations probes every chunk once, in order. Probe failures are
// logged at debug level and leave the chunk's entry at zero.
func ScanDurations(ctx context.Context, prober Prober, chunks []Chunk, logger *slog.Logger) []float64 {
	probed := make([]float64, len(chunks))
	if prober == nil {
		return probed
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			break
		}
		seconds, err := prober.Duration(ctx, chunk.Path)
		if err != nil {
			logger.Debug("duration probe failed",
				logging.String(logging.FieldChunk, chunk.Name),
				logging.Error(err),
			)
			continue
		}
		if finite(seconds) && seconds > 0 {
			probed[i] = seconds
		}
	}
	return probed
}
