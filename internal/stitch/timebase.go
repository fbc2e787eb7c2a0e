package stitch

// State is the run-wide clock and numbering carried from chunk to chunk.
type State struct {
	// CumulativeTime is the global start offset of the next chunk.
	CumulativeTime float64
	// NextOrdinal is the number the next emitted segment receives.
	NextOrdinal int
}

// NewState returns the state at the start of a run.
func NewState() State {
	return State{NextOrdinal: 1}
}

// Translate shifts segments by the current offset and numbers them from
// NextOrdinal. It does not modify the state; ordinals are committed by the
// writer and the offset by Advance.
func (s State) Translate(segments []Segment) []GlobalSegment {
	if len(segments) == 0 {
		return nil
	}
	ordinal := s.NextOrdinal
	if ordinal < 1 {
		ordinal = 1
	}
	out := make([]GlobalSegment, len(segments))
	for i, seg := range segments {
		out[i] = GlobalSegment{
			Ordinal: ordinal + i,
			Start:   seg.Start + s.CumulativeTime,
			End:     seg.End + s.CumulativeTime,
			Text:    seg.Text,
		}
	}
	return out
}

// Advance returns the state after a chunk of the given duration. Negative
// and non-finite durations count as zero so the clock never moves back.
func (s State) Advance(duration float64) State {
	if finite(duration) && duration > 0 {
		s.CumulativeTime += duration
	}
	return s
}

// WithOrdinal returns s with NextOrdinal set to next.
func (s State) WithOrdinal(next int) State {
	s.NextOrdinal = next
	return s
}

// Overrun reports how far the chunk's last segment end runs past its
// resolved duration. A positive value means the next chunk's segments may
// start before this chunk's last segment ends.
func Overrun(segments []Segment, duration float64) float64 {
	last := 0.0
	for _, seg := range segments {
		if seg.End > last {
			last = seg.End
		}
	}
	if len(segments) == 0 || last <= duration {
		return 0
	}
	return last - duration
}
