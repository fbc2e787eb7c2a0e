package stitch

import (
	"math"
	"strings"

	"batchscribe/internal/services/whisper"
)

// Segment is a timed span of text on its chunk's local clock.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// GlobalSegment is a Segment moved onto the run-wide clock and numbered.
type GlobalSegment struct {
	Ordinal int
	Start   float64
	End     float64
	Text    string
}

// normalizeSegments collapses every whitespace run in the text to a single
// space, drops segments with no text or non-finite times, and clamps an end
// that precedes its start. It returns the kept segments and the number
// dropped. A kept segment's text never contains a newline.
func normalizeSegments(raw []whisper.Segment) ([]Segment, int) {
	if len(raw) == 0 {
		return nil, 0
	}
	out := make([]Segment, 0, len(raw))
	dropped := 0
	for _, seg := range raw {
		text := collapseSpace(seg.Text)
		if text == "" || !finite(seg.Start) || !finite(seg.End) {
			dropped++
			continue
		}
		start := math.Max(seg.Start, 0)
		end := seg.End
		if end < start {
			end = start
		}
		out = append(out, Segment{Start: start, End: end, Text: text})
	}
	return out, dropped
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
