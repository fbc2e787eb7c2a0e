package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Cue is one SubRip entry.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Hours, minutes, and
// seconds are floor-divided; the millisecond remainder is rounded and any
// overflow carries upward. Negative, NaN, and infinite input render as zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	whole := math.Floor(seconds)
	total := int64(whole)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	ms := int64(math.Round(seconds*1000 - whole*1000))
	if ms >= 1000 {
		s++
		ms -= 1000
	}
	if s >= 60 {
		m++
		s -= 60
	}
	if m >= 60 {
		h++
		m -= 60
	}
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// WriteCue writes a single cue followed by the blank separator line.
func WriteCue(w io.Writer, cue Cue) error {
	_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n", cue.Index, FormatTimestamp(cue.Start), FormatTimestamp(cue.End), cue.Text)
	return err
}

// ParseTimestamp parses HH:MM:SS,mmm (a period separator is accepted).
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if minutes > 59 || seconds > 59 || millis > 999 || hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("timestamp out of range %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// Parse reads SubRip cues from r. Text lines of a cue are joined with "\n".
func Parse(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cues    []Cue
		current *Cue
		state   int // 0 index, 1 timing, 2 text
		lineNo  int
	)
	flush := func() {
		if current != nil {
			cues = append(cues, *current)
			current = nil
		}
		state = 0
	}
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		switch state {
		case 0:
			if strings.TrimSpace(line) == "" {
				continue
			}
			index, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				return nil, fmt.Errorf("line %d: expected cue number, got %q", lineNo, line)
			}
			current = &Cue{Index: index}
			state = 1
		case 1:
			startText, endText, ok := strings.Cut(line, "-->")
			if !ok {
				return nil, fmt.Errorf("line %d: expected timing line, got %q", lineNo, line)
			}
			start, err := ParseTimestamp(startText)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			end, err := ParseTimestamp(endText)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current.Start, current.End = start, end
			state = 2
		case 2:
			if strings.TrimSpace(line) == "" {
				flush()
				continue
			}
			if current.Text != "" {
				current.Text += "\n"
			}
			current.Text += line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	if state == 1 {
		return nil, fmt.Errorf("line %d: cue %d has no timing line", lineNo, current.Index)
	}
	flush()
	return cues, nil
}

// ParseFile parses the SubRip file at path.
func ParseFile(path string) ([]Cue, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Issue describes a single validation finding.
type Issue struct {
	Cue     int
	Code    string
	Message string
}

// Report summarizes validation of a parsed cue list. Errors break the
// numbering or timing contract; warnings flag overlaps between cues.
type Report struct {
	Cues     int
	Errors   []Issue
	Warnings []Issue
	Last     float64
}

// OK reports whether no errors were found.
func (r Report) OK() bool { return len(r.Errors) == 0 }

// Validate checks that ordinals run 1..K without gaps, every cue ends at or
// after its start, starts never move backwards, and text is present.
func Validate(cues []Cue) Report {
	report := Report{Cues: len(cues)}
	prevStart := 0.0
	prevEnd := 0.0
	for i, cue := range cues {
		want := i + 1
		if cue.Index != want {
			report.Errors = append(report.Errors, Issue{Cue: cue.Index, Code: "ordinal_gap", Message: fmt.Sprintf("cue %d found where %d expected", cue.Index, want)})
		}
		if cue.End < cue.Start {
			report.Errors = append(report.Errors, Issue{Cue: cue.Index, Code: "negative_duration", Message: fmt.Sprintf("ends at %s before it starts at %s", FormatTimestamp(cue.End), FormatTimestamp(cue.Start))})
		}
		if strings.TrimSpace(cue.Text) == "" {
			report.Errors = append(report.Errors, Issue{Cue: cue.Index, Code: "empty_text", Message: "cue has no text"})
		}
		if i > 0 {
			if cue.Start < prevStart {
				report.Errors = append(report.Errors, Issue{Cue: cue.Index, Code: "start_regressed", Message: fmt.Sprintf("starts at %s before previous cue start %s", FormatTimestamp(cue.Start), FormatTimestamp(prevStart))})
			} else if cue.Start < prevEnd {
				report.Warnings = append(report.Warnings, Issue{Cue: cue.Index, Code: "overlap", Message: fmt.Sprintf("starts at %s while previous cue runs until %s", FormatTimestamp(cue.Start), FormatTimestamp(prevEnd))})
			}
		}
		prevStart, prevEnd = cue.Start, cue.End
		if cue.End > report.Last {
			report.Last = cue.End
		}
	}
	return report
}
