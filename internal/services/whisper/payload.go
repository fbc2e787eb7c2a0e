package whisper

import (
	"encoding/json"
	"fmt"
	"os"
)

// Segment is one timed span of recognized text, relative to the start of
// the transcribed file.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the decoded engine output for one file.
type Result struct {
	Segments []Segment
	// Language is the language the engine used or detected.
	Language string
	// DurationHint is the engine's total-duration metadata, 0 when absent.
	DurationHint float64
}

type payload struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Info     struct {
		Duration float64 `json:"duration"`
		Language string  `json:"language"`
	} `json:"info"`
}

// LoadResult decodes an engine JSON output file.
func LoadResult(jsonPath string) (Result, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Result{}, err
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Result{}, fmt.Errorf("parse whisper json: %w", err)
	}
	result := Result{Segments: p.Segments, Language: p.Language, DurationHint: p.Duration}
	if result.DurationHint <= 0 {
		result.DurationHint = p.Info.Duration
	}
	if result.Language == "" {
		result.Language = p.Info.Language
	}
	return result, nil
}
