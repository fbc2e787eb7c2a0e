// Package subtitles formats, parses, and validates SubRip (.srt) data.
//
// FormatTimestamp and WriteCue produce the exact cue layout batchscribe
// emits. Parse and Validate read a finished file back so its ordinals and
// timing can be checked, both in tests and by the verify command.
package subtitles
