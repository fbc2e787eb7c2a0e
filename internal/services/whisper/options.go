package whisper

import (
	"strconv"
	"strings"
)

// Option names as understood by the engine's argument parser.
const (
	OptionLanguage      = "language"
	OptionBeamSize      = "beam_size"
	OptionVADFilter     = "vad_filter"
	OptionVADMinSilence = "vad_min_silence_duration_ms"
	OptionVADSpeechPad  = "vad_speech_pad_ms"
	OptionVADThreshold  = "vad_threshold"
)

// VADParams refine voice activity detection. Zero values keep engine defaults.
type VADParams struct {
	MinSilenceMS int
	SpeechPadMS  int
	Threshold    float64
}

// Options are per-chunk decoding settings.
type Options struct {
	// Language is an ISO 639-1 code, or "auto"/"" for detection.
	Language  string
	BeamSize  int
	VAD       bool
	VADParams VADParams
}

// Without returns a copy of o with the named refinement removed. It reports
// false when option is not present in o or cannot be dropped without
// changing what is being transcribed.
func (o Options) Without(option string) (Options, bool) {
	next := o
	switch option {
	case OptionVADFilter:
		if !o.VAD {
			return o, false
		}
		next.VAD = false
		next.VADParams = VADParams{}
	case OptionVADMinSilence:
		if !o.VAD || o.VADParams.MinSilenceMS <= 0 {
			return o, false
		}
		next.VADParams.MinSilenceMS = 0
	case OptionVADSpeechPad:
		if !o.VAD || o.VADParams.SpeechPadMS <= 0 {
			return o, false
		}
		next.VADParams.SpeechPadMS = 0
	case OptionVADThreshold:
		if !o.VAD || o.VADParams.Threshold <= 0 {
			return o, false
		}
		next.VADParams.Threshold = 0
	default:
		return o, false
	}
	return next, true
}

// Args renders the options as command line flags.
func (o Options) Args() []string {
	args := make([]string, 0, 12)
	if lang := strings.TrimSpace(o.Language); lang != "" && !strings.EqualFold(lang, "auto") {
		args = append(args, "--"+OptionLanguage, lang)
	}
	if o.BeamSize > 0 {
		args = append(args, "--"+OptionBeamSize, strconv.Itoa(o.BeamSize))
	}
	if !o.VAD {
		return args
	}
	args = append(args, "--"+OptionVADFilter, "True")
	if o.VADParams.MinSilenceMS > 0 {
		args = append(args, "--"+OptionVADMinSilence, strconv.Itoa(o.VADParams.MinSilenceMS))
	}
	if o.VADParams.SpeechPadMS > 0 {
		args = append(args, "--"+OptionVADSpeechPad, strconv.Itoa(o.VADParams.SpeechPadMS))
	}
	if o.VADParams.Threshold > 0 {
		args = append(args, "--"+OptionVADThreshold, strconv.FormatFloat(o.VADParams.Threshold, 'f', -1, 64))
	}
	return args
}
