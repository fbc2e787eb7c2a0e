package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool      = errors.New("external tool error")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timeout")
	ErrTransient         = errors.New("transient failure")
	ErrUnsupportedOption = errors.New("unsupported option")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UnsupportedOptionError reports that the transcription engine rejected a
// single named option. Callers may retry without it.
type UnsupportedOptionError struct {
	Option string
	Detail string
}

func (e *UnsupportedOptionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unsupported option %q", e.Option)
	}
	return fmt.Sprintf("unsupported option %q: %s", e.Option, e.Detail)
}

// Is lets errors.Is(err, ErrUnsupportedOption) match.
func (e *UnsupportedOptionError) Is(target error) bool {
	return target == ErrUnsupportedOption
}

// UnsupportedOption extracts the rejected option name, if err carries one.
func UnsupportedOption(err error) (string, bool) {
	var target *UnsupportedOptionError
	if errors.As(err, &target) && target.Option != "" {
		return target.Option, true
	}
	return "", false
}

// ErrorHint returns a short operator-facing hint for the marker carried by err.
func ErrorHint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedOption):
		return "the transcription engine rejected an option; disable it in [transcription]"
	case errors.Is(err, ErrConfiguration):
		return "check the config file and command line flags"
	case errors.Is(err, ErrNotFound):
		return "verify the input directory and chunk pattern"
	case errors.Is(err, ErrValidation):
		return "input failed validation"
	case errors.Is(err, ErrTimeout):
		return "increase whisper.timeout_seconds or split chunks smaller"
	case errors.Is(err, ErrExternalTool):
		return "inspect the external tool stderr in the log"
	default:
		return "see error detail"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
