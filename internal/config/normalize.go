package config

import (
	"fmt"
	"strings"

	"batchscribe/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeInput()
	c.normalizeTranscription()
	if err := c.normalizeModel(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeInput() {
	c.Input.Pattern = strings.TrimSpace(c.Input.Pattern)
	if c.Input.Pattern == "" {
		c.Input.Pattern = defaultPattern
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Language = strings.TrimSpace(c.Transcription.Language)
	if c.Transcription.Language == "" {
		c.Transcription.Language = defaultLanguage
	} else if !strings.EqualFold(c.Transcription.Language, "auto") {
		if code := language.ToISO2(c.Transcription.Language); code != "" {
			c.Transcription.Language = code
		}
	} else {
		c.Transcription.Language = "auto"
	}
	if c.Transcription.BeamSize == 0 {
		c.Transcription.BeamSize = defaultBeamSize
	}
}

func (c *Config) normalizeModel() error {
	c.Model.Path = strings.TrimSpace(c.Model.Path)
	if c.Model.Path == "" {
		c.Model.Path = defaultModelPath
	}
	if looksLikePath(c.Model.Path) {
		expanded, err := expandPath(c.Model.Path)
		if err != nil {
			return fmt.Errorf("model.path: %w", err)
		}
		c.Model.Path = expanded
	}
	c.Model.Device = strings.ToLower(strings.TrimSpace(c.Model.Device))
	if c.Model.Device == "" {
		c.Model.Device = defaultDevice
	}
	c.Model.ComputeType = strings.ToLower(strings.TrimSpace(c.Model.ComputeType))
	if c.Model.ComputeType == "" {
		c.Model.ComputeType = defaultComputeType
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Whisper.Command = strings.TrimSpace(c.Whisper.Command)
	if c.Whisper.Command == "" {
		c.Whisper.Command = defaultWhisperCommand
	}
	c.Whisper.Launcher = strings.TrimSpace(c.Whisper.Launcher)
	if c.Whisper.TimeoutSeconds == 0 {
		c.Whisper.TimeoutSeconds = defaultWhisperTimeout
	}
	c.Probe.FFprobeBinary = strings.TrimSpace(c.Probe.FFprobeBinary)
	if c.Probe.FFprobeBinary == "" {
		c.Probe.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Probe.TimeoutSeconds == 0 {
		c.Probe.TimeoutSeconds = defaultProbeTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// looksLikePath distinguishes a local model directory from a model name
// (such as "medium") that the engine resolves itself.
func looksLikePath(value string) bool {
	return strings.HasPrefix(value, "~") || strings.HasPrefix(value, ".") || strings.ContainsAny(value, `/\`)
}

// ModelIsPath reports whether the configured model refers to a local directory.
func (c *Config) ModelIsPath() bool {
	return looksLikePath(c.Model.Path)
}
