package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateInput(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateInput() error {
	if _, err := filepath.Match(c.Input.Pattern, "part001.mp3"); err != nil {
		return fmt.Errorf("input.pattern %q: %w", c.Input.Pattern, err)
	}
	if strings.ContainsRune(c.Input.Pattern, filepath.Separator) {
		return errors.New("input.pattern must be a file name pattern without directories")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.BeamSize < 1 {
		return errors.New("transcription.beam_size must be positive")
	}
	if c.Transcription.VADMinSilenceMS < 0 {
		return errors.New("transcription.vad_min_silence_ms must be >= 0")
	}
	if c.Transcription.VADSpeechPadMS < 0 {
		return errors.New("transcription.vad_speech_pad_ms must be >= 0")
	}
	if c.Transcription.VADThreshold < 0 || c.Transcription.VADThreshold >= 1 {
		return errors.New("transcription.vad_threshold must be in [0, 1)")
	}
	return nil
}

func (c *Config) validateModel() error {
	switch c.Model.Device {
	case "auto", "cpu", "cuda":
	default:
		return fmt.Errorf("model.device: unsupported value %q (want auto, cpu, or cuda)", c.Model.Device)
	}
	switch c.Model.ComputeType {
	case "default", "auto", "int8", "int8_float16", "int8_float32", "int16", "float16", "bfloat16", "float32":
	default:
		return fmt.Errorf("model.compute_type: unsupported value %q", c.Model.ComputeType)
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Whisper.TimeoutSeconds < 0 {
		return errors.New("whisper.timeout_seconds must be >= 0")
	}
	if c.Probe.TimeoutSeconds < 0 {
		return errors.New("probe.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
