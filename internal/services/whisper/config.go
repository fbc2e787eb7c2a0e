package whisper

import "time"

// Config captures how the transcription command is located and launched.
type Config struct {
	// Command is the transcription CLI, e.g. "whisper-ctranslate2".
	Command string
	// Launcher optionally wraps Command (e.g. "uvx").
	Launcher string
	// Model is a local CTranslate2 model directory or a model name.
	Model string
	// ModelIsPath marks Model as a filesystem path that must exist.
	ModelIsPath bool
	// Device is auto, cpu, or cuda.
	Device string
	// ComputeType is the CTranslate2 precision, e.g. float16.
	ComputeType string
	// Timeout bounds a single chunk transcription. Zero disables it.
	Timeout time.Duration
}

// Engine constants.
const (
	DefaultCommand  = "whisper-ctranslate2"
	OutputFormat    = "json"
	DeviceAuto      = "auto"
	DeviceCPU       = "cpu"
	DeviceCUDA      = "cuda"
	ComputeFloat16  = "float16"
	ComputeFloat32  = "float32"
	GPUProbeCommand = "nvidia-smi"
)
