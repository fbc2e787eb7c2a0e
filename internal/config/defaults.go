package config

const (
	defaultOutputDir      = "transcripts"
	defaultStateDir       = "~/.local/share/batchscribe"
	defaultLogDir         = "~/.local/share/batchscribe/logs"
	defaultPattern        = "part*.mp3"
	defaultLanguage       = "zh"
	defaultBeamSize       = 5
	defaultVADMinSilence  = 500
	defaultVADSpeechPad   = 400
	defaultModelPath      = "~/.local/share/batchscribe/models/faster-whisper-medium"
	defaultDevice         = "auto"
	defaultComputeType    = "float16"
	defaultWhisperCommand = "whisper-ctranslate2"
	defaultWhisperTimeout = 3600
	defaultFFprobeBinary  = "ffprobe"
	defaultProbeTimeout   = 30
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLogRetention   = 30

	modelPathEnv = "BATCHSCRIBE_MODEL_PATH"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Input: Input{Pattern: defaultPattern},
		Output: Output{
			GenerateTXT: true,
			GenerateSRT: true,
			CleanupTemp: true,
		},
		Transcription: Transcription{
			Language:        defaultLanguage,
			BeamSize:        defaultBeamSize,
			VADFilter:       false,
			VADMinSilenceMS: defaultVADMinSilence,
			VADSpeechPadMS:  defaultVADSpeechPad,
		},
		Model: Model{
			Path:        defaultModelPath,
			Device:      defaultDevice,
			ComputeType: defaultComputeType,
		},
		Whisper: Whisper{
			Command:        defaultWhisperCommand,
			TimeoutSeconds: defaultWhisperTimeout,
		},
		Probe: Probe{
			Enabled:        true,
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultProbeTimeout,
		},
		History: History{Enabled: true},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetention,
		},
	}
}
