package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"batchscribe/internal/config"
	"batchscribe/internal/testsupport"
)

// whisperStub mimics whisper-ctranslate2: it writes <stem>.json into
// --output_dir with one two-second segment. part002 always fails.
const whisperStub = `audio="$1"
shift
out=""
while [ "$#" -gt 0 ]; do
  case "$1" in
    --output_dir) out="$2"; shift ;;
  esac
  shift
done
stem=$(basename "$audio")
stem="${stem%.*}"
if [ "$stem" = "part002" ]; then
  echo "decoder crashed" >&2
  exit 3
fi
printf '{"language":"zh","segments":[{"start":0.0,"end":2.0,"text":"%s"}]}\n' "$stem" > "$out/$stem.json"
`

// ffprobeStub reports 12.5s for every chunk; part003 carries no audio stream.
const ffprobeStub = `for last; do :; done
case "$(basename "$last")" in
  part003.*) printf '{"format":{"duration":"12.5","size":"4096"},"streams":[]}\n' ;;
  *) printf '{"format":{"duration":"12.5","size":"4096"},"streams":[{"codec_type":"audio","duration":"12.5"}]}\n' ;;
esac
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	inputDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithHistory(true))
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("BATCHSCRIBE_MODEL_PATH", "")

	binDir := filepath.Join(base, "bin")
	testsupport.WriteStubBinary(t, binDir, cfg.Whisper.Command, whisperStub)
	cfg.Probe.FFprobeBinary = testsupport.WriteStubBinary(t, binDir, "ffprobe", ffprobeStub)
	cfg.Probe.Enabled = true
	cfg.Logging.Level = "error"
	testsupport.PrependPath(t, binDir)

	inputDir := filepath.Join(base, "chunks")
	testsupport.WriteChunks(t, inputDir, "part001.mp3", "part002.mp3", "part003.mp3")

	configPath := filepath.Join(base, "batchscribe.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base, inputDir: inputDir}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
