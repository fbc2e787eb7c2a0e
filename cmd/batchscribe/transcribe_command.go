package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"batchscribe/internal/batchrun"
	"batchscribe/internal/config"
	"batchscribe/internal/stitch"
)

type transcribeFlags struct {
	inputDir    string
	baseName    string
	generateTXT bool
	generateSRT bool
	cleanupTemp bool
	language    string
	outputDir   string
	pattern     string
	vad         bool
	model       string
	device      string
	computeType string
	noProgress  bool
	noHistory   bool
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	flags := &transcribeFlags{}

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe a directory of audio chunks into one transcript",
		Long: `Transcribe every chunk in --input-dir in lexicographic order and stitch the
results into <output_dir>/<base-name>.txt and .srt.

A chunk that fails to transcribe is skipped; its duration still advances the
timeline so later subtitles stay aligned with the source recording.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyTranscribeFlags(cmd, cfg, flags); err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			runCtx, stop := signalContext(cmd)
			defer stop()

			summary, runErr := batchrun.Run(runCtx, cfg, batchrun.Request{
				InputDir:    flags.inputDir,
				BaseName:    flags.baseName,
				Progress:    !flags.noProgress,
				ProgressOut: os.Stderr,
			}, logger)
			if summary != nil {
				printSummary(cmd.OutOrStdout(), summary)
			}
			return runErr
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.inputDir, "input-dir", "i", "", "Directory containing the audio chunks")
	f.StringVarP(&flags.baseName, "base-name", "b", "", "Transcript base name; any extension is dropped")
	f.BoolVar(&flags.generateTXT, "generate-txt", true, "Write the plain text transcript")
	f.BoolVar(&flags.generateSRT, "generate-srt", true, "Write the SRT subtitle file")
	f.BoolVar(&flags.cleanupTemp, "cleanup-temp", true, "Remove the input directory after a completed run")
	f.StringVarP(&flags.language, "language", "l", "", "Spoken language code (auto to detect)")
	f.StringVarP(&flags.outputDir, "output-dir", "o", "", "Directory for the transcript files")
	f.StringVar(&flags.pattern, "pattern", "", "Glob used to select chunk files")
	f.BoolVar(&flags.vad, "vad", false, "Enable voice activity detection")
	f.StringVar(&flags.model, "model", "", "Model directory or name")
	f.StringVar(&flags.device, "device", "", "Device to run on (auto, cpu, cuda)")
	f.StringVar(&flags.computeType, "compute-type", "", "Model precision, e.g. float16 or int8")
	f.BoolVar(&flags.noProgress, "no-progress", false, "Disable the terminal progress bar")
	f.BoolVar(&flags.noHistory, "no-history", false, "Do not record this run in the history ledger")
	_ = cmd.MarkFlagRequired("input-dir")
	_ = cmd.MarkFlagRequired("base-name")
	return cmd
}

// applyTranscribeFlags copies explicitly set flags onto cfg and re-validates.
func applyTranscribeFlags(cmd *cobra.Command, cfg *config.Config, flags *transcribeFlags) error {
	changed := cmd.Flags().Changed
	if changed("generate-txt") {
		cfg.Output.GenerateTXT = flags.generateTXT
	}
	if changed("generate-srt") {
		cfg.Output.GenerateSRT = flags.generateSRT
	}
	if changed("cleanup-temp") {
		cfg.Output.CleanupTemp = flags.cleanupTemp
	}
	if changed("language") {
		cfg.Transcription.Language = flags.language
	}
	if changed("output-dir") {
		cfg.Paths.OutputDir = flags.outputDir
	}
	if changed("pattern") {
		cfg.Input.Pattern = flags.pattern
	}
	if changed("vad") {
		cfg.Transcription.VADFilter = flags.vad
	}
	if changed("model") {
		cfg.Model.Path = flags.model
	}
	if changed("device") {
		cfg.Model.Device = flags.device
	}
	if changed("compute-type") {
		cfg.Model.ComputeType = flags.computeType
	}
	if flags.noHistory {
		cfg.History.Enabled = false
	}
	if err := cfg.Finalize(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

func printSummary(out io.Writer, summary *stitch.Summary) {
	status := "Finished"
	switch {
	case summary.Cancelled:
		status = "Interrupted"
	case summary.Phase == stitch.PhaseFailed:
		status = "Failed"
	}
	chunks := len(summary.Chunks)
	fmt.Fprintf(out, "%s: %d chunk(s), %d segment(s), %s of audio in %s\n",
		status,
		chunks,
		summary.Segments,
		formatSeconds(summary.TotalSeconds),
		summary.Elapsed.Round(time.Millisecond),
	)
	if summary.Failed > 0 {
		var names []string
		for _, report := range summary.Chunks {
			if report.Failed() {
				names = append(names, report.Chunk.Name)
			}
		}
		fmt.Fprintf(out, "Failed chunks (%d): %s\n", summary.Failed, strings.Join(names, ", "))
	}
	for _, path := range summary.Outputs {
		size := "-"
		if info, err := os.Stat(path); err == nil {
			size = humanize.IBytes(uint64(info.Size()))
		}
		fmt.Fprintf(out, "  %s (%s)\n", path, size)
	}
	if summary.CleanedUp {
		fmt.Fprintln(out, "Input directory removed")
	}
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}
