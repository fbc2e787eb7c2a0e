package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"batchscribe/internal/logging"
	"batchscribe/internal/media/ffprobe"
	"batchscribe/internal/stitch"
)

type probeEntry struct {
	Index         int     `json:"index"`
	Name          string  `json:"name"`
	Size          int64   `json:"size_bytes"`
	ContainerSize int64   `json:"container_size_bytes"`
	AudioStreams  int     `json:"audio_streams"`
	Duration      float64 `json:"duration_seconds"`
	Offset        float64 `json:"offset_seconds"`
	Source        string  `json:"source"`
}

type probeOutput struct {
	InputDir     string       `json:"input_dir"`
	Pattern      string       `json:"pattern"`
	Chunks       []probeEntry `json:"chunks"`
	TotalSeconds float64      `json:"total_seconds"`
	Unprobed     int          `json:"unprobed"`
	NoAudio      int          `json:"no_audio"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var pattern string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe <dir>",
		Short: "List the chunks a run would process and their probed durations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("pattern") {
				pattern = cfg.Input.Pattern
			}
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve directory: %w", err)
			}
			chunks, err := stitch.Discover(dir, pattern)
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			prober := ffprobe.NewProber(cfg.FFprobeBinary(), time.Duration(cfg.Probe.TimeoutSeconds)*time.Second)
			out := inspectChunks(cmd.Context(), prober, chunks, logging.NewComponentLogger(logger, "probe"))
			out.InputDir = dir
			out.Pattern = pattern

			if asJSON {
				return writeJSON(cmd, out)
			}
			rows := make([][]string, 0, len(out.Chunks))
			var totalSize int64
			for _, entry := range out.Chunks {
				totalSize += entry.Size
				rows = append(rows, []string{
					strconv.Itoa(entry.Index + 1),
					entry.Name,
					sizeLabel(entry),
					audioLabel(entry),
					formatSeconds(entry.Offset),
					formatSeconds(entry.Duration),
					entry.Source,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Chunk", "Size", "Audio", "Offset", "Duration", "Source"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				"", fmt.Sprintf("%d chunk(s)", len(out.Chunks)), humanize.IBytes(uint64(totalSize)), "", "", formatSeconds(out.TotalSeconds), "",
			))
			if out.NoAudio > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d chunk(s) have no audio stream and will transcribe to nothing\n", out.NoAudio)
			}
			if out.Unprobed > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d chunk(s) could not be probed; a run falls back to engine metadata for them\n", out.Unprobed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "", "Glob used to select chunk files (defaults to input.pattern)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

// inspectChunks runs ffprobe once per chunk. AudioStreams stays -1 for a
// chunk ffprobe could not read.
func inspectChunks(ctx context.Context, prober *ffprobe.Prober, chunks []stitch.Chunk, logger *slog.Logger) probeOutput {
	var out probeOutput
	for _, chunk := range chunks {
		entry := probeEntry{
			Index:        chunk.Index,
			Name:         chunk.Name,
			Size:         chunk.Size,
			AudioStreams: -1,
			Offset:       out.TotalSeconds,
			Source:       "unavailable",
		}
		if ctx.Err() == nil {
			result, err := prober.Inspect(ctx, chunk.Path)
			if err != nil {
				logger.Debug("ffprobe inspection failed",
					logging.String(logging.FieldChunk, chunk.Name),
					logging.Error(err),
				)
			} else {
				entry.AudioStreams = result.AudioStreamCount()
				entry.ContainerSize = result.SizeBytes()
				if d := result.BestDuration(); d > 0 {
					entry.Duration = d
					entry.Source = string(stitch.SourceProbe)
				}
				if entry.AudioStreams == 0 {
					out.NoAudio++
					logging.WarnWithContext(logger, "chunk has no audio stream", "no_audio_stream",
						logging.String(logging.FieldChunk, chunk.Name),
						logging.String(logging.FieldImpact, "the chunk contributes no segments"),
					)
				}
			}
		}
		if entry.Duration <= 0 {
			out.Unprobed++
		}
		out.TotalSeconds += entry.Duration
		out.Chunks = append(out.Chunks, entry)
	}
	return out
}

// sizeLabel prefers the container size and falls back to the file size.
func sizeLabel(entry probeEntry) string {
	if entry.ContainerSize > 0 {
		return humanize.IBytes(uint64(entry.ContainerSize))
	}
	return humanize.IBytes(uint64(entry.Size))
}

func audioLabel(entry probeEntry) string {
	if entry.AudioStreams < 0 {
		return "?"
	}
	return strconv.Itoa(entry.AudioStreams)
}
