package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"batchscribe/internal/ledger"
)

type historyRun struct {
	ID           string         `json:"id" yaml:"id"`
	BaseName     string         `json:"base_name" yaml:"base_name"`
	Status       string         `json:"status" yaml:"status"`
	InputDir     string         `json:"input_dir" yaml:"input_dir"`
	OutputDir    string         `json:"output_dir" yaml:"output_dir"`
	Language     string         `json:"language,omitempty" yaml:"language,omitempty"`
	Chunks       int            `json:"chunks" yaml:"chunks"`
	Segments     int            `json:"segments" yaml:"segments"`
	Failed       int            `json:"failed_chunks" yaml:"failed_chunks"`
	TotalSeconds float64        `json:"total_seconds" yaml:"total_seconds"`
	Outputs      []string       `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	LogPath      string         `json:"log_path,omitempty" yaml:"log_path,omitempty"`
	Error        string         `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt    time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	ChunkList    []historyChunk `json:"chunk_list,omitempty" yaml:"chunk_list,omitempty"`
}

type historyChunk struct {
	Index          int     `json:"index" yaml:"index"`
	Name           string  `json:"name" yaml:"name"`
	Status         string  `json:"status" yaml:"status"`
	Offset         float64 `json:"offset_seconds" yaml:"offset_seconds"`
	Duration       float64 `json:"duration_seconds" yaml:"duration_seconds"`
	DurationSource string  `json:"duration_source" yaml:"duration_source"`
	Segments       int     `json:"segments" yaml:"segments"`
	FirstOrdinal   int     `json:"first_ordinal,omitempty" yaml:"first_ordinal,omitempty"`
	Retried        bool    `json:"retried,omitempty" yaml:"retried,omitempty"`
	DroppedOption  string  `json:"dropped_option,omitempty" yaml:"dropped_option,omitempty"`
	Error          string  `json:"error,omitempty" yaml:"error,omitempty"`
	ElapsedMS      int64   `json:"elapsed_ms" yaml:"elapsed_ms"`
}

type outputFormat struct {
	json bool
	yaml bool
}

func (f *outputFormat) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.json, "json", false, "Emit JSON")
	cmd.Flags().BoolVar(&f.yaml, "yaml", false, "Emit YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
}

// write reports whether v was emitted in a machine format.
func (f *outputFormat) write(cmd *cobra.Command, v any) (bool, error) {
	switch {
	case f.json:
		return true, writeJSON(cmd, v)
	case f.yaml:
		return true, writeYAML(cmd, v)
	default:
		return false, nil
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past transcription runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var format outputFormat

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *ledger.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				views := make([]historyRun, 0, len(runs))
				for _, run := range runs {
					views = append(views, toHistoryRun(run))
				}
				if done, err := format.write(cmd, views); done || err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						run.BaseName,
						string(run.Status),
						fmt.Sprintf("%d/%d", run.ChunkCount-run.FailedChunks, run.ChunkCount),
						strconv.Itoa(run.SegmentCount),
						formatSeconds(run.TotalSeconds),
						humanize.Time(run.StartedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Base", "Status", "Chunks", "Segments", "Audio", "Started"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	format.register(cmd)
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var format outputFormat

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run and its chunks; a unique id prefix is enough",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *ledger.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					if errors.Is(err, ledger.ErrAmbiguousRun) {
						return fmt.Errorf("%w: %q matches more than one run; use a longer prefix", err, args[0])
					}
					return err
				}
				chunks, err := store.ListChunks(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				view := toHistoryRun(*run)
				for _, chunk := range chunks {
					view.ChunkList = append(view.ChunkList, toHistoryChunk(chunk))
				}
				if done, err := format.write(cmd, view); done || err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderKeyValues(runDetails(*run)))
				if len(chunks) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(chunks))
				for _, chunk := range chunks {
					note := chunk.ErrorMessage
					if chunk.DroppedOption != "" {
						note = strings.TrimSpace("dropped --" + chunk.DroppedOption + " " + note)
					}
					rows = append(rows, []string{
						strconv.Itoa(chunk.Index + 1),
						chunk.Name,
						string(chunk.Status),
						formatSeconds(chunk.Offset),
						formatSeconds(chunk.Duration),
						chunk.DurationSource,
						strconv.Itoa(chunk.SegmentCount),
						note,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Chunk", "Status", "Offset", "Duration", "Source", "Segments", "Note"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	format.register(cmd)
	return cmd
}

func withHistory(ctx *commandContext, fn func(*ledger.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ledger.Open(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func runDetails(run ledger.Run) [][2]string {
	finished := "-"
	elapsed := "-"
	if run.FinishedAt != nil {
		finished = fmt.Sprintf("%s (%s)", run.FinishedAt.Local().Format(time.DateTime), humanize.Time(*run.FinishedAt))
		elapsed = run.Elapsed().Round(time.Second).String()
	}
	pairs := [][2]string{
		{"ID", run.ID},
		{"Base name", run.BaseName},
		{"Status", string(run.Status)},
		{"Input", run.InputDir},
		{"Output", run.OutputDir},
		{"Language", nonEmpty(run.Language)},
		{"Chunks", fmt.Sprintf("%d (%d failed)", run.ChunkCount, run.FailedChunks)},
		{"Segments", strconv.Itoa(run.SegmentCount)},
		{"Audio", formatSeconds(run.TotalSeconds)},
		{"Started", fmt.Sprintf("%s (%s)", run.StartedAt.Local().Format(time.DateTime), humanize.Time(run.StartedAt))},
		{"Finished", finished},
		{"Elapsed", elapsed},
	}
	for _, output := range run.Outputs {
		pairs = append(pairs, [2]string{"Transcript", output})
	}
	if run.LogPath != "" {
		pairs = append(pairs, [2]string{"Log", run.LogPath})
	}
	if run.ErrorMessage != "" {
		pairs = append(pairs, [2]string{"Error", run.ErrorMessage})
	}
	return pairs
}

func toHistoryRun(run ledger.Run) historyRun {
	return historyRun{
		ID:           run.ID,
		BaseName:     run.BaseName,
		Status:       string(run.Status),
		InputDir:     run.InputDir,
		OutputDir:    run.OutputDir,
		Language:     run.Language,
		Chunks:       run.ChunkCount,
		Segments:     run.SegmentCount,
		Failed:       run.FailedChunks,
		TotalSeconds: run.TotalSeconds,
		Outputs:      run.Outputs,
		LogPath:      run.LogPath,
		Error:        run.ErrorMessage,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	}
}

func toHistoryChunk(chunk ledger.ChunkRecord) historyChunk {
	return historyChunk{
		Index:          chunk.Index,
		Name:           chunk.Name,
		Status:         string(chunk.Status),
		Offset:         chunk.Offset,
		Duration:       chunk.Duration,
		DurationSource: chunk.DurationSource,
		Segments:       chunk.SegmentCount,
		FirstOrdinal:   chunk.FirstOrdinal,
		Retried:        chunk.Retried,
		DroppedOption:  chunk.DroppedOption,
		Error:          chunk.ErrorMessage,
		ElapsedMS:      chunk.Elapsed.Milliseconds(),
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func nonEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
