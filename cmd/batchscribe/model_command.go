package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"batchscribe/internal/batchrun"
	"batchscribe/internal/config"
	"batchscribe/internal/services/whisper"
)

type modelReport struct {
	Model       string   `json:"model"`
	ModelIsPath bool     `json:"model_is_path"`
	Device      string   `json:"device"`
	ComputeType string   `json:"compute_type"`
	GPUs        []string `json:"gpus"`
}

func newModelCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect the transcription model",
	}
	cmd.AddCommand(newModelCheckCommand(ctx))
	return cmd
}

func newModelCheckCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var model, device, computeType string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load the configured model and report the device it will run on",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			changed := cmd.Flags().Changed
			if changed("model") {
				cfg.Model.Path = model
			}
			if changed("device") {
				cfg.Model.Device = device
			}
			if changed("compute-type") {
				cfg.Model.ComputeType = computeType
			}
			if err := cfg.Finalize(); err != nil {
				return fmt.Errorf("invalid options: %w", err)
			}

			report, err := checkModel(cmd, cfg)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Loading model %s on %s\n", report.Model, report.Device)
			if len(report.GPUs) > 0 {
				fmt.Fprintf(out, "GPU available, %d device(s): %s\n", len(report.GPUs), strings.Join(report.GPUs, ", "))
			} else {
				fmt.Fprintln(out, "No GPU found, using CPU")
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Model", "Local", "Device", "Compute Type"},
				[][]string{{report.Model, yesNo(report.ModelIsPath), report.Device, report.ComputeType}},
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	f.StringVar(&model, "model", "", "Model directory or name")
	f.StringVar(&device, "device", "", "Device to run on (auto, cpu, cuda)")
	f.StringVar(&computeType, "compute-type", "", "Model precision, e.g. float16 or int8")
	return cmd
}

func checkModel(cmd *cobra.Command, cfg *config.Config) (modelReport, error) {
	loaded, err := whisper.Load(cmd.Context(), batchrun.WhisperConfig(cfg))
	if err != nil {
		return modelReport{}, err
	}
	gpus := loaded.GPUs(cmd.Context())
	if gpus == nil {
		gpus = []string{}
	}
	return modelReport{
		Model:       loaded.Name(),
		ModelIsPath: cfg.ModelIsPath(),
		Device:      loaded.Device(),
		ComputeType: loaded.ComputeType(),
		GPUs:        gpus,
	}, nil
}
