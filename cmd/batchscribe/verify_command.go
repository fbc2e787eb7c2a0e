package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"batchscribe/internal/services"
	"batchscribe/internal/subtitles"
)

func newVerifyCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "verify <file.srt>",
		Short:       "Check SRT numbering and timestamps",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cues, err := subtitles.ParseFile(args[0])
			if err != nil {
				return err
			}
			report := subtitles.Validate(cues)
			if asJSON {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				for _, issue := range report.Errors {
					fmt.Fprintf(out, "error   cue %d [%s] %s\n", issue.Cue, issue.Code, issue.Message)
				}
				for _, issue := range report.Warnings {
					fmt.Fprintf(out, "warning cue %d [%s] %s\n", issue.Cue, issue.Code, issue.Message)
				}
				fmt.Fprintf(out, "%d cue(s), last ends at %s, %d error(s), %d warning(s)\n",
					report.Cues, subtitles.FormatTimestamp(report.Last), len(report.Errors), len(report.Warnings))
			}
			if !report.OK() {
				return services.Wrap(services.ErrValidation, "verify", "validate srt", args[0], fmt.Errorf("%d error(s)", len(report.Errors)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the validation report as JSON")
	return cmd
}
