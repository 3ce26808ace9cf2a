package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"driftprint/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check state directories, algorithm and profile roots",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			failed := preflight.Failed(results)

			if format != outputText {
				if err := writeStructured(cmd, format, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("driftprint doctor", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configLabel(ctx), colorize))
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}

			if len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}

func configLabel(ctx *commandContext) string {
	if ctx.configSeen {
		return ctx.configPath
	}
	return ctx.configPath + " (not found, using defaults)"
}
