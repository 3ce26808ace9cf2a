package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"driftprint/internal/buildinfo"
)

func newVersionCommand() *cobra.Command {
	var outputFlag string
	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}
			info := buildinfo.Get()
			if format != outputText {
				return writeStructured(cmd, format, info)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return err
		},
	}
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}
