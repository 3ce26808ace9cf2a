package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"driftprint/internal/apperrors"
)

type outputFormat string

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)

func parseOutputFormat(value string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(value))); f {
	case "", outputText:
		return outputText, nil
	case outputJSON, outputYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unsupported output format %q (want text, json or yaml)", apperrors.ErrUsage, value)
	}
}

// writeStructured encodes v to the command's stdout in the requested format.
func writeStructured(cmd *cobra.Command, format outputFormat, v any) error {
	switch format {
	case outputYAML:
		return writeYAML(cmd, v)
	default:
		return writeJSON(cmd, v)
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
