package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"driftprint/internal/apperrors"
	"driftprint/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		outputFlag string
	)

	cmd := &cobra.Command{
		Use:   "history <profile>",
		Short: "List recorded runs for a profile",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			var runs []*history.Run
			err = ctx.withHistory(func(store *history.Store) error {
				var err error
				runs, err = store.List(cmd.Context(), name, limit)
				return err
			})
			if err != nil {
				return fmt.Errorf("history %s: %w", name, err)
			}

			if format != outputText {
				if runs == nil {
					runs = []*history.Run{}
				}
				return writeStructured(cmd, format, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintf(out, "No runs recorded for profile %s\n", name)
				return nil
			}
			fmt.Fprintln(out, renderRunTable(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "text", "Output format: text, json or yaml")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var (
		outputFlag string
		files      bool
	)
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a recorded run",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])
			var run *history.Run
			err = ctx.withHistory(func(store *history.Store) error {
				var err error
				run, err = store.Get(cmd.Context(), id)
				return err
			})
			if err != nil {
				return fmt.Errorf("history show: %w", err)
			}
			if run == nil {
				return fmt.Errorf("history show: run %s not found", id)
			}

			if format != outputText {
				if files {
					return writeStructured(cmd, format, struct {
						history.Run `yaml:",inline"`
						Files       []history.Entry `json:"files" yaml:"files"`
					}{*run, run.Manifest})
				}
				return writeStructured(cmd, format, run)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := []struct{ label, value string }{
				{"Run", run.ID},
				{"Profile", run.Profile},
				{"Recorded", run.CreatedAt.Local().Format(time.DateTime)},
				{"Algorithm", run.Algorithm},
				{"Digest", run.Digest},
				{"Roots", strings.Join(run.Roots, ", ")},
				{"Exclude", strings.Join(run.Exclude, ", ")},
				{"Files", strconv.Itoa(run.FileCount)},
				{"Bytes", strconv.FormatInt(run.Bytes, 10)},
				{"Skipped", strconv.Itoa(run.Skipped)},
			}
			for _, row := range rows {
				fmt.Fprintln(out, renderStatusLine(row.label, statusInfo, row.value, colorize))
			}
			if files {
				fmt.Fprintln(out)
				for _, entry := range run.Manifest {
					fmt.Fprintln(out, statusIndent+entry.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "text", "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&files, "files", false, "Include the hashed file manifest")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune <profile>",
		Short: "Delete all but the newest runs of a profile",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return fmt.Errorf("%w: --keep must be >= 0", apperrors.ErrUsage)
			}
			name := strings.TrimSpace(args[0])
			var removed int64
			err := ctx.withHistory(func(store *history.Store) error {
				var err error
				removed, err = store.Prune(cmd.Context(), name, keep)
				return err
			})
			if err != nil {
				return fmt.Errorf("history prune %s: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s) from %s\n", removed, name)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 1, "Number of newest runs to keep")
	return cmd
}

func renderRunTable(runs []*history.Run) string {
	headers := []string{"Run", "Recorded", "Algorithm", "Files", "Bytes", "Digest"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shorten(run.ID, 8),
			run.CreatedAt.Local().Format(time.DateTime),
			run.Algorithm,
			strconv.Itoa(run.FileCount),
			strconv.FormatInt(run.Bytes, 10),
			shorten(run.Digest, 16),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft})
}

func shorten(value string, n int) string {
	if len(value) <= n {
		return value
	}
	return value[:n]
}
