package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"driftprint/internal/apperrors"
	"driftprint/internal/fingerprint"
)

func newHashCommand(ctx *commandContext) *cobra.Command {
	var (
		opts        hashOptions
		profileName string
		outputFlag  string
	)

	cmd := &cobra.Command{
		Use:   "hash [paths...]",
		Short: "Compute a fingerprint for paths or a configured profile",
		Long: `Compute one digest over the contents of every non-excluded file below the
given roots. Roots are hashed in sorted order and files inside a directory in
sorted relative-path order, so the result does not depend on creation order.`,
		Args: usageArgs(cobra.ArbitraryArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}

			roots := args
			var profileAlgorithm string
			if name := strings.TrimSpace(profileName); name != "" {
				if len(args) > 0 {
					return fmt.Errorf("%w: paths and --profile are mutually exclusive", apperrors.ErrUsage)
				}
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				profile, err := cfg.Profile(name)
				if err != nil {
					return fmt.Errorf("%w: %w", apperrors.ErrUsage, err)
				}
				roots = profile.Roots
				profileAlgorithm = profile.Algorithm
				opts.exclude = append(append([]string(nil), profile.Exclude...), opts.exclude...)
			}
			if len(roots) == 0 {
				return fmt.Errorf("%w: at least one path or --profile is required", apperrors.ErrUsage)
			}

			logger, err := ctx.logger(cmd.ErrOrStderr(), opts.verbose)
			if err != nil {
				return err
			}
			result, err := ctx.compute(cmd.Context(), logger, roots, profileAlgorithm, opts)
			if err != nil {
				return fmt.Errorf("hash: %w", err)
			}

			if format != outputText {
				return writeStructured(cmd, format, result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Digest)
			if len(result.Skipped) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d path(s) skipped as unreadable\n", len(result.Skipped))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.exclude, "exclude", "e", nil, "Glob pattern to exclude (repeatable)")
	flags.StringVarP(&opts.algorithm, "algorithm", "a", "", fmt.Sprintf("Hash algorithm (%s)", strings.Join(fingerprint.AlgorithmNames(), ", ")))
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log each file before it is hashed")
	flags.StringVar(&opts.unreadable, "unreadable", "", "Unreadable file policy: abort or skip (default from config)")
	flags.StringVarP(&profileName, "profile", "p", "", "Hash the roots of a configured profile")
	flags.StringVarP(&outputFlag, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}
