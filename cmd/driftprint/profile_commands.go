package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"driftprint/internal/apperrors"
	"driftprint/internal/config"
	"driftprint/internal/drift"
	"driftprint/internal/fingerprint"
	"driftprint/internal/history"
	"driftprint/internal/logging"
	"driftprint/internal/preflight"
)

// profileRun computes the fingerprint of a configured profile with a logger
// tagged by profile and invocation id.
func (c *commandContext) profileRun(cmd *cobra.Command, name string, opts hashOptions) (context.Context, *slog.Logger, config.Profile, fingerprint.Result, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, config.Profile{}, fingerprint.Result{}, err
	}
	profile, err := cfg.Profile(name)
	if err != nil {
		return nil, nil, config.Profile{}, fingerprint.Result{}, fmt.Errorf("%w: %w", apperrors.ErrUsage, err)
	}

	base, err := c.logger(cmd.ErrOrStderr(), opts.verbose)
	if err != nil {
		return nil, nil, config.Profile{}, fingerprint.Result{}, err
	}
	ctx := logging.WithRunID(logging.WithProfile(cmd.Context(), name), uuid.NewString())
	logger := logging.WithContext(ctx, base)

	for _, check := range preflight.CheckRootsReadable("Profile "+name, profile.Roots) {
		if !check.Passed {
			logging.WarnWithContext(logger, "profile root failed preflight", "root_preflight_failed",
				slog.String("detail", check.Detail),
				slog.String(logging.FieldErrorHint, "verify the root exists and is readable by this user"),
			)
		}
	}

	opts.exclude = append(append([]string(nil), profile.Exclude...), opts.exclude...)
	result, err := c.compute(ctx, logger, profile.Roots, profile.Algorithm, opts)
	if err != nil {
		return nil, nil, config.Profile{}, fingerprint.Result{}, fmt.Errorf("fingerprint profile %s: %w", name, err)
	}
	return ctx, logger, profile, result, nil
}

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	var (
		opts       hashOptions
		keep       int
		outputFlag string
	)

	cmd := &cobra.Command{
		Use:   "snapshot <profile>",
		Short: "Fingerprint a profile and record the run as its new baseline",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}
			if keep < 0 {
				return fmt.Errorf("%w: --keep must be >= 0", apperrors.ErrUsage)
			}
			name := strings.TrimSpace(args[0])
			runCtx, logger, profile, result, err := ctx.profileRun(cmd, name, opts)
			if err != nil {
				return err
			}

			var saved *history.Run
			err = ctx.withHistory(func(store *history.Store) error {
				run, err := store.Record(runCtx, history.NewRun(name, profile.Exclude, result))
				if err != nil {
					return err
				}
				saved = run
				if keep > 0 {
					removed, err := store.Prune(runCtx, name, keep)
					if err != nil {
						return err
					}
					if removed > 0 {
						logger.Info("pruned old runs", slog.Int64("removed", removed), slog.Int("keep", keep))
					}
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("snapshot %s: %w", name, err)
			}
			logger.Info("snapshot recorded",
				slog.String("id", saved.ID),
				slog.String("digest", saved.Digest),
				slog.Int("files", saved.FileCount),
			)

			if format != outputText {
				return writeStructured(cmd, format, saved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (%d files, run %s)\n", saved.Digest, name, saved.FileCount, saved.ID)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log each file before it is hashed")
	flags.StringVar(&opts.unreadable, "unreadable", "", "Unreadable file policy: abort or skip (default from config)")
	flags.IntVar(&keep, "keep", 0, "Prune history to the newest N runs after recording (0 keeps all)")
	flags.StringVarP(&outputFlag, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var (
		opts       hashOptions
		update     bool
		outputFlag string
	)

	cmd := &cobra.Command{
		Use:   "check <profile>",
		Short: "Compare a profile against its latest recorded run",
		Long: `Fingerprint the profile and compare it with the newest run in history.
Exits with status 3 when the digest differs or the runs are not comparable.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			runCtx, logger, profile, result, err := ctx.profileRun(cmd, name, opts)
			if err != nil {
				return err
			}

			var report drift.Report
			err = ctx.withHistory(func(store *history.Store) error {
				baseline, err := store.Latest(runCtx, name)
				if err != nil {
					return err
				}
				report = drift.Compare(result, baseline)
				report.Profile = name
				if update && report.Drifted() {
					if _, err := store.Record(runCtx, history.NewRun(name, profile.Exclude, result)); err != nil {
						return err
					}
					logger.Info("baseline updated", slog.String("digest", result.Digest))
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("check %s: %w", name, err)
			}

			if format != outputText {
				if err := writeStructured(cmd, format, report); err != nil {
					return err
				}
			} else {
				writeReport(cmd, report)
			}

			switch {
			case report.Status == drift.StatusNoBaseline:
				return fmt.Errorf("check %s: no baseline recorded; run `driftprint snapshot %s` first", name, name)
			case report.Drifted():
				return fmt.Errorf("check %s: %w", name, apperrors.ErrDrift)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log each file before it is hashed")
	flags.StringVar(&opts.unreadable, "unreadable", "", "Unreadable file policy: abort or skip (default from config)")
	flags.BoolVar(&update, "update", false, "Record the new run as baseline when drift is found")
	flags.StringVarP(&outputFlag, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}

func writeReport(cmd *cobra.Command, report drift.Report) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	var kind statusKind
	switch report.Status {
	case drift.StatusUnchanged:
		kind = statusOK
	case drift.StatusNoBaseline:
		kind = statusWarn
	default:
		kind = statusError
	}
	message := string(report.Status)
	if report.Reason != "" {
		message += " (" + report.Reason + ")"
	}
	fmt.Fprintln(out, renderStatusLine(report.Profile, kind, message, colorize))
	if report.BaselineDigest != "" {
		fmt.Fprintln(out, renderStatusLine("Baseline", statusInfo, report.BaselineDigest, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Current", statusInfo, report.CurrentDigest, colorize))

	for _, group := range []struct {
		title string
		paths []string
	}{
		{"Added", report.Added},
		{"Removed", report.Removed},
		{"Resized", report.Resized},
	} {
		if len(group.paths) == 0 {
			continue
		}
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader(fmt.Sprintf("%s (%d)", group.title, len(group.paths)), colorize) {
			fmt.Fprintln(out, line)
		}
		for _, p := range group.paths {
			fmt.Fprintln(out, statusIndent+p)
		}
	}
}
