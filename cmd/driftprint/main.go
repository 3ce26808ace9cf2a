package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"driftprint/internal/apperrors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and maps the outcome to an exit code.
// Drift and interruption are reported by the commands themselves.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, apperrors.ErrDrift) {
		fmt.Fprintf(stderr, "driftprint: %v\n", err)
	}
	return apperrors.ExitCode(err)
}
