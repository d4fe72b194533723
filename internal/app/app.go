// internal/app/app.go
// Package app wires the CLI: command tree, exit codes, and the run
// orchestration that connects splitter, scheduler, sieve, audit log and
// output assembler.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Version is stamped by the release build via -ldflags.
var Version = "dev"

// Exit codes. Usage and configuration problems are distinguished from
// runtime failures so batch drivers can tell a typo from a broken disk.
const (
	ExitOK         = 0
	ExitRuntime    = 1
	ExitUsage      = 2
	ExitNoAccepted = 3
)

type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &exitErr{code: ExitUsage, err: fmt.Errorf(format, args...)}
}

func runtimef(format string, args ...any) error {
	return &exitErr{code: ExitRuntime, err: fmt.Errorf(format, args...)}
}

// errNoAccepted signals a clean run that kept zero records.
var errNoAccepted = &exitErr{code: ExitNoAccepted, err: errors.New("no records accepted")}

// Execute runs the CLI and returns the process exit code. Errors our
// commands raise carry their own code; anything else surfaced by the
// command tree is a parse or usage problem.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	var ee *exitErr
	if errors.As(err, &ee) {
		fmt.Fprintln(stderr, "chemsift:", ee.err)
		return ee.code
	}
	fmt.Fprintln(stderr, "chemsift:", err)
	return ExitUsage
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chemsift",
		Short:         "screen huge compound catalogs down to the interesting subset",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "debug logging (per-chunk progress)")
	root.AddCommand(newRunCmd(), newMergeCmd(), newReportCmd())
	return root
}
