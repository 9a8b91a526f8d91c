// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"tasksheet/internal/app"
	"tasksheet/internal/config"
	"tasksheet/internal/exitcode"
	"tasksheet/internal/task"
	"tasksheet/internal/tasklist"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsApp returns true if the command works on the task list and needs
	// the store and sync machinery opened. Commands like help, version,
	// login, logout and serve return false.
	NeedsApp() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths).
	// a is nil if NeedsApp() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int
}

// userErrors are the failures caused by the arguments rather than storage.
var userErrors = []error{
	tasklist.ErrNotFound,
	tasklist.ErrEmptyText,
	task.ErrInvalidPriority,
	task.ErrInvalidDate,
	task.ErrInvalidField,
	app.ErrInvalidTheme,
	app.ErrInvalidBackup,
}

// fail prints err and returns the matching exit code.
func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitcode.UserError
		}
	}
	return exitcode.BackendError
}

// printOK prints the success marker unless quiet.
func printOK(cfg *config.Config, out io.Writer) int {
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
