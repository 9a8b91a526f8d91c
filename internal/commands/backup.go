package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"tasksheet/internal/app"
	"tasksheet/internal/config"
	"tasksheet/internal/exitcode"
)

func init() {
	Register(&ExportCmd{})
	Register(&ImportCmd{})
}

// ExportCmd implements the export command.
type ExportCmd struct{}

func (c *ExportCmd) Name() string      { return "export" }
func (c *ExportCmd) Aliases() []string { return nil }
func (c *ExportCmd) Synopsis() string  { return "Write tasks and settings as JSON" }
func (c *ExportCmd) Usage() string     { return "tasksheet export [file]" }
func (c *ExportCmd) NeedsApp() bool    { return true }

func (c *ExportCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ExportCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}

	// Without a file the backup itself is the output.
	if len(args) == 0 {
		if _, err := a.Export(ctx, out); err != nil {
			return fail(errOut, err)
		}
		return exitcode.Success
	}

	f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	n, err := a.Export(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "exported %d tasks\n", n)
	}
	return exitcode.Success
}

// ImportCmd implements the import command.
type ImportCmd struct{}

func (c *ImportCmd) Name() string      { return "import" }
func (c *ImportCmd) Aliases() []string { return nil }
func (c *ImportCmd) Synopsis() string  { return "Replace tasks from a JSON backup" }
func (c *ImportCmd) Usage() string     { return "tasksheet import <file>" }
func (c *ImportCmd) NeedsApp() bool    { return true }

func (c *ImportCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ImportCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: file required")
		return exitcode.UserError
	}

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	defer f.Close()

	n, err := a.Import(ctx, f)
	if err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "imported %d tasks\n", n)
	}
	return exitcode.Success
}
