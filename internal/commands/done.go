package commands

import (
	"context"
	"flag"
	"io"

	"tasksheet/internal/app"
	"tasksheet/internal/config"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. Running it on a completed task
// reopens it.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string  { return "Mark a task completed, or reopen it" }
func (c *DoneCmd) Usage() string     { return "tasksheet done <ref>" }
func (c *DoneCmd) NeedsApp() bool    { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	t, code, found := resolveRef(a, args, errOut)
	if !found {
		return code
	}

	if _, err := a.Tasks.Toggle(ctx, t.ID); err != nil {
		return fail(errOut, err)
	}
	return printOK(cfg, out)
}
