package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksheet/internal/app"
	"tasksheet/internal/config"
	"tasksheet/internal/exitcode"
	"tasksheet/internal/syncq"
)

func init() {
	Register(&SyncCmd{})
}

// SyncCmd implements the sync command.
//
//	sync          push pending changes now
//	sync --pull   replace the local tasks with the remote copy
//	sync --push   replace the remote copy with the local tasks
type SyncCmd struct {
	pull bool
	push bool
}

func (c *SyncCmd) Name() string      { return "sync" }
func (c *SyncCmd) Aliases() []string { return nil }
func (c *SyncCmd) Synopsis() string  { return "Sync with the spreadsheet" }
func (c *SyncCmd) Usage() string     { return "tasksheet sync [--pull | --push]" }
func (c *SyncCmd) NeedsApp() bool    { return true }

func (c *SyncCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.pull, "pull", false, "")
	fs.BoolVar(&c.push, "push", false, "")
}

func (c *SyncCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if c.pull && c.push {
		fmt.Fprintln(errOut, "error: cannot use both --pull and --push")
		return exitcode.UserError
	}
	if !a.Sync.Configured() {
		fmt.Fprintln(errOut, "error: sync not configured (run: tasksheet endpoint <url>)")
		return exitcode.AuthError
	}

	switch {
	case c.pull:
		return c.runPull(ctx, cfg, a, out, errOut)
	case c.push:
		return c.runPush(ctx, cfg, a, out, errOut)
	}
	return c.runDrain(ctx, cfg, a, out, errOut)
}

func (c *SyncCmd) runDrain(ctx context.Context, cfg *config.Config, a *app.App, out, errOut io.Writer) int {
	res := a.Sync.SyncNow(ctx)
	switch res.Skipped {
	case syncq.NotSkipped:
	case syncq.SkipEmpty:
		if !cfg.Quiet {
			fmt.Fprintln(out, "nothing to sync")
		}
		return exitcode.Success
	case syncq.SkipOffline:
		fmt.Fprintf(errOut, "error: offline, %d changes pending\n", a.Sync.PendingCount())
		return exitcode.BackendError
	default:
		fmt.Fprintf(errOut, "error: %s\n", res.Skipped)
		return exitcode.BackendError
	}

	if res.Err != nil {
		fmt.Fprintf(errOut, "error: %v\n", res.Err)
		return exitcode.BackendError
	}
	if res.Failed > 0 {
		fmt.Fprintf(errOut, "error: %d of %d changes failed, %d pending\n", res.Failed, res.Attempted, res.Remaining)
		return exitcode.BackendError
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "synced %d changes\n", res.Applied)
	}
	return exitcode.Success
}

func (c *SyncCmd) runPull(ctx context.Context, cfg *config.Config, a *app.App, out, errOut io.Writer) int {
	res := a.Sync.FullSync(ctx)
	if !res.Success {
		fmt.Fprintf(errOut, "error: backend error: %s\n", res.Error)
		return exitcode.BackendError
	}
	if err := a.Tasks.Replace(ctx, res.Tasks); err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "pulled %d tasks\n", len(res.Tasks))
	}
	return exitcode.Success
}

func (c *SyncCmd) runPush(ctx context.Context, cfg *config.Config, a *app.App, out, errOut io.Writer) int {
	res := a.Sync.PushAll(ctx, a.Tasks.All())
	if !res.Success {
		fmt.Fprintf(errOut, "error: backend error: %s\n", res.Error)
		return exitcode.BackendError
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "pushed %d tasks\n", res.Count)
	}
	return exitcode.Success
}
