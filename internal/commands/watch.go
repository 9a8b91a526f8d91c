package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sync"

	"tasksheet/internal/app"
	"tasksheet/internal/config"
	"tasksheet/internal/exitcode"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command: stay in the foreground and keep
// the spreadsheet in step until interrupted. Pending changes are pushed at
// start, on every sync interval and whenever the network comes back.
// Edits to config.yaml are applied without a restart.
type WatchCmd struct{}

func (c *WatchCmd) Name() string      { return "watch" }
func (c *WatchCmd) Aliases() []string { return nil }
func (c *WatchCmd) Synopsis() string  { return "Sync in the background until interrupted" }
func (c *WatchCmd) Usage() string     { return "tasksheet watch" }
func (c *WatchCmd) NeedsApp() bool    { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if !cfg.Quiet {
		fmt.Fprintln(errOut, "watching for changes (Ctrl+C to stop)")
	}

	log := a.Logger()
	var wg sync.WaitGroup

	if p := a.Prober(); p != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := cfg.Watch(ctx, log, func(f config.File) {
			a.ApplyConfig(ctx, f)
		})
		if err != nil {
			log.Warn("config watch stopped", "error", err)
		}
	}()

	err := a.Sync.Run(ctx)
	wg.Wait()
	if err != nil {
		return fail(errOut, err)
	}
	return exitcode.Success
}
