package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"tasksheet/internal/app"
	"tasksheet/internal/config"
	"tasksheet/internal/exitcode"
	"tasksheet/internal/output"
	"tasksheet/internal/remote"
	"tasksheet/internal/task"
)

func init() {
	Register(&StatusCmd{})
}

// StatusCmd implements the status command.
type StatusCmd struct{}

func (c *StatusCmd) Name() string      { return "status" }
func (c *StatusCmd) Aliases() []string { return nil }
func (c *StatusCmd) Synopsis() string  { return "Show sync state and progress" }
func (c *StatusCmd) Usage() string     { return "tasksheet status" }
func (c *StatusCmd) NeedsApp() bool    { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	output.FormatField(out, "backend", cfg.File.Backend)
	switch cfg.File.Backend {
	case config.BackendSheets:
		sheet := cfg.File.SpreadsheetID
		if sheet == "" {
			sheet = "not configured"
		}
		output.FormatField(out, "sheet", sheet)
	default:
		endpoint := "not configured"
		if remote.IsConfigured(a.Endpoint()) {
			endpoint = fmt.Sprintf("%s (%s)", a.Endpoint(), a.EndpointSource())
		}
		output.FormatField(out, "endpoint", endpoint)
	}

	output.FormatField(out, "pending", strconv.Itoa(a.Sync.PendingCount()))
	output.FormatField(out, "last sync", output.FormatTime(a.Sync.LastSyncAt()))

	fmt.Fprintf(out, "%-11s", "tasks:")
	output.FormatProgress(out, task.Summarize(a.Tasks.All()))
	return exitcode.Success
}
