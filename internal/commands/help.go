package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksheet/internal/app"
	"tasksheet/internal/config"
	"tasksheet/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasksheet help" }
func (c *HelpCmd) NeedsApp() bool    { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasksheet                                   List all tasks
  tasksheet list [--status <s>] [--priority <p>] [--search <text>]
  tasksheet add [--priority <p>] [--due <date>] [--category <name>] [--note <text>] <text...>
  tasksheet done <ref>                        Complete or reopen a task
  tasksheet edit <ref> <text...>
  tasksheet priority <ref> high|medium|low
  tasksheet due <ref> <YYYY-MM-DD>|none
  tasksheet category <ref> <name>
  tasksheet note <ref> [text...]
  tasksheet rm <ref>
  tasksheet clear                             Delete completed tasks
  tasksheet sync [--pull | --push]
  tasksheet status
  tasksheet endpoint [<url> | --clear]
  tasksheet watch                             Sync until interrupted
  tasksheet serve [--addr <host:port>]        Run a local sync endpoint
  tasksheet export [file]
  tasksheet import <file>
  tasksheet theme [light|dark] [--color <scheme>]
  tasksheet login
  tasksheet logout
  tasksheet help
  tasksheet version

A <ref> is the number shown by list, or id:<task id>.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
  --offline        Keep changes local; do not contact the endpoint
`
