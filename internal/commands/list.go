package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasksheet/internal/app"
	"tasksheet/internal/config"
	"tasksheet/internal/exitcode"
	"tasksheet/internal/output"
	"tasksheet/internal/task"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `tasksheet` (no args) and `tasksheet list [filters] [search...]`.
type ListCmd struct {
	status   string
	priority string
	search   string
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "tasksheet list [--status all|pending|completed] [--priority <p>] [--search <text>]"
}
func (c *ListCmd) NeedsApp() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.status, "status", task.StatusAll, "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.priority, "p", "", "")
	fs.StringVar(&c.search, "search", "", "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	filter, err := c.filter(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	// Numbers always count through the full listing so a filtered view
	// shows the same reference a later done/rm accepts.
	shown := 0
	for i, t := range a.Tasks.Sorted(task.Filter{}) {
		if !filter.Match(t) {
			continue
		}
		output.FormatTask(out, i+1, t)
		shown++
	}

	if shown == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}

func (c *ListCmd) filter(args []string) (task.Filter, error) {
	f := task.Filter{Status: strings.ToLower(strings.TrimSpace(c.status)), Query: c.search}
	switch f.Status {
	case task.StatusAll, task.StatusPending, task.StatusCompleted:
	case "":
		f.Status = task.StatusAll
	default:
		return task.Filter{}, fmt.Errorf("invalid status: %s", c.status)
	}

	if c.priority != "" {
		p, err := task.ParsePriority(c.priority)
		if err != nil {
			return task.Filter{}, err
		}
		f.Priority = p
	}

	// Trailing words are a search, as if passed to --search.
	if len(args) > 0 {
		if f.Query != "" {
			return task.Filter{}, fmt.Errorf("cannot use both --search and search words")
		}
		f.Query = strings.Join(args, " ")
	}
	return f, nil
}
