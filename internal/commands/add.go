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
	"tasksheet/internal/task"
	"tasksheet/internal/tasklist"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	priority string
	due      string
	category string
	note     string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "tasksheet add [--priority <p>] [--due <YYYY-MM-DD>] [--category <name>] [--note <text>] <text...>"
}
func (c *AddCmd) NeedsApp() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.priority, "p", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
	fs.StringVar(&c.note, "note", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(errOut, "error: text required")
		return exitcode.UserError
	}

	_, err := a.Tasks.Add(ctx, text, tasklist.AddOptions{
		Priority: task.Priority(c.priority),
		Category: c.category,
		DueDate:  c.due,
		Note:     c.note,
	})
	if err != nil {
		return fail(errOut, err)
	}
	return printOK(cfg, out)
}
