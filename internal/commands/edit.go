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
)

func init() {
	Register(&FieldCmd{
		name:     "edit",
		synopsis: "Change the text of a task",
		usage:    "tasksheet edit <ref> <text...>",
		field:    task.FieldText,
		required: true,
	})
	Register(&FieldCmd{
		name:     "priority",
		synopsis: "Set the priority of a task",
		usage:    "tasksheet priority <ref> high|medium|low",
		field:    task.FieldPriority,
		required: true,
	})
	Register(&FieldCmd{
		name:     "due",
		synopsis: "Set or clear the due date of a task",
		usage:    "tasksheet due <ref> <YYYY-MM-DD>|none",
		field:    task.FieldDueDate,
		required: true,
		clear:    "none",
	})
	Register(&FieldCmd{
		name:     "category",
		synopsis: "Set the category of a task",
		usage:    "tasksheet category <ref> <name>",
		field:    task.FieldCategory,
		required: true,
	})
	Register(&FieldCmd{
		name:     "note",
		synopsis: "Set or clear the note of a task",
		usage:    "tasksheet note <ref> [text...]",
		field:    task.FieldNote,
	})
}

// FieldCmd implements the commands that change a single task field.
type FieldCmd struct {
	name     string
	synopsis string
	usage    string
	field    string

	// required rejects a missing value.
	required bool

	// clear, if set, is the value word that empties the field.
	clear string
}

func (c *FieldCmd) Name() string      { return c.name }
func (c *FieldCmd) Aliases() []string { return nil }
func (c *FieldCmd) Synopsis() string  { return c.synopsis }
func (c *FieldCmd) Usage() string     { return c.usage }
func (c *FieldCmd) NeedsApp() bool    { return true }

func (c *FieldCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *FieldCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	t, code, found := resolveRef(a, args, errOut)
	if !found {
		return code
	}

	value := strings.TrimSpace(strings.Join(args[1:], " "))
	if value == "" && c.required {
		fmt.Fprintln(errOut, "error: value required")
		return exitcode.UserError
	}
	if c.clear != "" && strings.EqualFold(value, c.clear) {
		value = ""
	}

	var err error
	if c.field == task.FieldText {
		_, err = a.Tasks.EditText(ctx, t.ID, value)
	} else {
		_, err = a.Tasks.Set(ctx, t.ID, c.field, value)
	}
	if err != nil {
		return fail(errOut, err)
	}
	return printOK(cfg, out)
}
