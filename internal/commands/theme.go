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
)

func init() {
	Register(&ThemeCmd{})
}

// ThemeCmd implements the theme command.
type ThemeCmd struct {
	color string
}

func (c *ThemeCmd) Name() string      { return "theme" }
func (c *ThemeCmd) Aliases() []string { return nil }
func (c *ThemeCmd) Synopsis() string  { return "Show or set the display theme" }
func (c *ThemeCmd) Usage() string     { return "tasksheet theme [light|dark] [--color <scheme>]" }
func (c *ThemeCmd) NeedsApp() bool    { return true }

func (c *ThemeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.color, "color", "", "")
}

func (c *ThemeCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}

	s, err := a.Settings(ctx)
	if err != nil {
		return fail(errOut, err)
	}

	if len(args) == 0 && c.color == "" {
		fmt.Fprintf(out, "%s (%s)\n", s.Theme, s.ColorScheme)
		return exitcode.Success
	}

	if len(args) == 1 {
		s.Theme = strings.ToLower(args[0])
	}
	if c.color != "" {
		s.ColorScheme = c.color
	}
	if err := a.SaveSettings(ctx, s); err != nil {
		return fail(errOut, err)
	}
	return printOK(cfg, out)
}
