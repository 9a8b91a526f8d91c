package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"

	"tasksheet/internal/app"
	"tasksheet/internal/config"
	"tasksheet/internal/exitcode"
	"tasksheet/internal/remote"
)

func init() {
	Register(&EndpointCmd{})
}

// EndpointCmd implements the endpoint command: show, save or clear the
// deployed script URL.
type EndpointCmd struct {
	clear bool
}

func (c *EndpointCmd) Name() string      { return "endpoint" }
func (c *EndpointCmd) Aliases() []string { return nil }
func (c *EndpointCmd) Synopsis() string  { return "Show or set the script endpoint URL" }
func (c *EndpointCmd) Usage() string     { return "tasksheet endpoint [<url> | --clear]" }
func (c *EndpointCmd) NeedsApp() bool    { return true }

func (c *EndpointCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.clear, "clear", false, "")
}

func (c *EndpointCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if cfg.File.Backend != config.BackendScript {
		fmt.Fprintf(errOut, "error: endpoint is not used by the %s backend\n", cfg.File.Backend)
		return exitcode.UserError
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}

	switch {
	case c.clear && len(args) > 0:
		fmt.Fprintln(errOut, "error: cannot use both --clear and a url")
		return exitcode.UserError
	case c.clear:
		return c.save(ctx, cfg, a, "", out, errOut)
	case len(args) == 1:
		if err := validateEndpoint(args[0]); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		return c.save(ctx, cfg, a, args[0], out, errOut)
	}

	if !remote.IsConfigured(a.Endpoint()) {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not configured")
		}
		return exitcode.Success
	}
	fmt.Fprintf(out, "%s (%s)\n", a.Endpoint(), a.EndpointSource())
	return exitcode.Success
}

func (c *EndpointCmd) save(ctx context.Context, cfg *config.Config, a *app.App, raw string, out, errOut io.Writer) int {
	effective, err := a.SetEndpoint(ctx, raw)
	if err != nil {
		return fail(errOut, err)
	}
	if effective != raw && effective != "" {
		fmt.Fprintf(errOut, "warning: %s overrides the saved endpoint\n", a.EndpointSource())
	}
	return printOK(cfg, out)
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("invalid endpoint url: %s", raw)
	}
	return nil
}
