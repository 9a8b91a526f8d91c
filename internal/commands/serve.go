package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"tasksheet/internal/app"
	"tasksheet/internal/config"
	"tasksheet/internal/endpoint"
	"tasksheet/internal/exitcode"
)

const (
	// DefaultServeAddr is the listen address of the local endpoint.
	DefaultServeAddr = "127.0.0.1:8787"

	serveShutdownTimeout = 5 * time.Second
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd implements the serve command: run a local, in-memory sync
// endpoint that speaks the same protocol as the deployed script.
type ServeCmd struct {
	addr string
}

func (c *ServeCmd) Name() string      { return "serve" }
func (c *ServeCmd) Aliases() []string { return nil }
func (c *ServeCmd) Synopsis() string  { return "Run a local sync endpoint" }
func (c *ServeCmd) Usage() string     { return "tasksheet serve [--addr <host:port>]" }
func (c *ServeCmd) NeedsApp() bool    { return false }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", DefaultServeAddr, "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	listener, err := net.Listen("tcp", c.addr)
	if err != nil {
		fmt.Fprintf(errOut, "error: could not listen on %s: %v\n", c.addr, err)
		return exitcode.UserError
	}

	server := &http.Server{
		Handler:           endpoint.New(log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	if !cfg.Quiet {
		fmt.Fprintf(out, "serving on http://%s/exec\n", listener.Addr())
	}

	select {
	case err := <-errCh:
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
