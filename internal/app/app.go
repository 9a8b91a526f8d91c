// Package app assembles the local store, the remote client and the sync
// machinery for one process.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"tasksheet/internal/config"
	"tasksheet/internal/netwatch"
	"tasksheet/internal/remote"
	"tasksheet/internal/remote/sheets"
	"tasksheet/internal/store"
	"tasksheet/internal/syncer"
	"tasksheet/internal/syncq"
	"tasksheet/internal/tasklist"
)

// Deps overrides the components New would otherwise build from config.
// Zero fields are built normally.
type Deps struct {
	Store   store.Store
	Remote  remote.Client
	Network netwatch.Monitor
	Logger  *slog.Logger
	HTTP    *http.Client

	// LogCloser, if set, is closed last by Close.
	LogCloser io.Closer
}

// App is the running application state.
type App struct {
	cfg *config.Config
	log *slog.Logger

	store     store.Store
	closer    io.Closer
	logCloser io.Closer
	remote    remote.Client
	script    *remote.ScriptClient
	prober    *netwatch.Prober

	Queue *syncq.Queue
	Sync  *syncer.Orchestrator
	Tasks *tasklist.List
}

// New opens the store, restores the task list and the pending queue, and
// wires them to the configured remote.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	a := &App{cfg: cfg, log: deps.Logger, logCloser: deps.LogCloser}
	if a.log == nil {
		a.log = slog.New(slog.DiscardHandler)
	}

	a.store = deps.Store
	if a.store == nil {
		db, err := store.OpenSQLite(ctx, cfg.DatabasePath())
		if err != nil {
			return nil, err
		}
		a.store, a.closer = db, db
	}

	if err := a.buildRemote(ctx, deps); err != nil {
		a.closeStore()
		return nil, err
	}

	network := deps.Network
	switch {
	case network != nil:
	case cfg.Offline:
		network = netwatch.NewStatic(false)
	default:
		a.prober = netwatch.NewProber(
			netwatch.TargetFromURL(a.Endpoint()),
			netwatch.WithInterval(cfg.File.ProbeInterval),
			netwatch.WithLogger(a.log),
		)
		network = a.prober
	}

	a.Queue = syncq.New(a.store, a.remote,
		syncq.WithMonitor(network),
		syncq.WithLogger(a.log),
	)
	if err := a.Queue.Load(ctx); err != nil {
		a.closeStore()
		return nil, err
	}

	a.Sync = syncer.New(a.Queue, a.remote, syncer.Config{
		Debounce: cfg.File.Debounce,
		Interval: cfg.File.SyncInterval,
		Network:  network,
		Logger:   a.log,
	})

	a.Tasks = tasklist.New(a.store, a.Sync, tasklist.WithLogger(a.log))
	if err := a.Tasks.Load(ctx); err != nil {
		a.closeStore()
		return nil, err
	}
	return a, nil
}

func (a *App) buildRemote(ctx context.Context, deps Deps) error {
	if deps.Remote != nil {
		a.remote = deps.Remote
		return nil
	}

	switch a.cfg.File.Backend {
	case config.BackendSheets:
		if a.cfg.Offline || !a.cfg.HasToken() {
			// Without a token nothing can be sent; queue nothing either.
			a.remote = remote.Disabled{}
			return nil
		}
		c, err := sheets.New(ctx, a.cfg, a.log)
		if err != nil {
			return fmt.Errorf("failed to create sheets client: %w", err)
		}
		a.remote = c
	default:
		saved, err := a.savedEndpoint(ctx)
		if err != nil {
			return err
		}
		opts := []remote.Option{
			remote.WithTimeout(a.cfg.File.HTTPTimeout),
			remote.WithLogger(a.log),
		}
		if deps.HTTP != nil {
			opts = append(opts, remote.WithHTTPClient(deps.HTTP))
		}
		a.script = remote.NewScriptClient(a.cfg.ResolveEndpoint(saved), opts...)
		a.remote = a.script
	}
	return nil
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.log }

// Remote returns the remote client.
func (a *App) Remote() remote.Client { return a.remote }

// Prober returns the network prober, or nil when connectivity is fixed.
func (a *App) Prober() *netwatch.Prober { return a.prober }

// Endpoint returns the endpoint URL in use, or "" for the sheets backend.
func (a *App) Endpoint() string {
	if a.script == nil {
		return ""
	}
	return a.script.Endpoint()
}

// EndpointSource names where the endpoint came from.
func (a *App) EndpointSource() string {
	switch {
	case a.script == nil:
		return ""
	case strings.TrimSpace(os.Getenv(config.EndpointEnv)) != "":
		return "environment"
	case strings.TrimSpace(a.cfg.File.Endpoint) != "":
		return config.ConfigFile
	case a.script.Endpoint() != "":
		return "saved"
	}
	return ""
}

// SetEndpoint saves url as the endpoint and switches to it, unless the
// environment or config file overrides it. An empty url clears the saved
// value. Reports the endpoint now in effect.
func (a *App) SetEndpoint(ctx context.Context, url string) (string, error) {
	url = strings.TrimSpace(url)
	var err error
	if url == "" {
		err = a.store.Delete(ctx, store.KeyEndpoint)
	} else {
		err = store.SaveJSON(ctx, a.store, store.KeyEndpoint, url)
	}
	if err != nil {
		return "", fmt.Errorf("failed to save endpoint: %w", err)
	}
	return a.applyEndpoint(a.cfg.ResolveEndpoint(url)), nil
}

// ApplyConfig switches to a reloaded config file.
func (a *App) ApplyConfig(ctx context.Context, f config.File) {
	a.cfg.File = f
	saved, err := a.savedEndpoint(ctx)
	if err != nil {
		a.log.Warn("failed to read saved endpoint", "error", err)
	}
	a.applyEndpoint(a.cfg.ResolveEndpoint(saved))
}

func (a *App) applyEndpoint(url string) string {
	if a.script == nil {
		return ""
	}
	if url != a.script.Endpoint() {
		a.log.Info("endpoint changed", "configured", remote.IsConfigured(url))
	}
	a.script.SetEndpoint(url)
	if a.prober != nil {
		a.prober.SetTarget(netwatch.TargetFromURL(url))
	}
	return url
}

func (a *App) savedEndpoint(ctx context.Context) (string, error) {
	var saved string
	if _, err := store.LoadJSON(ctx, a.store, store.KeyEndpoint, &saved); err != nil {
		return "", fmt.Errorf("failed to load endpoint: %w", err)
	}
	return saved, nil
}

// Close flushes a pending debounced sync when configured to, then closes
// the store and the log.
func (a *App) Close(ctx context.Context) error {
	if a.cfg.File.FlushOnExit {
		if res, ran := a.Sync.Flush(ctx); ran && res.Ran() {
			a.log.Info("flushed pending changes on exit", "applied", res.Applied, "remaining", res.Remaining)
		}
	}
	err := a.closeStore()
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
	return err
}

func (a *App) closeStore() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	if err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
