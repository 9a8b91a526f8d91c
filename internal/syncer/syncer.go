// Package syncer decides when pending changes are pushed to the remote:
// shortly after edits, on a fixed interval, when the network comes back,
// and on request.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tasksheet/internal/netwatch"
	"tasksheet/internal/remote"
	"tasksheet/internal/syncq"
	"tasksheet/internal/task"
)

// Config holds orchestrator settings.
type Config struct {
	// Debounce is the quiet period after the last enqueue before a drain.
	Debounce time.Duration

	// Interval is the period of background drains.
	Interval time.Duration

	// Network, if it is a netwatch.Notifier, triggers a drain on restore.
	Network netwatch.Monitor

	Logger *slog.Logger
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		Debounce: 2 * time.Second,
		Interval: 5 * time.Minute,
	}
}

// FullSyncResult is the outcome of pulling the remote collection.
type FullSyncResult struct {
	Success bool
	Tasks   []task.Task
	Error   string
}

// PushResult is the outcome of a bulk replace.
type PushResult struct {
	Success bool
	Count   int
	Error   string
}

// Orchestrator owns a queue and triggers its drains. It is safe for
// concurrent use.
type Orchestrator struct {
	queue  *syncq.Queue
	remote remote.Client
	cfg    Config
	log    *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	ctx   context.Context

	// fired counts debounced drains that are running.
	fired sync.WaitGroup
}

// New creates an orchestrator. Zero durations in cfg take the defaults.
func New(q *syncq.Queue, rc remote.Client, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		queue:  q,
		remote: rc,
		cfg:    cfg,
		log:    log,
		ctx:    context.Background(),
	}
}

// Configured reports whether the remote can be used.
func (o *Orchestrator) Configured() bool {
	return o.remote.Configured()
}

// Enqueue queues a change and re-arms the debounce timer.
func (o *Orchestrator) Enqueue(ctx context.Context, typ syncq.ChangeType, data any) error {
	queued, err := o.queue.Enqueue(ctx, typ, data)
	if queued {
		o.schedule()
	}
	return err
}

// SyncNow drains immediately, cancelling any armed debounce timer.
func (o *Orchestrator) SyncNow(ctx context.Context) syncq.DrainResult {
	o.cancelTimer()
	return o.drain(ctx, "manual")
}

// Flush drains synchronously if a debounce timer is armed, and waits for a
// debounced drain that has already started. Short-lived processes call it
// before closing the store. Reports whether Flush itself drained.
func (o *Orchestrator) Flush(ctx context.Context) (syncq.DrainResult, bool) {
	defer o.fired.Wait()
	if !o.cancelTimer() {
		return syncq.DrainResult{}, false
	}
	return o.drain(ctx, "flush"), true
}

// Run drives the periodic and network-restored triggers until ctx is
// cancelled. Debounced drains started while Run is active use its context.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	o.ctx = ctx
	o.mu.Unlock()
	defer func() {
		o.cancelTimer()
		o.mu.Lock()
		o.ctx = context.Background()
		o.mu.Unlock()
	}()

	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	var restored <-chan struct{}
	if n, ok := o.cfg.Network.(netwatch.Notifier); ok {
		restored = n.Restored()
	}

	o.drain(ctx, "startup")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.drain(ctx, "periodic")
		case <-restored:
			o.drain(ctx, "network restored")
		}
	}
}

// FullSync fetches the remote collection. Applying it is up to the caller.
func (o *Orchestrator) FullSync(ctx context.Context) FullSyncResult {
	if !o.remote.Configured() {
		return FullSyncResult{Error: remote.ErrNotConfigured}
	}
	res := o.remote.GetTasks(ctx)
	if !res.Success {
		return FullSyncResult{Error: res.Error}
	}
	tasks := res.Tasks
	if tasks == nil {
		tasks = []task.Task{}
	}
	return FullSyncResult{Success: true, Tasks: tasks}
}

// PushAll replaces the remote collection with tasks. It does not touch the
// queue; a successful push is recorded as the last sync.
func (o *Orchestrator) PushAll(ctx context.Context, tasks []task.Task) PushResult {
	if !o.remote.Configured() {
		return PushResult{Error: remote.ErrNotConfigured}
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	res := o.remote.SyncAll(ctx, tasks)
	if !res.Success {
		return PushResult{Error: res.Error}
	}
	if err := o.queue.RecordSync(ctx); err != nil {
		o.log.Warn("failed to record sync time", "error", err)
	}
	return PushResult{Success: true, Count: res.Count}
}

// LastSyncAt returns the time of the last complete sync, zero if never.
func (o *Orchestrator) LastSyncAt() time.Time {
	return o.queue.LastSyncAt()
}

// PendingCount returns the number of queued changes.
func (o *Orchestrator) PendingCount() int {
	return o.queue.Len()
}

// Scheduled reports whether a debounce timer is armed.
func (o *Orchestrator) Scheduled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.timer != nil
}

func (o *Orchestrator) schedule() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.timer != nil {
		o.timer.Stop()
	}
	o.gen++
	gen := o.gen
	o.timer = time.AfterFunc(o.cfg.Debounce, func() {
		o.mu.Lock()
		if o.gen != gen {
			// Replaced or cancelled after this timer had already fired.
			o.mu.Unlock()
			return
		}
		o.timer = nil
		ctx := o.ctx
		o.fired.Add(1)
		o.mu.Unlock()

		defer o.fired.Done()
		o.drain(ctx, "debounce")
	})
}

// cancelTimer disarms the debounce timer. Reports whether one was armed.
func (o *Orchestrator) cancelTimer() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer == nil {
		return false
	}
	o.timer.Stop()
	o.timer = nil
	o.gen++
	return true
}

func (o *Orchestrator) drain(ctx context.Context, trigger string) syncq.DrainResult {
	res := o.queue.Drain(ctx)
	switch {
	case res.Err != nil:
		o.log.Error("sync state not saved", "trigger", trigger, "error", res.Err)
	case res.Ran():
		o.log.Debug("drain finished", "trigger", trigger, "applied", res.Applied, "failed", res.Failed, "remaining", res.Remaining)
	default:
		o.log.Debug("drain skipped", "trigger", trigger, "reason", res.Skipped)
	}
	return res
}
