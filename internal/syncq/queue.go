// Package syncq holds local changes that have not yet been applied to the
// remote, and replays them in order.
package syncq

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"tasksheet/internal/netwatch"
	"tasksheet/internal/remote"
	"tasksheet/internal/store"
	"tasksheet/internal/task"
)

// ChangeType is the kind of a pending change.
type ChangeType string

const (
	Add    ChangeType = "add"
	Update ChangeType = "update"
	Delete ChangeType = "delete"
)

// Change is one queued local mutation.
type Change struct {
	Type      ChangeType      `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // enqueue time, unix ms
}

// UpdateData is the payload of an update change.
type UpdateData struct {
	ID    int64  `json:"id"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// DeleteData is the payload of a delete change.
type DeleteData struct {
	ID int64 `json:"id"`
}

// Skip explains why a drain pass did not run.
type Skip string

const (
	NotSkipped        Skip = ""
	SkipNotConfigured Skip = "not configured"
	SkipInFlight      Skip = "sync already in progress"
	SkipEmpty         Skip = "nothing to sync"
	SkipOffline       Skip = "offline"
)

const (
	drainLease    = "drain"
	drainLeaseTTL = 2 * time.Minute
)

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Skipped   Skip
	Attempted int
	Applied   int
	Failed    int
	Remaining int

	// Err is set when the queue could not be read or persisted.
	Err error
}

// Ran reports whether the pass was attempted.
func (r DrainResult) Ran() bool { return r.Skipped == NotSkipped }

// Queue is the pending change queue. It is safe for concurrent use, and
// several processes may share one store: every change is read from and
// written back to the store, and a store lease keeps drains from
// overlapping across processes.
type Queue struct {
	owner   string
	store   store.Store
	remote  remote.Client
	monitor netwatch.Monitor
	log     *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	changes  []Change
	lastSync time.Time

	draining atomic.Bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithMonitor sets the connectivity monitor consulted before each pass.
func WithMonitor(m netwatch.Monitor) Option {
	return func(q *Queue) { q.monitor = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.log = l
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New creates an empty queue. Call Load to restore persisted state.
func New(st store.Store, rc remote.Client, opts ...Option) *Queue {
	q := &Queue{
		owner:   rand.Text(),
		store:   st,
		remote:  rc,
		monitor: netwatch.NewStatic(true),
		log:     slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Load restores the queue and the last sync time from the store.
func (q *Queue) Load(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.reload(ctx)
}

// reload must be called with q.mu held.
func (q *Queue) reload(ctx context.Context) error {
	var changes []Change
	if _, err := store.LoadJSON(ctx, q.store, store.KeyPendingChanges, &changes); err != nil {
		return fmt.Errorf("failed to load pending changes: %w", err)
	}

	var last string
	if _, err := store.LoadJSON(ctx, q.store, store.KeyLastSyncAt, &last); err != nil {
		return fmt.Errorf("failed to load last sync time: %w", err)
	}

	q.changes = changes
	q.lastSync = time.Time{}
	if last != "" {
		t, err := time.Parse(time.RFC3339Nano, last)
		if err != nil {
			q.log.Warn("ignoring invalid last sync time", "value", last)
		} else {
			q.lastSync = t
		}
	}
	return nil
}

// Enqueue appends a change and persists the queue. Nothing is queued while
// the remote is not configured. Reports whether the change was queued.
func (q *Queue) Enqueue(ctx context.Context, typ ChangeType, data any) (bool, error) {
	if !q.remote.Configured() {
		return false, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s change: %w", typ, err)
	}

	c := Change{
		Type:      typ,
		Data:      raw,
		Timestamp: q.now().UnixMilli(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	err = q.rewrite(ctx, func(stored []Change) []Change {
		return append(stored, c)
	})
	if err != nil {
		return true, err
	}
	q.log.Debug("change queued", "type", typ, "pending", len(q.changes))
	return true, nil
}

// Drain applies the queued changes in order, one remote call each. Changes
// that fail stay queued in their original order, ahead of anything queued
// while the pass was running. Only one pass runs at a time, in this process
// or any other sharing the store; a call made during a pass returns
// immediately with SkipInFlight.
func (q *Queue) Drain(ctx context.Context) DrainResult {
	if !q.remote.Configured() {
		return DrainResult{Skipped: SkipNotConfigured}
	}
	if !q.draining.CompareAndSwap(false, true) {
		return DrainResult{Skipped: SkipInFlight, Remaining: q.Len()}
	}
	defer q.draining.Store(false)

	pending, err := q.refresh(ctx)
	if err != nil {
		return DrainResult{Err: err}
	}
	if len(pending) == 0 {
		return DrainResult{Skipped: SkipEmpty}
	}
	if !q.monitor.Online() {
		q.log.Info("offline, sync postponed", "pending", len(pending))
		return DrainResult{Skipped: SkipOffline, Remaining: len(pending)}
	}

	held, err := q.lock(ctx)
	if err != nil {
		return DrainResult{Err: err}
	}
	if !held {
		q.log.Debug("sync running in another process")
		return DrainResult{Skipped: SkipInFlight, Remaining: len(pending)}
	}
	defer q.unlock(ctx)

	// The other process may have drained before the lease was ours.
	batch, err := q.refresh(ctx)
	if err != nil {
		return DrainResult{Err: err}
	}
	if len(batch) == 0 {
		return DrainResult{Skipped: SkipEmpty}
	}

	q.log.Info("syncing pending changes", "count", len(batch))

	var applied []Change
	for _, c := range batch {
		if err := q.apply(ctx, c); err != nil {
			q.log.Warn("change not applied", "type", c.Type, "timestamp", c.Timestamp, "error", err)
		} else {
			applied = append(applied, c)
		}
		if _, err := q.lock(ctx); err != nil {
			q.log.Warn("failed to renew sync lease", "error", err)
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	res := DrainResult{
		Attempted: len(batch),
		Applied:   len(applied),
		Failed:    len(batch) - len(applied),
	}
	err = q.rewrite(ctx, func(stored []Change) []Change {
		return withoutApplied(stored, applied)
	})
	res.Remaining = len(q.changes)
	if err != nil {
		res.Err = err
		return res
	}
	if len(q.changes) == 0 {
		q.lastSync = q.now().UTC()
		if err := q.saveLastSync(ctx); err != nil {
			res.Err = err
			return res
		}
		q.log.Info("sync completed", "applied", res.Applied)
	}
	return res
}

// withoutApplied removes one stored entry per applied change. What is left
// keeps its order: failures first, then entries queued during the pass.
func withoutApplied(stored, applied []Change) []Change {
	todo := slices.Clone(applied)
	kept := make([]Change, 0, len(stored))
	for _, c := range stored {
		if i := slices.IndexFunc(todo, c.same); i >= 0 {
			todo = slices.Delete(todo, i, i+1)
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func (c Change) same(o Change) bool {
	return c.Type == o.Type && c.Timestamp == o.Timestamp && bytes.Equal(c.Data, o.Data)
}

// RecordSync marks now as the last successful sync.
func (q *Queue) RecordSync(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lastSync = q.now().UTC()
	return q.saveLastSync(ctx)
}

// Len returns the number of queued changes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.changes)
}

// Pending returns a copy of the queued changes.
func (q *Queue) Pending() []Change {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.changes)
}

// LastSyncAt returns the time of the last pass that emptied the queue.
// The zero time means never.
func (q *Queue) LastSyncAt() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastSync
}

// Draining reports whether a pass is running.
func (q *Queue) Draining() bool {
	return q.draining.Load()
}

var (
	errUnknownChange = errors.New("unknown change type")
	errRejected      = errors.New("remote rejected change")
)

func (q *Queue) apply(ctx context.Context, c Change) error {
	var res remote.Result
	switch c.Type {
	case Add:
		var t task.Task
		if err := json.Unmarshal(c.Data, &t); err != nil {
			return fmt.Errorf("invalid add payload: %w", err)
		}
		res = q.remote.AddTask(ctx, t)
	case Update:
		var d UpdateData
		if err := json.Unmarshal(c.Data, &d); err != nil {
			return fmt.Errorf("invalid update payload: %w", err)
		}
		res = q.remote.UpdateTask(ctx, d.ID, d.Field, d.Value)
	case Delete:
		var d DeleteData
		if err := json.Unmarshal(c.Data, &d); err != nil {
			return fmt.Errorf("invalid delete payload: %w", err)
		}
		res = q.remote.DeleteTask(ctx, d.ID)
	default:
		return fmt.Errorf("%w: %q", errUnknownChange, c.Type)
	}
	if !res.Success {
		if res.Error == "" {
			return errRejected
		}
		return errors.New(res.Error)
	}
	return nil
}

// refresh reloads the queue from the store and returns a copy.
func (q *Queue) refresh(ctx context.Context) ([]Change, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.reload(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(q.changes), nil
}

// rewrite applies fn to the stored queue in one atomic store update and
// keeps the result. It must be called with q.mu held.
func (q *Queue) rewrite(ctx context.Context, fn func([]Change) []Change) error {
	err := store.UpdateJSON(ctx, q.store, store.KeyPendingChanges, func(stored *[]Change) error {
		next := fn(*stored)
		if next == nil {
			next = []Change{}
		}
		*stored = next
		q.changes = slices.Clone(next)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save pending changes: %w", err)
	}
	return nil
}

func (q *Queue) lock(ctx context.Context) (bool, error) {
	l, ok := q.store.(store.Locker)
	if !ok {
		return true, nil
	}
	return l.TryLock(ctx, drainLease, q.owner, drainLeaseTTL)
}

func (q *Queue) unlock(ctx context.Context) {
	l, ok := q.store.(store.Locker)
	if !ok {
		return
	}
	if err := l.Unlock(context.WithoutCancel(ctx), drainLease, q.owner); err != nil {
		q.log.Warn("failed to release sync lease", "error", err)
	}
}

// saveLastSync must be called with q.mu held.
func (q *Queue) saveLastSync(ctx context.Context) error {
	if err := store.SaveJSON(ctx, q.store, store.KeyLastSyncAt, q.lastSync.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to save last sync time: %w", err)
	}
	return nil
}
