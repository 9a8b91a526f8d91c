// Package tasklist is the local, authoritative task list. Every mutation is
// saved before it is reported to the sync layer, so a failed sync never
// loses or rolls back a local edit.
package tasklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"tasksheet/internal/store"
	"tasksheet/internal/syncq"
	"tasksheet/internal/task"
)

var (
	// ErrNotFound is returned for an unknown task ID.
	ErrNotFound = errors.New("task not found")

	// ErrEmptyText is returned when adding a task without text.
	ErrEmptyText = errors.New("task text is empty")
)

// Enqueuer receives the change produced by each mutation.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ syncq.ChangeType, data any) error
}

// AddOptions holds the optional fields of a new task.
type AddOptions struct {
	Priority task.Priority
	Category string
	DueDate  string
	Note     string
}

// List holds the tasks of one user. It is safe for concurrent use.
type List struct {
	store store.Store
	sync  Enqueuer
	log   *slog.Logger
	now   func() time.Time

	mu    sync.Mutex
	tasks []task.Task
}

// Option configures a List.
type Option func(*List)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(list *List) {
		if l != nil {
			list.log = l
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(list *List) { list.now = now }
}

// New creates an empty list. A nil Enqueuer disables change reporting.
func New(st store.Store, enq Enqueuer, opts ...Option) *List {
	l := &List{
		store: st,
		sync:  enq,
		log:   slog.New(slog.DiscardHandler),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load restores the saved tasks. Records from older versions get defaults
// for fields they lack.
func (l *List) Load(ctx context.Context) error {
	var tasks []task.Task
	if _, err := store.LoadJSON(ctx, l.store, store.KeyTasks, &tasks); err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	for i := range tasks {
		tasks[i].Normalize()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = tasks
	return nil
}

// Add creates a task at the top of the list.
func (l *List) Add(ctx context.Context, text string, opts AddOptions) (task.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return task.Task{}, ErrEmptyText
	}
	due, err := task.ParseDate(opts.DueDate)
	if err != nil {
		return task.Task{}, err
	}
	priority := task.Medium
	if opts.Priority != "" {
		if priority, err = task.ParsePriority(string(opts.Priority)); err != nil {
			return task.Task{}, err
		}
	}

	l.mu.Lock()
	now := l.now().UTC()
	t := task.Task{
		ID:        l.nextID(now),
		Text:      text,
		Priority:  priority,
		Category:  opts.Category,
		DueDate:   due,
		Note:      opts.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.Normalize()
	err = l.commit(ctx, slices.Insert(slices.Clone(l.tasks), 0, t))
	l.mu.Unlock()
	if err != nil {
		return task.Task{}, err
	}

	l.emit(ctx, syncq.Add, t)
	return t, nil
}

// Toggle flips the completed state of a task.
func (l *List) Toggle(ctx context.Context, id int64) (task.Task, error) {
	l.mu.Lock()
	t, ok := l.find(id)
	l.mu.Unlock()
	if !ok {
		return task.Task{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return l.Set(ctx, id, task.FieldCompleted, strconv.FormatBool(!t.Completed))
}

// EditText replaces the text of a task. Blank text leaves it unchanged.
func (l *List) EditText(ctx context.Context, id int64, text string) (task.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		t, ok := l.Find(id)
		if !ok {
			return task.Task{}, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return t, nil
	}
	return l.Set(ctx, id, task.FieldText, text)
}

// SetPriority changes the priority of a task.
func (l *List) SetPriority(ctx context.Context, id int64, p task.Priority) (task.Task, error) {
	return l.Set(ctx, id, task.FieldPriority, string(p))
}

// SetCategory changes the category of a task.
func (l *List) SetCategory(ctx context.Context, id int64, category string) (task.Task, error) {
	return l.Set(ctx, id, task.FieldCategory, category)
}

// SetDueDate changes or clears the due date of a task.
func (l *List) SetDueDate(ctx context.Context, id int64, due string) (task.Task, error) {
	return l.Set(ctx, id, task.FieldDueDate, due)
}

// SetNote changes the note of a task.
func (l *List) SetNote(ctx context.Context, id int64, note string) (task.Task, error) {
	return l.Set(ctx, id, task.FieldNote, note)
}

// Set changes one field of a task and reports the normalized value.
func (l *List) Set(ctx context.Context, id int64, field, value string) (task.Task, error) {
	l.mu.Lock()
	i := l.index(id)
	if i < 0 {
		l.mu.Unlock()
		return task.Task{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	updated := l.tasks[i]
	if err := updated.Apply(field, value); err != nil {
		l.mu.Unlock()
		return task.Task{}, err
	}
	updated.UpdatedAt = l.now().UTC()
	next := slices.Clone(l.tasks)
	next[i] = updated
	err := l.commit(ctx, next)
	l.mu.Unlock()
	if err != nil {
		return task.Task{}, err
	}

	normalized, _ := updated.Value(field)
	l.emit(ctx, syncq.Update, syncq.UpdateData{ID: id, Field: field, Value: normalized})
	return updated, nil
}

// Delete removes a task.
func (l *List) Delete(ctx context.Context, id int64) error {
	l.mu.Lock()
	i := l.index(id)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	err := l.commit(ctx, slices.Delete(slices.Clone(l.tasks), i, i+1))
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.emit(ctx, syncq.Delete, syncq.DeleteData{ID: id})
	return nil
}

// ClearCompleted removes every completed task and returns how many went.
func (l *List) ClearCompleted(ctx context.Context) (int, error) {
	l.mu.Lock()
	var removed []int64
	kept := l.tasks[:0:0]
	for _, t := range l.tasks {
		if t.Completed {
			removed = append(removed, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	if len(removed) == 0 {
		l.mu.Unlock()
		return 0, nil
	}
	err := l.commit(ctx, kept)
	l.mu.Unlock()
	if err != nil {
		return 0, err
	}

	for _, id := range removed {
		l.emit(ctx, syncq.Delete, syncq.DeleteData{ID: id})
	}
	return len(removed), nil
}

// Replace swaps in a whole task list, as after an import or a pull from
// the remote. No changes are reported.
func (l *List) Replace(ctx context.Context, tasks []task.Task) error {
	replaced := slices.Clone(tasks)
	for i := range replaced {
		replaced[i].Normalize()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commit(ctx, replaced)
}

// All returns the tasks in storage order, newest first.
func (l *List) All() []task.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.tasks)
}

// Sorted returns the tasks matching f in display order.
func (l *List) Sorted(f task.Filter) []task.Task {
	tasks := f.Apply(l.All())
	task.Sort(tasks)
	return tasks
}

// Find returns the task with the given ID.
func (l *List) Find(id int64) (task.Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.find(id)
}

func (l *List) find(id int64) (task.Task, bool) {
	if i := l.index(id); i >= 0 {
		return l.tasks[i], true
	}
	return task.Task{}, false
}

func (l *List) index(id int64) int {
	return slices.IndexFunc(l.tasks, func(t task.Task) bool { return t.ID == id })
}

// nextID returns the creation time in milliseconds, moved forward past any
// ID already in use.
func (l *List) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	for l.index(id) >= 0 {
		id++
	}
	return id
}

// commit stores tasks as the new snapshot and only then makes it the
// in-memory list. It must be called with l.mu held.
func (l *List) commit(ctx context.Context, tasks []task.Task) error {
	if tasks == nil {
		tasks = []task.Task{}
	}
	if err := store.SaveJSON(ctx, l.store, store.KeyTasks, tasks); err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}
	l.tasks = tasks
	return nil
}

func (l *List) emit(ctx context.Context, typ syncq.ChangeType, data any) {
	if l.sync == nil {
		return
	}
	if err := l.sync.Enqueue(ctx, typ, data); err != nil {
		l.log.Warn("change not queued for sync", "type", typ, "error", err)
	}
}
