package tasklist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksheet/internal/store"
	"tasksheet/internal/syncq"
	"tasksheet/internal/task"
)

type change struct {
	typ  syncq.ChangeType
	data any
}

type recorder struct {
	changes []change
	err     error
}

func (r *recorder) Enqueue(ctx context.Context, typ syncq.ChangeType, data any) error {
	r.changes = append(r.changes, change{typ, data})
	return r.err
}

func fixedClock() func() time.Time {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func newList(t *testing.T) (*List, *recorder, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	rec := &recorder{}
	l := New(st, rec, WithClock(fixedClock()))
	require.NoError(t, l.Load(context.Background()))
	return l, rec, st
}

func TestList_AddPrependsAndEmits(t *testing.T) {
	l, rec, st := newList(t)
	ctx := context.Background()

	first, err := l.Add(ctx, "  first  ", AddOptions{})
	require.NoError(t, err)
	second, err := l.Add(ctx, "second", AddOptions{Priority: task.High, DueDate: "2024-05-10", Category: "work"})
	require.NoError(t, err)

	assert.Equal(t, "first", first.Text)
	assert.Equal(t, task.Medium, first.Priority)
	assert.Equal(t, task.DefaultCategory, first.Category)

	// Same millisecond: the second ID moves past the first.
	assert.Equal(t, first.ID+1, second.ID)

	all := l.All()
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	require.Len(t, rec.changes, 2)
	assert.Equal(t, syncq.Add, rec.changes[1].typ)
	assert.Equal(t, second, rec.changes[1].data)

	var saved []task.Task
	found, err := store.LoadJSON(ctx, st, store.KeyTasks, &saved)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, saved, 2)
}

func TestList_AddRejectsInvalidInput(t *testing.T) {
	l, rec, _ := newList(t)
	ctx := context.Background()

	_, err := l.Add(ctx, "   ", AddOptions{})
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = l.Add(ctx, "x", AddOptions{Priority: "urgent"})
	assert.ErrorIs(t, err, task.ErrInvalidPriority)

	_, err = l.Add(ctx, "x", AddOptions{DueDate: "next week"})
	assert.ErrorIs(t, err, task.ErrInvalidDate)

	assert.Empty(t, l.All())
	assert.Empty(t, rec.changes)
}

func TestList_FieldMutationsEmitUpdates(t *testing.T) {
	l, rec, _ := newList(t)
	ctx := context.Background()
	added, err := l.Add(ctx, "task", AddOptions{})
	require.NoError(t, err)

	tests := []struct {
		name  string
		do    func() (task.Task, error)
		field string
		value string
	}{
		{"toggle", func() (task.Task, error) { return l.Toggle(ctx, added.ID) }, task.FieldCompleted, "true"},
		{"text", func() (task.Task, error) { return l.EditText(ctx, added.ID, " renamed ") }, task.FieldText, "renamed"},
		{"priority", func() (task.Task, error) { return l.SetPriority(ctx, added.ID, "LOW") }, task.FieldPriority, "low"},
		{"category", func() (task.Task, error) { return l.SetCategory(ctx, added.ID, "home") }, task.FieldCategory, "home"},
		{"due", func() (task.Task, error) { return l.SetDueDate(ctx, added.ID, "2024-06-01") }, task.FieldDueDate, "2024-06-01"},
		{"note", func() (task.Task, error) { return l.SetNote(ctx, added.ID, "call first") }, task.FieldNote, "call first"},
		{"clear due", func() (task.Task, error) { return l.SetDueDate(ctx, added.ID, "") }, task.FieldDueDate, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.do()
			require.NoError(t, err)

			last := rec.changes[len(rec.changes)-1]
			assert.Equal(t, syncq.Update, last.typ)
			assert.Equal(t, syncq.UpdateData{ID: added.ID, Field: tt.field, Value: tt.value}, last.data)
		})
	}

	got, ok := l.Find(added.ID)
	require.True(t, ok)
	assert.True(t, got.Completed)
	assert.Equal(t, "renamed", got.Text)
	assert.Equal(t, task.Low, got.Priority)
	assert.Empty(t, got.DueDate)
}

func TestList_EditBlankTextIgnored(t *testing.T) {
	l, rec, _ := newList(t)
	ctx := context.Background()
	added, err := l.Add(ctx, "keep me", AddOptions{})
	require.NoError(t, err)

	got, err := l.EditText(ctx, added.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, "keep me", got.Text)
	assert.Len(t, rec.changes, 1)
}

func TestList_NotFound(t *testing.T) {
	l, _, _ := newList(t)
	ctx := context.Background()

	_, err := l.Toggle(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.SetNote(ctx, 42, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, l.Delete(ctx, 42), ErrNotFound)
}

func TestList_DeleteAndClearCompleted(t *testing.T) {
	l, rec, _ := newList(t)
	ctx := context.Background()

	a, _ := l.Add(ctx, "a", AddOptions{})
	b, _ := l.Add(ctx, "b", AddOptions{})
	c, _ := l.Add(ctx, "c", AddOptions{})
	_, err := l.Toggle(ctx, a.ID)
	require.NoError(t, err)
	_, err = l.Toggle(ctx, c.ID)
	require.NoError(t, err)

	require.NoError(t, l.Delete(ctx, b.ID))
	assert.Equal(t, syncq.DeleteData{ID: b.ID}, rec.changes[len(rec.changes)-1].data)

	n, err := l.ClearCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, l.All())

	deletes := rec.changes[len(rec.changes)-2:]
	assert.Equal(t, syncq.DeleteData{ID: c.ID}, deletes[0].data)
	assert.Equal(t, syncq.DeleteData{ID: a.ID}, deletes[1].data)

	n, err = l.ClearCompleted(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestList_ReplaceEmitsNothing(t *testing.T) {
	l, rec, _ := newList(t)
	ctx := context.Background()

	require.NoError(t, l.Replace(ctx, []task.Task{{ID: 5, Text: "pulled"}}))
	assert.Empty(t, rec.changes)

	got, ok := l.Find(5)
	require.True(t, ok)
	assert.Equal(t, task.Medium, got.Priority)
	assert.Equal(t, task.DefaultCategory, got.Category)
}

func TestList_LoadMigratesOldRecords(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	old := `[{"id":1700000000000,"text":"legacy","completed":false,"createdAt":"2023-11-14T22:13:20Z"}]`
	require.NoError(t, st.Save(ctx, store.KeyTasks, []byte(old)))

	l := New(st, nil)
	require.NoError(t, l.Load(ctx))

	all := l.All()
	require.Len(t, all, 1)
	got := all[0]
	assert.Equal(t, task.Medium, got.Priority)
	assert.Equal(t, task.DefaultCategory, got.Category)
	assert.Empty(t, got.Note)
	assert.Zero(t, got.Order)
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
}

func TestList_SaveErrorReturned(t *testing.T) {
	l, rec, st := newList(t)
	st.SaveErr = errors.New("disk full")

	_, err := l.Add(context.Background(), "x", AddOptions{})
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, rec.changes)
	assert.Empty(t, l.All())
}

func TestList_SaveErrorLeavesListUnchanged(t *testing.T) {
	l, rec, st := newList(t)
	ctx := context.Background()
	done, err := l.Add(ctx, "done", AddOptions{})
	require.NoError(t, err)
	_, err = l.Toggle(ctx, done.ID)
	require.NoError(t, err)
	open, err := l.Add(ctx, "open", AddOptions{})
	require.NoError(t, err)
	before := l.All()
	emitted := len(rec.changes)

	st.SaveErr = errors.New("disk full")
	_, err = l.Add(ctx, "new", AddOptions{})
	assert.Error(t, err)
	_, err = l.SetPriority(ctx, open.ID, task.High)
	assert.Error(t, err)
	assert.Error(t, l.Delete(ctx, open.ID))
	_, err = l.ClearCompleted(ctx)
	assert.Error(t, err)
	assert.Error(t, l.Replace(ctx, nil))

	assert.Equal(t, before, l.All())
	assert.Len(t, rec.changes, emitted)

	// Memory and store still agree for the next process.
	st.SaveErr = nil
	reloaded := New(st, nil)
	require.NoError(t, reloaded.Load(ctx))
	got := reloaded.All()
	require.Len(t, got, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, got[i].ID)
		assert.Equal(t, before[i].Completed, got[i].Completed)
		assert.Equal(t, before[i].Priority, got[i].Priority)
	}
}

func TestList_EnqueueErrorIsNotFatal(t *testing.T) {
	l, rec, _ := newList(t)
	rec.err = errors.New("queue unavailable")

	_, err := l.Add(context.Background(), "x", AddOptions{})
	require.NoError(t, err)
	assert.Len(t, l.All(), 1)
}

func TestList_SortedFilters(t *testing.T) {
	l, _, _ := newList(t)
	ctx := context.Background()

	low, _ := l.Add(ctx, "low one", AddOptions{Priority: task.Low})
	high, _ := l.Add(ctx, "high one", AddOptions{Priority: task.High})
	done, _ := l.Add(ctx, "done one", AddOptions{Priority: task.High})
	_, err := l.Toggle(ctx, done.ID)
	require.NoError(t, err)

	sorted := l.Sorted(task.Filter{})
	ids := make([]int64, len(sorted))
	for i, tk := range sorted {
		ids[i] = tk.ID
	}
	assert.Equal(t, []int64{high.ID, low.ID, done.ID}, ids)

	pending := l.Sorted(task.Filter{Status: task.StatusPending, Query: "ONE"})
	assert.Len(t, pending, 2)

	raw, err := json.Marshal(l.Sorted(task.Filter{Status: task.StatusCompleted}))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "done one")
}
