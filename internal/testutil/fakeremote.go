// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"slices"
	"sync"

	"tasksheet/internal/remote"
	"tasksheet/internal/task"
)

// Call records one request made to a FakeRemote.
type Call struct {
	Action string
	ID     int64
	Field  string
	Value  string
	Task   task.Task
	Count  int
}

// FakeRemote is an in-memory implementation of remote.Client for testing.
// It records every call and can be scripted to fail.
type FakeRemote struct {
	mu    sync.Mutex
	tasks []task.Task
	calls []Call

	// Unconfigured makes Configured report false.
	Unconfigured bool

	// Fail returns the error message for a call that should fail, or "".
	Fail func(Call) string

	// BeforeCall runs before each call is handled, outside the lock.
	BeforeCall func(Call)
}

// NewFakeRemote creates a configured FakeRemote holding tasks.
func NewFakeRemote(tasks ...task.Task) *FakeRemote {
	return &FakeRemote{tasks: slices.Clone(tasks)}
}

// Configured implements remote.Client.
func (f *FakeRemote) Configured() bool { return !f.Unconfigured }

// Tasks returns a copy of the remote task collection.
func (f *FakeRemote) Tasks() []task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.tasks)
}

// Calls returns the calls received so far, in order.
func (f *FakeRemote) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Actions returns the action names of the calls received so far.
func (f *FakeRemote) Actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]string, len(f.calls))
	for i, c := range f.calls {
		actions[i] = c.Action
	}
	return actions
}

// GetTasks implements remote.Client.
func (f *FakeRemote) GetTasks(ctx context.Context) remote.Result {
	return f.handle(Call{Action: "getTasks"}, func() remote.Result {
		tasks := slices.Clone(f.tasks)
		return remote.Result{Success: true, Tasks: tasks, Count: len(tasks)}
	})
}

// AddTask implements remote.Client.
func (f *FakeRemote) AddTask(ctx context.Context, t task.Task) remote.Result {
	return f.handle(Call{Action: "addTask", ID: t.ID, Task: t}, func() remote.Result {
		if i := f.indexOf(t.ID); i >= 0 {
			f.tasks[i] = t
		} else {
			f.tasks = append(f.tasks, t)
		}
		return remote.Result{Success: true}
	})
}

// UpdateTask implements remote.Client.
func (f *FakeRemote) UpdateTask(ctx context.Context, id int64, field, value string) remote.Result {
	return f.handle(Call{Action: "updateTask", ID: id, Field: field, Value: value}, func() remote.Result {
		i := f.indexOf(id)
		if i < 0 {
			return remote.Failure("task not found")
		}
		if err := f.tasks[i].Apply(field, value); err != nil {
			return remote.Failure(err.Error())
		}
		return remote.Result{Success: true}
	})
}

// DeleteTask implements remote.Client.
func (f *FakeRemote) DeleteTask(ctx context.Context, id int64) remote.Result {
	return f.handle(Call{Action: "deleteTask", ID: id}, func() remote.Result {
		if i := f.indexOf(id); i >= 0 {
			f.tasks = slices.Delete(f.tasks, i, i+1)
		}
		return remote.Result{Success: true}
	})
}

// SyncAll implements remote.Client.
func (f *FakeRemote) SyncAll(ctx context.Context, tasks []task.Task) remote.Result {
	return f.handle(Call{Action: "syncAll", Count: len(tasks)}, func() remote.Result {
		f.tasks = slices.Clone(tasks)
		return remote.Result{Success: true, Count: len(tasks)}
	})
}

func (f *FakeRemote) handle(c Call, apply func() remote.Result) remote.Result {
	if f.Unconfigured {
		return remote.NotConfigured()
	}
	if f.BeforeCall != nil {
		f.BeforeCall(c)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.Fail != nil {
		if msg := f.Fail(c); msg != "" {
			return remote.Failure(msg)
		}
	}
	return apply()
}

func (f *FakeRemote) indexOf(id int64) int {
	return slices.IndexFunc(f.tasks, func(t task.Task) bool { return t.ID == id })
}
