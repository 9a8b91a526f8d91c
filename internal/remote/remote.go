// Package remote talks to the spreadsheet-backed endpoint that mirrors the
// local task list. Calls never retry and never return Go errors: every
// outcome is a Result envelope, and any failure collapses to Success=false.
package remote

import (
	"context"
	"strings"

	"tasksheet/internal/task"
)

// PlaceholderMarker appears in the sample endpoint URL shipped in docs.
// An endpoint containing it is treated as not configured.
const PlaceholderMarker = "YOUR_SCRIPT_ID"

// ErrNotConfigured is the error text of the not-configured envelope.
const ErrNotConfigured = "API not configured"

// Result is the response envelope of every remote operation.
type Result struct {
	Success bool        `json:"success"`
	Tasks   []task.Task `json:"tasks,omitempty"`
	Count   int         `json:"count,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Failure builds a failed envelope.
func Failure(msg string) Result {
	return Result{Success: false, Error: msg}
}

// NotConfigured is the envelope returned without contacting the remote.
func NotConfigured() Result {
	return Failure(ErrNotConfigured)
}

// Client is the contract shared by remote backends.
type Client interface {
	// Configured reports whether the client has somewhere to send requests.
	// When false every other method returns NotConfigured without I/O.
	Configured() bool

	// GetTasks fetches the full remote task collection.
	GetTasks(ctx context.Context) Result

	// AddTask creates a task remotely.
	AddTask(ctx context.Context, t task.Task) Result

	// UpdateTask sets one field of a remote task.
	UpdateTask(ctx context.Context, id int64, field, value string) Result

	// DeleteTask removes a remote task.
	DeleteTask(ctx context.Context, id int64) Result

	// SyncAll replaces the remote collection with tasks.
	SyncAll(ctx context.Context, tasks []task.Task) Result
}

// IsConfigured reports whether an endpoint URL is usable.
func IsConfigured(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	return endpoint != "" && !strings.Contains(endpoint, PlaceholderMarker)
}

// Disabled is a Client with nowhere to send requests.
type Disabled struct{}

// Configured implements Client.
func (Disabled) Configured() bool { return false }

// GetTasks implements Client.
func (Disabled) GetTasks(context.Context) Result { return NotConfigured() }

// AddTask implements Client.
func (Disabled) AddTask(context.Context, task.Task) Result { return NotConfigured() }

// UpdateTask implements Client.
func (Disabled) UpdateTask(context.Context, int64, string, string) Result { return NotConfigured() }

// DeleteTask implements Client.
func (Disabled) DeleteTask(context.Context, int64) Result { return NotConfigured() }

// SyncAll implements Client.
func (Disabled) SyncAll(context.Context, []task.Task) Result { return NotConfigured() }
