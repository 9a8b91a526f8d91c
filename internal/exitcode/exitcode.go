// Package exitcode defines exit codes for the CLI.
package exitcode

// Exit codes of the tasksheet CLI.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates bad arguments or a task reference that does not
	// resolve.
	UserError = 1

	// AuthError indicates sync is not set up: no endpoint, or missing or
	// rejected Google credentials.
	AuthError = 2

	// BackendError indicates a storage, remote or network failure.
	BackendError = 3
)
