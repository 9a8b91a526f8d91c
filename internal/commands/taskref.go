package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"tasksheet/internal/app"
	"tasksheet/internal/exitcode"
	"tasksheet/internal/task"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	TaskNum int   // 1-based position in the listing, 0 when ByID
	ID      int64 // task ID when ByID
	ByID    bool  // true for an id:<id> reference
}

// idPrefix introduces a reference by task ID.
const idPrefix = "id:"

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses the task reference at the head of args.
//
// Parsing rules:
// 1. If first arg is all digits → position in the full listing
// 2. If first arg is id:<digits> → task ID
// 3. Otherwise → error: invalid task reference: <ref>
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}

	firstArg := args[0]

	if isAllDigits(firstArg) {
		num, err := strconv.Atoi(firstArg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
		}
		return TaskRef{TaskNum: num}, nil
	}

	if rest, ok := strings.CutPrefix(firstArg, idPrefix); ok && isAllDigits(rest) {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
		}
		return TaskRef{ID: id, ByID: true}, nil
	}

	return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
}

// Resolve finds the referenced task. Numbers count through the full
// listing in display order, the same numbering list prints.
func (r TaskRef) Resolve(a *app.App) (task.Task, error) {
	if r.ByID {
		t, ok := a.Tasks.Find(r.ID)
		if !ok {
			return task.Task{}, fmt.Errorf("task not found: %d", r.ID)
		}
		return t, nil
	}
	tasks := a.Tasks.Sorted(task.Filter{})
	if r.TaskNum < 1 || r.TaskNum > len(tasks) {
		return task.Task{}, fmt.Errorf("task number out of range: %d", r.TaskNum)
	}
	return tasks[r.TaskNum-1], nil
}

// resolveRef parses and resolves the reference at the head of args,
// reporting failures on errOut. ok is false when the command should
// exit with code.
func resolveRef(a *app.App, args []string, errOut io.Writer) (t task.Task, code int, ok bool) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return task.Task{}, exitcode.UserError, false
	}
	t, err = ref.Resolve(a)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return task.Task{}, exitcode.UserError, false
	}
	return t, exitcode.Success, true
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
