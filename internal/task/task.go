// Package task defines the to-do item shared by local storage, sync and the CLI.
package task

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Priority is the urgency of a task.
type Priority string

const (
	High   Priority = "high"
	Medium Priority = "medium"
	Low    Priority = "low"
)

const (
	// DefaultCategory is used when a task has no category.
	DefaultCategory = "other"

	// DateLayout is the calendar date format used for due dates.
	DateLayout = "2006-01-02"
)

// Field names accepted by field-level updates. They match the remote column names.
const (
	FieldText      = "text"
	FieldCompleted = "completed"
	FieldPriority  = "priority"
	FieldCategory  = "category"
	FieldDueDate   = "dueDate"
	FieldNote      = "note"
	FieldOrder     = "order"
)

var (
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidField    = errors.New("invalid field")
	ErrInvalidDate     = errors.New("invalid date")
)

// Task is a single to-do item.
type Task struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Priority  Priority  `json:"priority"`
	Category  string    `json:"category"`
	DueDate   string    `json:"dueDate,omitempty"` // YYYY-MM-DD or empty
	Note      string    `json:"note"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ParsePriority parses a priority name, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case High:
		return High, nil
	case Medium:
		return Medium, nil
	case Low:
		return Low, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidPriority, s)
}

// rank orders priorities high to low.
func (p Priority) rank() int {
	switch p {
	case High:
		return 0
	case Low:
		return 2
	default:
		return 1
	}
}

// ParseDate validates a due date. An empty string clears the date.
// Timestamps are accepted and truncated to their date part.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if len(s) > len(DateLayout) {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	return s, nil
}

// Normalize fills in defaults for records written by older versions
// or received from a remote that leaves cells blank.
func (t *Task) Normalize() {
	if _, err := ParsePriority(string(t.Priority)); err != nil {
		t.Priority = Medium
	}
	if strings.TrimSpace(t.Category) == "" {
		t.Category = DefaultCategory
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
}

// Apply sets a single field from its string form.
func (t *Task) Apply(field, value string) error {
	switch field {
	case FieldText:
		t.Text = value
	case FieldCompleted:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid completed value: %s", value)
		}
		t.Completed = b
	case FieldPriority:
		p, err := ParsePriority(value)
		if err != nil {
			return err
		}
		t.Priority = p
	case FieldCategory:
		t.Category = strings.TrimSpace(value)
		if t.Category == "" {
			t.Category = DefaultCategory
		}
	case FieldDueDate:
		d, err := ParseDate(value)
		if err != nil {
			return err
		}
		t.DueDate = d
	case FieldNote:
		t.Note = value
	case FieldOrder:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid order value: %s", value)
		}
		t.Order = n
	default:
		return fmt.Errorf("%w: %s", ErrInvalidField, field)
	}
	return nil
}

// Value returns the string form of a single field.
func (t Task) Value(field string) (string, error) {
	switch field {
	case FieldText:
		return t.Text, nil
	case FieldCompleted:
		return strconv.FormatBool(t.Completed), nil
	case FieldPriority:
		return string(t.Priority), nil
	case FieldCategory:
		return t.Category, nil
	case FieldDueDate:
		return t.DueDate, nil
	case FieldNote:
		return t.Note, nil
	case FieldOrder:
		return strconv.Itoa(t.Order), nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidField, field)
}
