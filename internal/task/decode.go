package task

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// UnmarshalJSON decodes a task leniently. Spreadsheet-backed remotes return
// numbers as strings and booleans as "TRUE"/"FALSE", and older local
// snapshots lack some fields entirely.
func (t *Task) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	decoded, err := FromFields(fields)
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

// FromFields builds a task from loosely typed values keyed by field name.
func FromFields(fields map[string]any) (Task, error) {
	var t Task

	id, err := toInt64(fields["id"])
	if err != nil {
		return Task{}, fmt.Errorf("invalid task id: %w", err)
	}
	t.ID = id
	t.Text = toString(fields[FieldText])
	t.Completed = toBool(fields[FieldCompleted])
	t.Priority = Priority(strings.ToLower(toString(fields[FieldPriority])))
	t.Category = toString(fields[FieldCategory])
	t.Note = toString(fields[FieldNote])

	if due, err := ParseDate(toString(fields[FieldDueDate])); err == nil {
		t.DueDate = due
	}
	if order, err := toInt64(fields[FieldOrder]); err == nil {
		t.Order = int(order)
	}
	t.CreatedAt = toTime(fields["createdAt"])
	t.UpdatedAt = toTime(fields["updatedAt"])

	t.Normalize()
	return t, nil
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("not an integer: %v", x)
		}
		return int64(x), nil
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("not an integer: %q", x)
		}
		return int64(f), nil
	case nil:
		return 0, fmt.Errorf("missing")
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}

func toBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(x))
		return b
	case float64:
		return x != 0
	}
	return false
}

func toTime(v any) time.Time {
	switch x := v.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(x)); err == nil {
			return t
		}
	case float64:
		return time.UnixMilli(int64(x)).UTC()
	}
	return time.Time{}
}
