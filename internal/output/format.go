// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"tasksheet/internal/task"
)

const (
	// Separator is the separator line for section headers.
	Separator = "------------"

	// noteIndent lines a note up under the task text.
	noteIndent = "          "
)

// FormatTask formats a task line.
// Format: "{N:>4}  [x] {TEXT}{META}\n" where META lists a non-default
// priority, the due date and a non-default category.
func FormatTask(w io.Writer, num int, t task.Task) {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	fmt.Fprintf(w, "%4d  %s %s%s\n", num, box, normalizeText(t.Text), meta(t))
	if note := strings.TrimSpace(t.Note); note != "" {
		fmt.Fprintf(w, "%s%s\n", noteIndent, normalizeText(note))
	}
}

func meta(t task.Task) string {
	var parts []string
	if t.Priority != "" && t.Priority != task.Medium {
		parts = append(parts, "!"+string(t.Priority))
	}
	if t.DueDate != "" {
		parts = append(parts, "due:"+t.DueDate)
	}
	if t.Category != "" && t.Category != task.DefaultCategory {
		parts = append(parts, "#"+t.Category)
	}
	if len(parts) == 0 {
		return ""
	}
	return "  " + strings.Join(parts, "  ")
}

// FormatHeader formats a section header.
func FormatHeader(w io.Writer, title string) {
	fmt.Fprintln(w, Separator)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, Separator)
}

// FormatProgress formats the completion summary line.
// Format: "{DONE}/{TOTAL} completed ({PERCENT}%)\n"
func FormatProgress(w io.Writer, p task.Progress) {
	fmt.Fprintf(w, "%d/%d completed (%d%%)\n", p.Completed, p.Total, p.Percent)
}

// FormatField formats a label/value line of the status report.
func FormatField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%-11s%s\n", label+":", value)
}

// FormatTime formats a sync timestamp, or "never" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// normalizeText normalizes task text for display.
// - Empty or whitespace-only text becomes "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
