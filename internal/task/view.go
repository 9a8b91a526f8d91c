package task

import (
	"math"
	"sort"
	"strings"
)

// Status filters.
const (
	StatusAll       = "all"
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Filter selects tasks for display. Zero values match everything.
type Filter struct {
	Status   string
	Priority Priority
	Query    string
}

// Match reports whether t passes the filter.
func (f Filter) Match(t Task) bool {
	switch f.Status {
	case StatusPending:
		if t.Completed {
			return false
		}
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		return strings.Contains(strings.ToLower(t.Text), strings.ToLower(q))
	}
	return true
}

// Apply returns the tasks that match, in their original order.
func (f Filter) Apply(tasks []Task) []Task {
	var out []Task
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Sort orders tasks for display: open before completed, then by priority,
// then earliest due date first with undated tasks last.
// Equal tasks keep their relative order.
func Sort(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		if a.Priority.rank() != b.Priority.rank() {
			return a.Priority.rank() < b.Priority.rank()
		}
		switch {
		case a.DueDate != "" && b.DueDate != "":
			// YYYY-MM-DD compares lexically
			return a.DueDate < b.DueDate
		case a.DueDate != "":
			return true
		default:
			return false
		}
	})
}

// Progress summarizes completion.
type Progress struct {
	Total     int
	Completed int
	Pending   int
	Percent   int
}

// Summarize computes completion progress over tasks.
func Summarize(tasks []Task) Progress {
	p := Progress{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			p.Completed++
		}
	}
	p.Pending = p.Total - p.Completed
	if p.Total > 0 {
		p.Percent = int(math.Round(float64(p.Completed) / float64(p.Total) * 100))
	}
	return p
}
