// Package endpoint implements the sync endpoint protocol over an in-memory
// task table. It stands in for the spreadsheet script during development and
// in tests.
package endpoint

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tasksheet/internal/task"
)

// Server holds the remote copy of the task list.
type Server struct {
	mu     sync.Mutex
	tasks  []task.Task
	reject string
	calls  []string

	log *slog.Logger
}

// New creates an empty server. A nil logger discards request logs.
func New(log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{log: log}
}

// Handler returns the HTTP handler. The protocol lives at the root path
// and under /exec, matching deployed script URLs.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	for _, p := range []string{"/", "/exec"} {
		r.Get(p, s.handleGet)
		r.Post(p, s.handlePost)
	}
	return r
}

// Tasks returns a copy of the stored tasks in storage order.
func (s *Server) Tasks() []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks)
}

// Calls returns the actions received so far, in arrival order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Reject makes every subsequent call fail with msg. An empty msg restores
// normal operation.
func (s *Server) Reject(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = msg
}

type response struct {
	Success bool        `json:"success"`
	Tasks   []task.Task `json:"tasks,omitempty"`
	Count   int         `json:"count,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	action := q.Get("action")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, action)

	if s.reject != "" {
		respond(w, response{Error: s.reject})
		return
	}

	switch action {
	case "getTasks":
		tasks := slices.Clone(s.tasks)
		if tasks == nil {
			tasks = []task.Task{}
		}
		respond(w, response{Success: true, Tasks: tasks, Count: len(tasks)})

	case "addTask":
		fields := make(map[string]any, len(q))
		for k := range q {
			fields[k] = q.Get(k)
		}
		t, err := task.FromFields(fields)
		if err != nil {
			respond(w, response{Error: err.Error()})
			return
		}
		now := time.Now().UTC()
		t.CreatedAt, t.UpdatedAt = now, now
		// Re-sent adds replace the earlier row instead of duplicating it.
		if i := s.indexOf(t.ID); i >= 0 {
			t.CreatedAt = s.tasks[i].CreatedAt
			s.tasks[i] = t
		} else {
			s.tasks = append(s.tasks, t)
		}
		respond(w, response{Success: true})

	case "updateTask":
		id, err := strconv.ParseInt(q.Get("id"), 10, 64)
		if err != nil {
			respond(w, response{Error: "invalid id"})
			return
		}
		i := s.indexOf(id)
		if i < 0 {
			respond(w, response{Error: "task not found"})
			return
		}
		updated := s.tasks[i]
		if err := updated.Apply(q.Get("field"), q.Get("value")); err != nil {
			respond(w, response{Error: err.Error()})
			return
		}
		updated.UpdatedAt = time.Now().UTC()
		s.tasks[i] = updated
		respond(w, response{Success: true})

	case "deleteTask":
		id, err := strconv.ParseInt(q.Get("id"), 10, 64)
		if err != nil {
			respond(w, response{Error: "invalid id"})
			return
		}
		if i := s.indexOf(id); i >= 0 {
			s.tasks = slices.Delete(s.tasks, i, i+1)
		}
		respond(w, response{Success: true})

	default:
		respond(w, response{Error: "unknown action: " + action})
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string      `json:"action"`
		Tasks  []task.Task `json:"tasks"`
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err == nil {
		err = json.Unmarshal(body, &req)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req.Action)

	if err != nil {
		respond(w, response{Error: "invalid request body"})
		return
	}
	if s.reject != "" {
		respond(w, response{Error: s.reject})
		return
	}
	if req.Action != "syncAll" {
		respond(w, response{Error: "unknown action: " + req.Action})
		return
	}

	s.tasks = slices.Clone(req.Tasks)
	respond(w, response{Success: true, Count: len(req.Tasks)})
}

func (s *Server) indexOf(id int64) int {
	return slices.IndexFunc(s.tasks, func(t task.Task) bool { return t.ID == id })
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "action", r.URL.Query().Get("action"), "duration", time.Since(start))
	})
}

// respond always answers 200 with a JSON envelope, as the script runtime does.
func respond(w http.ResponseWriter, payload response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
