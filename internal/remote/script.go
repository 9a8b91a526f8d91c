package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"tasksheet/internal/task"
)

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 10 << 20
)

// ScriptClient speaks the Apps Script web-app protocol: point operations are
// GET requests with an action query parameter, the bulk replace is a POST
// with a JSON document in a text/plain body.
type ScriptClient struct {
	mu       sync.RWMutex
	endpoint string

	http    *http.Client
	timeout time.Duration
	log     *slog.Logger
}

// Option configures a ScriptClient.
type Option func(*ScriptClient)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *ScriptClient) { s.http = c }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *ScriptClient) { s.timeout = d }
}

// WithLogger sets the logger for failed calls.
func WithLogger(l *slog.Logger) Option {
	return func(s *ScriptClient) { s.log = l }
}

// NewScriptClient creates a client for the given endpoint URL.
// The endpoint may be empty and set later.
func NewScriptClient(endpoint string, opts ...Option) *ScriptClient {
	c := &ScriptClient{
		endpoint: strings.TrimSpace(endpoint),
		http:     http.DefaultClient,
		timeout:  DefaultTimeout,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the current endpoint URL.
func (c *ScriptClient) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

// SetEndpoint replaces the endpoint URL.
func (c *ScriptClient) SetEndpoint(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoint = strings.TrimSpace(endpoint)
}

// Configured implements Client.
func (c *ScriptClient) Configured() bool {
	return IsConfigured(c.Endpoint())
}

// GetTasks implements Client.
func (c *ScriptClient) GetTasks(ctx context.Context) Result {
	return c.get(ctx, "getTasks", url.Values{})
}

// AddTask implements Client.
func (c *ScriptClient) AddTask(ctx context.Context, t task.Task) Result {
	category := t.Category
	if category == "" {
		category = task.DefaultCategory
	}
	params := url.Values{
		"id":        {strconv.FormatInt(t.ID, 10)},
		"text":      {t.Text},
		"completed": {strconv.FormatBool(t.Completed)},
		"priority":  {string(t.Priority)},
		"category":  {category},
		"dueDate":   {t.DueDate},
		"note":      {t.Note},
		"order":     {strconv.Itoa(t.Order)},
	}
	return c.get(ctx, "addTask", params)
}

// UpdateTask implements Client.
func (c *ScriptClient) UpdateTask(ctx context.Context, id int64, field, value string) Result {
	params := url.Values{
		"id":    {strconv.FormatInt(id, 10)},
		"field": {field},
		"value": {value},
	}
	return c.get(ctx, "updateTask", params)
}

// DeleteTask implements Client.
func (c *ScriptClient) DeleteTask(ctx context.Context, id int64) Result {
	return c.get(ctx, "deleteTask", url.Values{"id": {strconv.FormatInt(id, 10)}})
}

// SyncAll implements Client.
func (c *ScriptClient) SyncAll(ctx context.Context, tasks []task.Task) Result {
	endpoint := c.Endpoint()
	if !IsConfigured(endpoint) {
		return NotConfigured()
	}
	if tasks == nil {
		tasks = []task.Task{}
	}

	body, err := json.Marshal(struct {
		Action string      `json:"action"`
		Tasks  []task.Task `json:"tasks"`
	}{"syncAll", tasks})
	if err != nil {
		return c.fail("syncAll", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return c.fail("syncAll", err)
	}
	// Apps Script rejects preflighted JSON content types.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	return c.do(req, "syncAll")
}

func (c *ScriptClient) get(ctx context.Context, action string, params url.Values) Result {
	endpoint := c.Endpoint()
	if !IsConfigured(endpoint) {
		return NotConfigured()
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return c.fail(action, fmt.Errorf("invalid endpoint: %w", err))
	}
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("action", action)
	u.RawQuery = q.Encode()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return c.fail(action, err)
	}
	return c.do(req, action)
}

func (c *ScriptClient) do(req *http.Request, action string) Result {
	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return c.fail(action, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return c.fail(action, fmt.Errorf("unexpected status: %s", resp.Status))
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return c.fail(action, fmt.Errorf("invalid response: %w", err))
	}
	if !result.Success {
		c.log.Warn("remote rejected request", "action", action, "error", result.Error)
	}
	return result
}

func (c *ScriptClient) fail(action string, err error) Result {
	c.log.Warn("remote call failed", "action", action, "error", err)
	return Failure(err.Error())
}

func (c *ScriptClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
