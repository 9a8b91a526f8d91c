// Package sheets implements remote.Client directly against the Google Sheets
// API, for spreadsheets that have no script deployment in front of them.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"tasksheet/internal/config"
	"tasksheet/internal/remote"
	"tasksheet/internal/task"
)

const (
	// DefaultSheet is the tab holding the task rows.
	DefaultSheet = "Tasks"

	// APITimeout is the timeout for API calls.
	APITimeout = 30 * time.Second

	// Scope is the OAuth scope requested at login.
	Scope = sheets.SpreadsheetsScope

	lastColumn = "J"
)

// Columns is the header row, in column order A..J.
var Columns = []string{
	"id",
	task.FieldText,
	task.FieldCompleted,
	task.FieldPriority,
	task.FieldCategory,
	task.FieldDueDate,
	task.FieldNote,
	task.FieldOrder,
	"createdAt",
	"updatedAt",
}

// Client implements remote.Client using the Sheets API.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	sheet         string
	log           *slog.Logger
	now           func() time.Time
}

// New creates a Sheets client for the spreadsheet named in cfg.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	token, err := LoadToken(cfg.TokenPath())
	if err != nil {
		return nil, err
	}

	// The token source refreshes expired access tokens on its own.
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token))

	return NewWithHTTPClient(ctx, httpClient, cfg.File.SpreadsheetID, cfg.File.SheetName, log)
}

// NewWithHTTPClient creates a client with a custom HTTP client.
// Extra options are passed to the Sheets service (tests point it at a fake).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, spreadsheetID, sheet string, log *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	if sheet == "" {
		sheet = DefaultSheet
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		sheet:         sheet,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// Configured reports whether a spreadsheet ID is set.
func (c *Client) Configured() bool {
	return c.spreadsheetID != ""
}

// GetTasks reads every data row below the header.
func (c *Client) GetTasks(ctx context.Context) remote.Result {
	if !c.Configured() {
		return remote.NotConfigured()
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rangeFrom(2)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return c.fail("getTasks", err)
	}

	tasks := make([]task.Task, 0, len(resp.Values))
	for i, row := range resp.Values {
		t, err := fromRow(row)
		if err != nil {
			c.log.Debug("skipping sheet row", "row", i+2, "error", err)
			continue
		}
		tasks = append(tasks, t)
	}
	return remote.Result{Success: true, Tasks: tasks, Count: len(tasks)}
}

// AddTask appends a row, or overwrites the row already holding the same ID.
func (c *Client) AddTask(ctx context.Context, t task.Task) remote.Result {
	if !c.Configured() {
		return remote.NotConfigured()
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	now := c.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.Normalize()

	row, err := c.findRow(ctx, t.ID)
	if err != nil {
		return c.fail("addTask", err)
	}
	vr := &sheets.ValueRange{Values: [][]any{toRow(t)}}

	if row > 0 {
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rowRange(row), vr).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
	} else {
		_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheet+"!A:"+lastColumn, vr).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
	}
	if err != nil {
		return c.fail("addTask", err)
	}
	return remote.Result{Success: true}
}

// UpdateTask rewrites the row of task id with one field changed.
func (c *Client) UpdateTask(ctx context.Context, id int64, field, value string) remote.Result {
	if !c.Configured() {
		return remote.NotConfigured()
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	rowNum, err := c.findRow(ctx, id)
	if err != nil {
		return c.fail("updateTask", err)
	}
	if rowNum == 0 {
		return c.fail("updateTask", errors.New("task not found"))
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rowRange(rowNum)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return c.fail("updateTask", err)
	}
	if len(resp.Values) == 0 {
		return c.fail("updateTask", errors.New("task not found"))
	}
	t, err := fromRow(resp.Values[0])
	if err != nil {
		return c.fail("updateTask", err)
	}
	if err := t.Apply(field, value); err != nil {
		return c.fail("updateTask", err)
	}
	t.UpdatedAt = c.now()

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rowRange(rowNum), &sheets.ValueRange{Values: [][]any{toRow(t)}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return c.fail("updateTask", err)
	}
	return remote.Result{Success: true}
}

// DeleteTask removes the row of task id. A missing task is not an error.
func (c *Client) DeleteTask(ctx context.Context, id int64) remote.Result {
	if !c.Configured() {
		return remote.NotConfigured()
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	rowNum, err := c.findRow(ctx, id)
	if err != nil {
		return c.fail("deleteTask", err)
	}
	if rowNum == 0 {
		return remote.Result{Success: true}
	}

	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return c.fail("deleteTask", err)
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowNum - 1),
					EndIndex:   int64(rowNum),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return c.fail("deleteTask", err)
	}
	return remote.Result{Success: true}
}

// SyncAll rewrites the header and replaces every data row with tasks.
func (c *Client) SyncAll(ctx context.Context, tasks []task.Task) remote.Result {
	if !c.Configured() {
		return remote.NotConfigured()
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	header := make([]any, len(Columns))
	for i, col := range Columns {
		header[i] = col
	}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rowRange(1), &sheets.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return c.fail("syncAll", err)
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.rangeFrom(2), &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return c.fail("syncAll", err)
	}

	if len(tasks) > 0 {
		rows := make([][]any, len(tasks))
		for i, t := range tasks {
			rows[i] = toRow(t)
		}
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.sheet+"!A2", &sheets.ValueRange{Values: rows}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return c.fail("syncAll", err)
		}
	}
	return remote.Result{Success: true, Count: len(tasks)}
}

// findRow returns the 1-based sheet row holding id, or 0 if there is none.
func (c *Client) findRow(ctx context.Context, id int64) (int, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.sheet+"!A2:A").
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return 0, err
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		t, err := task.FromFields(map[string]any{"id": row[0]})
		if err == nil && t.ID == id {
			return i + 2, nil
		}
	}
	return 0, nil
}

// sheetID resolves the numeric ID of the task tab.
func (c *Client) sheetID(ctx context.Context) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return 0, err
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheet {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet not found: %s", c.sheet)
}

func (c *Client) rangeFrom(row int) string {
	return fmt.Sprintf("%s!A%d:%s", c.sheet, row, lastColumn)
}

func (c *Client) rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.sheet, row, lastColumn, row)
}

func (c *Client) fail(action string, err error) remote.Result {
	msg := wrapError(err).Error()
	c.log.Warn("sheets call failed", "action", action, "error", msg)
	return remote.Failure(msg)
}

func toRow(t task.Task) []any {
	return []any{
		strconv.FormatInt(t.ID, 10),
		t.Text,
		t.Completed,
		string(t.Priority),
		t.Category,
		t.DueDate,
		t.Note,
		t.Order,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	}
}

func fromRow(row []any) (task.Task, error) {
	fields := make(map[string]any, len(Columns))
	for i, col := range Columns {
		if i < len(row) {
			fields[col] = row[i]
		}
	}
	return task.FromFields(fields)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or revoked (run: tasksheet login)")
		case http.StatusNotFound:
			return fmt.Errorf("spreadsheet not found")
		}
	}

	return err
}
