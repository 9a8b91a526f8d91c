package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"tasksheet/internal/remote"
	"tasksheet/internal/task"
)

// fakeSheet serves the subset of the Sheets REST API the client uses,
// over a single tab held as a slice of rows (row 1 is the header).
type fakeSheet struct {
	mu     sync.Mutex
	rows   [][]any
	status int
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		w.Write([]byte(`{"error":{"code":` + strconv.Itoa(f.status) + `,"message":"denied"}}`))
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	id, rng, isValues := strings.Cut(path, "/values/")

	switch {
	case !isValues && strings.HasSuffix(id, ":batchUpdate"):
		var req struct {
			Requests []struct {
				DeleteDimension struct {
					Range struct {
						StartIndex int `json:"startIndex"`
						EndIndex   int `json:"endIndex"`
					} `json:"range"`
				} `json:"deleteDimension"`
			} `json:"requests"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			d := rq.DeleteDimension.Range
			f.rows = append(f.rows[:d.StartIndex], f.rows[d.EndIndex:]...)
		}
		writeJSON(w, map[string]any{})

	case !isValues:
		writeJSON(w, map[string]any{
			"sheets": []any{map[string]any{"properties": map[string]any{"sheetId": 7, "title": "Tasks"}}},
		})

	case strings.HasSuffix(rng, ":append"):
		var vr struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&vr)
		f.ensureHeader()
		f.rows = append(f.rows, vr.Values...)
		writeJSON(w, map[string]any{})

	case strings.HasSuffix(rng, ":clear"):
		start := startRow(strings.TrimSuffix(rng, ":clear"))
		if start-1 < len(f.rows) {
			f.rows = f.rows[:start-1]
		}
		writeJSON(w, map[string]any{})

	case r.Method == http.MethodPut:
		var vr struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&vr)
		start := startRow(rng)
		for i, row := range vr.Values {
			idx := start - 1 + i
			for len(f.rows) <= idx {
				f.rows = append(f.rows, []any{})
			}
			f.rows[idx] = row
		}
		writeJSON(w, map[string]any{})

	default:
		start, end := rowBounds(rng)
		var values [][]any
		if start-1 < len(f.rows) {
			values = f.rows[start-1:]
		}
		if end > 0 && len(values) > end-start+1 {
			values = values[:end-start+1]
		}
		writeJSON(w, map[string]any{"range": rng, "values": values})
	}
}

func (f *fakeSheet) ensureHeader() {
	if len(f.rows) == 0 {
		header := make([]any, len(Columns))
		for i, c := range Columns {
			header[i] = c
		}
		f.rows = append(f.rows, header)
	}
}

func (f *fakeSheet) dataRows() [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rows) < 2 {
		return nil
	}
	return f.rows[1:]
}

// startRow extracts the first row number from a range like "Tasks!A12:J12".
func startRow(rng string) int {
	start, _ := rowBounds(rng)
	return start
}

// rowBounds returns the first and last row of a range. The last row is 0
// for open-ended ranges like "Tasks!A2:J".
func rowBounds(rng string) (int, int) {
	_, cells, _ := strings.Cut(rng, "!")
	from, to, _ := strings.Cut(cells, ":")
	start := rowNumber(from)
	if start == 0 {
		start = 1
	}
	return start, rowNumber(to)
}

func rowNumber(cell string) int {
	n, err := strconv.Atoi(strings.TrimLeft(cell, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, spreadsheetID string) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{}
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	c, err := NewWithHTTPClient(context.Background(), ts.Client(), spreadsheetID, "", nil, option.WithEndpoint(ts.URL+"/"))
	require.NoError(t, err)
	return c, fake
}

func TestClient_NotConfigured(t *testing.T) {
	c, fake := newTestClient(t, "")
	assert.False(t, c.Configured())

	res := c.GetTasks(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, remote.ErrNotConfigured, res.Error)
	assert.Empty(t, fake.dataRows())
}

func TestClient_RoundTrip(t *testing.T) {
	c, fake := newTestClient(t, "sheet123")
	ctx := context.Background()

	require.True(t, c.AddTask(ctx, task.Task{ID: 1, Text: "first", Priority: task.High}).Success)
	require.True(t, c.AddTask(ctx, task.Task{ID: 2, Text: "second", DueDate: "2024-06-01"}).Success)
	assert.Len(t, fake.dataRows(), 2)

	res := c.UpdateTask(ctx, 2, task.FieldCompleted, "true")
	require.True(t, res.Success, res.Error)

	res = c.GetTasks(ctx)
	require.True(t, res.Success, res.Error)
	require.Len(t, res.Tasks, 2)
	assert.Equal(t, "first", res.Tasks[0].Text)
	assert.Equal(t, task.High, res.Tasks[0].Priority)
	assert.Equal(t, task.DefaultCategory, res.Tasks[1].Category)
	assert.Equal(t, "2024-06-01", res.Tasks[1].DueDate)
	assert.True(t, res.Tasks[1].Completed)

	res = c.DeleteTask(ctx, 1)
	require.True(t, res.Success, res.Error)
	rows := fake.dataRows()
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0][0])

	// Deleting again is a no-op.
	assert.True(t, c.DeleteTask(ctx, 1).Success)
}

func TestClient_UpdateMissingTaskFails(t *testing.T) {
	c, _ := newTestClient(t, "sheet123")

	res := c.UpdateTask(context.Background(), 99, task.FieldText, "x")
	assert.False(t, res.Success)
	assert.Equal(t, "task not found", res.Error)
}

func TestClient_SyncAllReplacesRows(t *testing.T) {
	c, fake := newTestClient(t, "sheet123")
	ctx := context.Background()

	require.True(t, c.AddTask(ctx, task.Task{ID: 9, Text: "old"}).Success)

	res := c.SyncAll(ctx, []task.Task{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}, {ID: 3, Text: "c"}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3, res.Count)

	rows := fake.dataRows()
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[0][1])
	assert.Equal(t, "c", rows[2][1])
}

func TestClient_AuthErrorMessage(t *testing.T) {
	c, fake := newTestClient(t, "sheet123")
	fake.status = http.StatusUnauthorized

	res := c.GetTasks(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "tasksheet login")
}
