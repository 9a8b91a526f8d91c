package app

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksheet/internal/config"
	"tasksheet/internal/endpoint"
	"tasksheet/internal/netwatch"
	"tasksheet/internal/store"
	"tasksheet/internal/syncq"
	"tasksheet/internal/tasklist"
	"tasksheet/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv(config.EndpointEnv, "")
	cfg := &config.Config{Dir: t.TempDir(), File: config.DefaultFile()}
	cfg.File.Debounce = time.Hour
	return cfg
}

func TestApp_EditsQueueAndFlushOnClose(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewFakeRemote()
	st := store.NewMemory()

	a, err := New(ctx, testConfig(t), Deps{Store: st, Remote: rc, Network: netwatch.NewStatic(true)})
	require.NoError(t, err)

	added, err := a.Tasks.Add(ctx, "write report", tasklist.AddOptions{})
	require.NoError(t, err)
	_, err = a.Tasks.Toggle(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Sync.PendingCount())
	assert.Empty(t, rc.Calls())

	require.NoError(t, a.Close(ctx))
	assert.Equal(t, []string{"addTask", "updateTask"}, rc.Actions())
	require.Len(t, rc.Tasks(), 1)
	assert.True(t, rc.Tasks()[0].Completed)

	// State survives into the next process.
	b, err := New(ctx, testConfig(t), Deps{Store: st, Remote: rc})
	require.NoError(t, err)
	assert.Len(t, b.Tasks.All(), 1)
	assert.Zero(t, b.Sync.PendingCount())
	assert.False(t, b.Sync.LastSyncAt().IsZero())
}

func TestApp_NoFlushWhenDisabled(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewFakeRemote()
	cfg := testConfig(t)
	cfg.File.FlushOnExit = false

	a, err := New(ctx, cfg, Deps{Store: store.NewMemory(), Remote: rc})
	require.NoError(t, err)
	_, err = a.Tasks.Add(ctx, "later", tasklist.AddOptions{})
	require.NoError(t, err)

	require.NoError(t, a.Close(ctx))
	assert.Empty(t, rc.Calls())
	assert.Equal(t, 1, a.Sync.PendingCount())
}

func TestApp_OfflineSkipsSync(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewFakeRemote()
	cfg := testConfig(t)
	cfg.Offline = true

	a, err := New(ctx, cfg, Deps{Store: store.NewMemory(), Remote: rc})
	require.NoError(t, err)
	_, err = a.Tasks.Add(ctx, "on the train", tasklist.AddOptions{})
	require.NoError(t, err)

	res := a.Sync.SyncNow(ctx)
	assert.Equal(t, syncq.SkipOffline, res.Skipped)
	assert.Empty(t, rc.Calls())
	assert.Equal(t, 1, a.Sync.PendingCount())
}

func TestApp_ScriptEndpointResolution(t *testing.T) {
	ctx := context.Background()
	srv := endpoint.New(nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	cfg := testConfig(t)
	a, err := New(ctx, cfg, Deps{Store: store.NewMemory(), Network: netwatch.NewStatic(true)})
	require.NoError(t, err)

	// No endpoint: edits stay local and nothing is queued.
	assert.False(t, a.Sync.Configured())
	_, err = a.Tasks.Add(ctx, "local only", tasklist.AddOptions{})
	require.NoError(t, err)
	assert.Zero(t, a.Sync.PendingCount())

	got, err := a.SetEndpoint(ctx, ts.URL+"/exec")
	require.NoError(t, err)
	assert.Equal(t, ts.URL+"/exec", got)
	assert.Equal(t, "saved", a.EndpointSource())
	assert.True(t, a.Sync.Configured())

	_, err = a.Tasks.Add(ctx, "synced", tasklist.AddOptions{})
	require.NoError(t, err)
	res := a.Sync.SyncNow(ctx)
	require.True(t, res.Ran())
	assert.Equal(t, 1, res.Applied)
	require.Len(t, srv.Tasks(), 1)
	assert.Equal(t, "synced", srv.Tasks()[0].Text)

	// The config file wins over the saved URL.
	f := cfg.File
	f.Endpoint = "https://script.google.com/macros/s/YOUR_SCRIPT_ID/exec"
	a.ApplyConfig(ctx, f)
	assert.Equal(t, config.ConfigFile, a.EndpointSource())
	assert.False(t, a.Sync.Configured())

	// Clearing the saved URL leaves the config file value in effect.
	got, err = a.SetEndpoint(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, f.Endpoint, got)
}

func TestApp_Settings(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), Deps{Store: store.NewMemory(), Remote: testutil.NewFakeRemote()})
	require.NoError(t, err)

	s, err := a.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)

	require.NoError(t, a.SaveSettings(ctx, Settings{Theme: ThemeDark, ColorScheme: "green"}))
	s, err = a.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, Settings{Theme: ThemeDark, ColorScheme: "green"}, s)

	assert.ErrorIs(t, a.SaveSettings(ctx, Settings{Theme: "sepia"}), ErrInvalidTheme)
}

func TestApp_ExportImport(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewFakeRemote()
	a, err := New(ctx, testConfig(t), Deps{Store: store.NewMemory(), Remote: rc})
	require.NoError(t, err)

	_, err = a.Tasks.Add(ctx, "one", tasklist.AddOptions{})
	require.NoError(t, err)
	_, err = a.Tasks.Add(ctx, "two", tasklist.AddOptions{})
	require.NoError(t, err)
	require.NoError(t, a.SaveSettings(ctx, Settings{Theme: ThemeDark, ColorScheme: "blue"}))

	var buf bytes.Buffer
	n, err := a.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, buf.String(), `"exportedAt"`)

	b, err := New(ctx, testConfig(t), Deps{Store: store.NewMemory(), Remote: rc})
	require.NoError(t, err)
	n, err = b.Import(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, b.Tasks.All(), 2)
	assert.Zero(t, b.Sync.PendingCount())

	s, err := b.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, s.Theme)

	_, err = b.Import(ctx, strings.NewReader(`{"settings":{}}`))
	assert.ErrorIs(t, err, ErrInvalidBackup)
	_, err = b.Import(ctx, strings.NewReader(`not json`))
	assert.ErrorIs(t, err, ErrInvalidBackup)
}

func TestApp_SQLiteStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg, Deps{Remote: testutil.NewFakeRemote()})
	require.NoError(t, err)
	_, err = a.Tasks.Add(ctx, "persisted", tasklist.AddOptions{})
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	b, err := New(ctx, cfg, Deps{Remote: testutil.NewFakeRemote()})
	require.NoError(t, err)
	defer b.Close(ctx)
	require.Len(t, b.Tasks.All(), 1)
	assert.Equal(t, "persisted", b.Tasks.All()[0].Text)
}

// A watch process and a one-shot edit share the database file; a drain in
// the long-running process must keep what the short one queued.
func TestApp_SharedDatabaseKeepsQueuedChanges(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	rc := testutil.NewFakeRemote()
	rc.Fail = func(testutil.Call) string { return "remote down" }
	open := func() *App {
		t.Helper()
		a, err := New(ctx, cfg, Deps{Remote: rc, Network: netwatch.NewStatic(true)})
		require.NoError(t, err)
		return a
	}

	seed := open()
	_, err := seed.Tasks.Add(ctx, "first", tasklist.AddOptions{})
	require.NoError(t, err)
	require.NoError(t, seed.Close(ctx))

	watch := open()
	defer watch.Close(ctx)
	require.Equal(t, 1, watch.Sync.PendingCount())

	edit := open()
	_, err = edit.Tasks.Add(ctx, "second", tasklist.AddOptions{})
	require.NoError(t, err)
	require.NoError(t, edit.Close(ctx))

	res := watch.Sync.SyncNow(ctx)
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, 2, watch.Sync.PendingCount())

	check := open()
	assert.Len(t, check.Tasks.All(), 2)
	assert.Equal(t, 2, check.Sync.PendingCount())
	require.NoError(t, check.Close(ctx))

	rc.Fail = nil
	res = watch.Sync.SyncNow(ctx)
	assert.Equal(t, 2, res.Applied)

	check = open()
	defer check.Close(ctx)
	assert.Zero(t, check.Sync.PendingCount())
	assert.Len(t, rc.Tasks(), 2)
}
