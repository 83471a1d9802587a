package app

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/heapdiff/internal/analysis"
	"github.com/five82/heapdiff/internal/census"
	"github.com/five82/heapdiff/internal/config"
	"github.com/five82/heapdiff/internal/prefs"
	"github.com/five82/heapdiff/internal/snapshot"
	"github.com/five82/heapdiff/internal/state"
)

func writeSnapshotFile(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name+snapshot.FileSuffix)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestNewWorker_LocalCreatesSnapshotDir(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := config.Default()
	cfg.SnapshotDir = filepath.Join(t.TempDir(), "nested", "snapshots")

	worker, err := NewWorker(cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &analysis.Local{}, worker)

	info, err := os.Stat(cfg.SnapshotDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewWorker_Remote(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := config.Default()
	cfg.WorkerAddr = "127.0.0.1:9"

	worker, err := NewWorker(cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &analysis.Client{}, worker)
}

func TestEnsureWorkerAvailable(t *testing.T) {
	log, _ := test.NewNullLogger()
	local := analysis.NewLocal(t.TempDir(), log)
	srv := httptest.NewServer(analysis.NewServer(local, log, nil))

	client, err := analysis.NewClient(srv.URL)
	require.NoError(t, err)
	require.NoError(t, ensureWorkerAvailable(context.Background(), client, srv.URL))

	srv.Close()
	err = ensureWorkerAvailable(context.Background(), client, srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker not reachable")
}

func TestWire_SeedsDisplayFromPrefs(t *testing.T) {
	log, _ := test.NewNullLogger()
	local := analysis.NewLocal(t.TempDir(), log)
	p := prefs.Defaults()
	p.Inverted = true

	panel := wire(config.Default(), local, p, log)
	st := panel.store.State()
	assert.Equal(t, state.ViewCensus, st.View)
	assert.True(t, st.Display.Inverted)
	assert.Equal(t, census.DefaultDisplay().Breakdown, st.Display.Breakdown)
}

func TestWire_DiffsTwoSnapshotsEndToEnd(t *testing.T) {
	log, _ := test.NewNullLogger()
	dir := t.TempDir()
	writeSnapshotFile(t, dir, "before", `{"objects":[
		{"coarseType":"objects","class":"Array","count":2,"bytes":64}
	]}`)
	writeSnapshotFile(t, dir, "after", `{"objects":[
		{"coarseType":"objects","class":"Array","count":5,"bytes":160}
	]}`)
	local := analysis.NewLocal(dir, log)
	panel := wire(config.Default(), local, prefs.Defaults(), log)
	ctx := context.Background()

	require.NoError(t, refresh(ctx, panel.store, local, log))
	require.Len(t, panel.store.State().Snapshots, 2)

	panel.coordinator.ToggleDiffing()
	for _, name := range []string{"before", "after"} {
		snap, ok := panel.store.State().Snapshot(name + snapshot.FileSuffix)
		require.True(t, ok, "snapshot %s listed", name)
		panel.coordinator.SelectSnapshotForDiffingAndRefresh(ctx, snap)
	}

	d := panel.store.State().Diffing
	require.NotNil(t, d)
	require.Equal(t, state.DiffReady, d.State, "diff error: %v", d.Err)
	require.NotNil(t, d.Census)
	assert.Equal(t, int64(96), d.Census.Report.TotalBytes)

	count, err := testutil.GatherAndCount(panel.recorder.Registry(), "heapdiff_census_diffs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	panel.params.ToggleInverted(ctx)
	d = panel.store.State().Diffing
	require.Equal(t, state.DiffReady, d.State)
	assert.True(t, d.Census.Display.Inverted)
}
