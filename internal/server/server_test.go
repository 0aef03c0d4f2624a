package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalake-labs/mdlh/internal/lineage"
	"github.com/metalake-labs/mdlh/internal/state"
	"github.com/metalake-labs/mdlh/internal/testutil"
	"github.com/metalake-labs/mdlh/internal/views"
	"github.com/metalake-labs/mdlh/pkg/meta"
)

func newTestServer(t *testing.T, seed bool) *httptest.Server {
	t.Helper()

	store := state.NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })

	if seed {
		snap, err := store.CreateSnapshot()
		require.NoError(t, err)
		require.NoError(t, store.InsertAssets(snap.ID, []meta.Asset{
			{GUID: "a", Name: "customers", TypeName: "Table",
				TagNames: []string{"pii"}, HasLineage: true},
			{GUID: "b", Name: "orders", TypeName: "Table", HasLineage: true},
			{GUID: "c", Name: "revenue_v", TypeName: "View", HasLineage: true},
		}))
		require.NoError(t, store.InsertEdges(snap.ID, []meta.Edge{
			{ProcessGUID: "p1", InputGUID: "a", OutputGUID: "b",
				InputName: "customers", InputType: "Table", OutputName: "orders", OutputType: "Table"},
			{ProcessGUID: "p2", InputGUID: "b", OutputGUID: "c",
				InputName: "orders", InputType: "Table", OutputName: "revenue_v", OutputType: "View"},
		}))
		require.NoError(t, store.PromoteSnapshot(snap.ID))
	}

	logger := testutil.NewTestLogger(t)
	srv := NewServer(Config{
		Store:    store,
		Lineage:  lineage.NewService(store, logger),
		Views:    views.NewService(store, logger),
		MaxDepth: 10,
		Logger:   logger,
	})

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, false)

	var body map[string]string
	status := getJSON(t, ts.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestListAssets(t *testing.T) {
	ts := newTestServer(t, true)

	var body struct {
		SnapshotID string       `json:"snapshot_id"`
		Assets     []meta.Asset `json:"assets"`
	}
	status := getJSON(t, ts.URL+"/api/assets", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body.SnapshotID)
	assert.Len(t, body.Assets, 3)
}

func TestListAssets_TypeFilter(t *testing.T) {
	ts := newTestServer(t, true)

	var body struct {
		Assets []meta.Asset `json:"assets"`
	}
	status := getJSON(t, ts.URL+"/api/assets?type=View", &body)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, body.Assets, 1)
	assert.Equal(t, "c", body.Assets[0].GUID)
}

func TestListAssets_NoSnapshot(t *testing.T) {
	ts := newTestServer(t, false)

	status := getJSON(t, ts.URL+"/api/assets", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestGetAsset(t *testing.T) {
	ts := newTestServer(t, true)

	var asset meta.Asset
	status := getJSON(t, ts.URL+"/api/assets/a", &asset)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "customers", asset.Name)

	status = getJSON(t, ts.URL+"/api/assets/ghost", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLineage_Upstream(t *testing.T) {
	ts := newTestServer(t, true)

	var body struct {
		StartGUID string            `json:"start_guid"`
		Hops      []meta.LineageHop `json:"hops"`
	}
	status := getJSON(t, ts.URL+"/api/lineage/c?direction=upstream", &body)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, body.Hops, 2)
	assert.Equal(t, "b", body.Hops[0].RelatedGUID)
	assert.Equal(t, 1, body.Hops[0].Level)
	assert.Equal(t, "a", body.Hops[1].RelatedGUID)
	assert.Equal(t, 2, body.Hops[1].Level)
}

func TestLineage_BothDirections(t *testing.T) {
	ts := newTestServer(t, true)

	var body struct {
		Hops []meta.LineageHop `json:"hops"`
	}
	status := getJSON(t, ts.URL+"/api/lineage/b", &body)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, body.Hops, 2)
	assert.Equal(t, meta.DirectionUpstream, body.Hops[0].Direction)
	assert.Equal(t, meta.DirectionDownstream, body.Hops[1].Direction)
}

func TestLineage_DepthClampedToCap(t *testing.T) {
	ts := newTestServer(t, true)

	var body struct {
		MaxDepth int `json:"max_depth"`
	}
	status := getJSON(t, ts.URL+"/api/lineage/a?depth=99", &body)
	assert.Equal(t, http.StatusOK, status)
	// configured cap is 10; the requested 99 must not raise it
	assert.Equal(t, 10, body.MaxDepth)
}

func TestLineage_StartAbsent(t *testing.T) {
	ts := newTestServer(t, true)

	var body struct {
		Hops []meta.LineageHop `json:"hops"`
	}
	status := getJSON(t, ts.URL+"/api/lineage/ghost?direction=downstream", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body.Hops)
}

func TestLineage_BadDirection(t *testing.T) {
	ts := newTestServer(t, true)

	status := getJSON(t, ts.URL+"/api/lineage/a?direction=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestViews(t *testing.T) {
	ts := newTestServer(t, true)

	var list struct {
		Views []string `json:"views"`
	}
	status := getJSON(t, ts.URL+"/api/views", &list)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, list.Views, "TAGS")

	var result views.Result
	status = getJSON(t, ts.URL+"/api/views/TAGS", &result)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, result.Rows, 1)

	status = getJSON(t, ts.URL+"/api/views/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSnapshots(t *testing.T) {
	ts := newTestServer(t, true)

	var current meta.Snapshot
	status := getJSON(t, ts.URL+"/api/snapshots/current", &current)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, meta.SnapshotStatusCurrent, current.Status)
	assert.Equal(t, int64(3), current.AssetCount)

	var list struct {
		Snapshots []meta.Snapshot `json:"snapshots"`
	}
	status = getJSON(t, ts.URL+"/api/snapshots", &list)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, list.Snapshots, 1)
}

func TestSnapshots_NoneYet(t *testing.T) {
	ts := newTestServer(t, false)

	status := getJSON(t, ts.URL+"/api/snapshots/current", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRefresh_NotConfigured(t *testing.T) {
	ts := newTestServer(t, true)

	resp, err := http.Post(ts.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}
