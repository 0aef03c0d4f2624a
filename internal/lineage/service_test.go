package lineage

import (
	"errors"
	"testing"

	"github.com/metalake-labs/mdlh/internal/state"
	"github.com/metalake-labs/mdlh/internal/testutil"
	"github.com/metalake-labs/mdlh/pkg/meta"
)

// seedSnapshot promotes a snapshot holding the chain a -> b -> c.
func seedSnapshot(t *testing.T, store *state.SQLiteStore) string {
	t.Helper()

	snap, err := store.CreateSnapshot()
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	assets := []meta.Asset{
		{GUID: "a", Name: "customers", TypeName: "Table", HasLineage: true},
		{GUID: "b", Name: "orders", TypeName: "Table", HasLineage: true},
		{GUID: "c", Name: "revenue_v", TypeName: "View", HasLineage: true},
		{GUID: "isolated", Name: "scratch", TypeName: "Table"},
	}
	if err := store.InsertAssets(snap.ID, assets); err != nil {
		t.Fatalf("InsertAssets: %v", err)
	}

	edges := []meta.Edge{
		{ProcessGUID: "p1", InputGUID: "a", OutputGUID: "b",
			InputName: "customers", InputType: "Table", OutputName: "orders", OutputType: "Table"},
		{ProcessGUID: "p2", InputGUID: "b", OutputGUID: "c",
			InputName: "orders", InputType: "Table", OutputName: "revenue_v", OutputType: "View"},
	}
	if err := store.InsertEdges(snap.ID, edges); err != nil {
		t.Fatalf("InsertEdges: %v", err)
	}

	if err := store.PromoteSnapshot(snap.ID); err != nil {
		t.Fatalf("PromoteSnapshot: %v", err)
	}
	return snap.ID
}

func newTestService(t *testing.T) (*Service, *state.SQLiteStore) {
	t.Helper()

	store := state.NewSQLiteStore()
	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return NewService(store, testutil.NewTestLogger(t)), store
}

func TestService_UpstreamChain(t *testing.T) {
	svc, store := newTestService(t)
	seedSnapshot(t, store)

	hops, err := svc.Lineage("c", meta.DirectionUpstream, 10)
	if err != nil {
		t.Fatalf("Lineage: %v", err)
	}
	if len(hops) != 2 {
		t.Fatalf("expected 2 hops, got %d: %+v", len(hops), hops)
	}
	if hops[0].RelatedGUID != "b" || hops[0].Level != 1 {
		t.Errorf("expected b at level 1, got %+v", hops[0])
	}
	if hops[1].RelatedGUID != "a" || hops[1].Level != 2 {
		t.Errorf("expected a at level 2, got %+v", hops[1])
	}
	if hops[1].RelatedName != "customers" || hops[1].RelatedType != "Table" {
		t.Errorf("expected denormalized name/type, got %+v", hops[1])
	}
}

func TestService_DepthBound(t *testing.T) {
	svc, store := newTestService(t)
	seedSnapshot(t, store)

	hops, err := svc.Lineage("a", meta.DirectionDownstream, 1)
	if err != nil {
		t.Fatalf("Lineage: %v", err)
	}
	if len(hops) != 1 || hops[0].RelatedGUID != "b" {
		t.Errorf("expected only b at depth 1, got %+v", hops)
	}
}

func TestService_StartAbsentReturnsEmpty(t *testing.T) {
	svc, store := newTestService(t)
	seedSnapshot(t, store)

	hops, err := svc.Lineage("ghost", meta.DirectionUpstream, 5)
	if err != nil {
		t.Fatalf("absent start must not be an error, got: %v", err)
	}
	if len(hops) != 0 {
		t.Errorf("expected empty result, got %+v", hops)
	}
}

func TestService_IsolatedAssetReturnsEmpty(t *testing.T) {
	svc, store := newTestService(t)
	seedSnapshot(t, store)

	hops, err := svc.Lineage("isolated", meta.DirectionDownstream, 5)
	if err != nil {
		t.Fatalf("Lineage: %v", err)
	}
	if len(hops) != 0 {
		t.Errorf("expected no hops for isolated asset, got %+v", hops)
	}
}

func TestService_InvalidDirection(t *testing.T) {
	svc, store := newTestService(t)
	seedSnapshot(t, store)

	if _, err := svc.Lineage("a", meta.Direction("sideways"), 5); err == nil {
		t.Error("expected error for invalid direction")
	}
}

func TestService_NoSnapshot(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Lineage("a", meta.DirectionUpstream, 5)
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestService_Full(t *testing.T) {
	svc, store := newTestService(t)
	seedSnapshot(t, store)

	hops, err := svc.Full("b", 10)
	if err != nil {
		t.Fatalf("Full: %v", err)
	}
	// one upstream hop (a), one downstream hop (c)
	if len(hops) != 2 {
		t.Fatalf("expected 2 hops, got %+v", hops)
	}
	if hops[0].Direction != meta.DirectionUpstream || hops[0].RelatedGUID != "a" {
		t.Errorf("expected upstream a first, got %+v", hops[0])
	}
	if hops[1].Direction != meta.DirectionDownstream || hops[1].RelatedGUID != "c" {
		t.Errorf("expected downstream c second, got %+v", hops[1])
	}
}

func TestService_CacheTurnsOverOnNewSnapshot(t *testing.T) {
	svc, store := newTestService(t)
	seedSnapshot(t, store)

	if _, err := svc.Lineage("a", meta.DirectionDownstream, 5); err != nil {
		t.Fatalf("Lineage: %v", err)
	}

	// New snapshot with the b -> c edge removed
	snap, _ := store.CreateSnapshot()
	if err := store.InsertAssets(snap.ID, []meta.Asset{
		{GUID: "a", Name: "customers", TypeName: "Table", HasLineage: true},
		{GUID: "b", Name: "orders", TypeName: "Table", HasLineage: true},
	}); err != nil {
		t.Fatalf("InsertAssets: %v", err)
	}
	if err := store.InsertEdges(snap.ID, []meta.Edge{
		{ProcessGUID: "p1", InputGUID: "a", OutputGUID: "b",
			InputName: "customers", InputType: "Table", OutputName: "orders", OutputType: "Table"},
	}); err != nil {
		t.Fatalf("InsertEdges: %v", err)
	}
	if err := store.PromoteSnapshot(snap.ID); err != nil {
		t.Fatalf("PromoteSnapshot: %v", err)
	}

	hops, err := svc.Lineage("a", meta.DirectionDownstream, 5)
	if err != nil {
		t.Fatalf("Lineage: %v", err)
	}
	if len(hops) != 1 || hops[0].RelatedGUID != "b" {
		t.Errorf("expected rebuilt graph with only a->b, got %+v", hops)
	}
}
