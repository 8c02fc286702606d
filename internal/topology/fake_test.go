package topology

import (
	"context"
	"testing"

	"github.com/miradorstack/mirador-rca/internal/models"
)

func fixtureNodes() []models.TopoNode {
	return []models.TopoNode{
		{ID: "host1", EntityID: "host1", EntityType: models.EntityHost, MachineID: "m1"},
		{ID: "proc1", EntityID: "proc1", EntityType: models.EntityProcess, MachineID: "m1"},
		{ID: "cpu1", EntityID: "cpu1", EntityType: models.EntityCPU, MachineID: "m1"},
		{ID: "host2", EntityID: "host2", EntityType: models.EntityHost, MachineID: "m2"},
		{ID: "proc2", EntityID: "proc2", EntityType: models.EntityProcess, MachineID: "m2"},
	}
}

func fixtureEdges() []models.TopoEdge {
	return []models.TopoEdge{
		{ID: "e1", Type: models.RelationBelongsTo, FromID: "proc1", ToID: "host1"},
		{ID: "e2", Type: models.RelationBelongsTo, FromID: "cpu1", ToID: "proc1"},
		{ID: "e3", Type: models.RelationRunsOn, FromID: "proc1", ToID: "proc2"},
	}
}

func TestFakeRecentTS(t *testing.T) {
	f := NewFake()
	f.PutSnapshot(100, fixtureNodes(), fixtureEdges())
	f.PutSnapshot(200, fixtureNodes(), fixtureEdges())

	ts, err := f.RecentTS(context.Background(), 250, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != 200 {
		t.Fatalf("expected 200, got %v", ts)
	}

	if _, err := f.RecentTS(context.Background(), 250, 10); err == nil {
		t.Fatalf("expected tolerated-bias error")
	}
}

func TestFakeEntityByID(t *testing.T) {
	f := NewFake()
	f.PutSnapshot(100, fixtureNodes(), fixtureEdges())

	node, err := f.EntityByID(context.Background(), "proc1", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.EntityType != models.EntityProcess {
		t.Fatalf("expected process entity, got %v", node.EntityType)
	}

	if _, err := f.EntityByID(context.Background(), "missing", 100); err == nil {
		t.Fatalf("expected error for missing entity")
	}
}

func TestFakeHostTopoDepthLimit(t *testing.T) {
	f := NewFake()
	f.PutSnapshot(100, fixtureNodes(), fixtureEdges())

	topo, err := f.HostTopo(context.Background(), "m1", 100, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := topo.Nodes["cpu1"]; ok {
		t.Fatalf("expected depth=1 to exclude cpu1 (2 hops away)")
	}
	if _, ok := topo.Nodes["proc1"]; !ok {
		t.Fatalf("expected proc1 within depth 1")
	}

	topo2, err := f.HostTopo(context.Background(), "m1", 100, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := topo2.Nodes["cpu1"]; !ok {
		t.Fatalf("expected cpu1 within depth 2")
	}
}

func TestFakeCrossHostEdges(t *testing.T) {
	f := NewFake()
	f.PutSnapshot(100, fixtureNodes(), fixtureEdges())

	edges, err := f.CrossHostEdges(context.Background(), models.RelationRunsOn, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 1 || edges[0].ID != "e3" {
		t.Fatalf("expected cross-host runs_on edge e3, got %+v", edges)
	}

	edges, err = f.CrossHostEdges(context.Background(), models.RelationStoreIn, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 0 {
		t.Fatalf("expected empty slice for missing edge type, got %+v", edges)
	}
}
