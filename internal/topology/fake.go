package topology

import (
	"context"
	"fmt"

	"github.com/miradorstack/mirador-rca/internal/infererr"
	"github.com/miradorstack/mirador-rca/internal/models"
)

// snapshot is one timestamped topology graph held by Fake.
type snapshot struct {
	ts    float64
	nodes map[string]models.TopoNode // keyed by EntityID
	edges []models.TopoEdge
}

// Fake is an in-memory Client used by tests and local development; it
// never touches a real graph database.
type Fake struct {
	snapshots []snapshot
}

// NewFake constructs an empty Fake.
func NewFake() *Fake {
	return &Fake{}
}

// PutSnapshot installs a full snapshot at ts, replacing any existing
// snapshot at that exact timestamp.
func (f *Fake) PutSnapshot(ts float64, nodes []models.TopoNode, edges []models.TopoEdge) {
	nodeMap := make(map[string]models.TopoNode, len(nodes))
	for _, n := range nodes {
		nodeMap[n.EntityID] = n
	}
	for i, s := range f.snapshots {
		if s.ts == ts {
			f.snapshots[i] = snapshot{ts: ts, nodes: nodeMap, edges: edges}
			return
		}
	}
	f.snapshots = append(f.snapshots, snapshot{ts: ts, nodes: nodeMap, edges: edges})
}

func (f *Fake) RecentTS(ctx context.Context, tSec float64, toleratedBias float64) (float64, error) {
	best, found := 0.0, false
	for _, s := range f.snapshots {
		if s.ts <= tSec && (!found || s.ts > best) {
			best, found = s.ts, true
		}
	}
	if !found {
		return 0, infererr.New(infererr.DB, "topology.RecentTS", "no topology snapshot exists", nil)
	}
	if tSec-best > toleratedBias {
		return 0, infererr.New(infererr.DB, "topology.RecentTS",
			fmt.Sprintf("nearest snapshot %v exceeds tolerated bias from %v", best, tSec), nil)
	}
	return best, nil
}

func (f *Fake) EntityByID(ctx context.Context, entityID string, ts float64) (models.TopoNode, error) {
	s, ok := f.snapshotAt(ts)
	if !ok {
		return models.TopoNode{}, infererr.New(infererr.DB, "topology.EntityByID", "no snapshot at ts", nil)
	}
	node, ok := s.nodes[entityID]
	if !ok {
		return models.TopoNode{}, infererr.New(infererr.DB, "topology.EntityByID",
			fmt.Sprintf("no match for entity %q", entityID), nil)
	}
	return node, nil
}

func (f *Fake) HostTopo(ctx context.Context, machineID string, ts float64, depth int) (*models.HostTopo, error) {
	s, ok := f.snapshotAt(ts)
	if !ok {
		return nil, infererr.New(infererr.DB, "topology.HostTopo", "no snapshot at ts", nil)
	}

	var host *models.TopoNode
	for eid, n := range s.nodes {
		if n.EntityType == models.EntityHost && n.MachineID == machineID {
			node := s.nodes[eid]
			host = &node
			break
		}
	}
	if host == nil {
		return nil, infererr.New(infererr.DB, "topology.HostTopo",
			fmt.Sprintf("no host entity for machine_id %q", machineID), nil)
	}

	byID := map[string]*models.TopoNode{}
	for eid, n := range s.nodes {
		if n.MachineID == machineID {
			node := n
			byID[eid] = &node
			_ = eid
		}
	}
	adjacency := map[string][]models.TopoEdge{}
	for _, e := range s.edges {
		if e.Type != models.RelationBelongsTo && e.Type != models.RelationRunsOn {
			continue
		}
		adjacency[e.FromID] = append(adjacency[e.FromID], e)
		adjacency[e.ToID] = append(adjacency[e.ToID], e)
	}

	nodes := map[string]*models.TopoNode{host.ID: host}
	edges := map[string]*models.TopoEdge{}
	type frontierItem struct {
		id   string
		path map[string]bool
	}
	frontier := []frontierItem{{id: host.ID, path: map[string]bool{host.ID: true}}}
	for i := 0; i < depth && len(frontier) > 0; i++ {
		var next []frontierItem
		for _, item := range frontier {
			for _, e := range adjacency[item.id] {
				other := e.ToID
				if other == item.id {
					other = e.FromID
				}
				n, ok := byID[other]
				if !ok || item.path[other] {
					continue
				}
				edge := e
				nodes[n.ID] = n
				edges[edge.ID] = &edge
				newPath := make(map[string]bool, len(item.path)+1)
				for k := range item.path {
					newPath[k] = true
				}
				newPath[other] = true
				next = append(next, frontierItem{id: other, path: newPath})
			}
		}
		frontier = next
	}
	return models.NewHostTopo(machineID, nodes, edges), nil
}

func (f *Fake) CrossHostEdges(ctx context.Context, edgeType models.RelationType, ts float64) ([]models.TopoEdge, error) {
	s, ok := f.snapshotAt(ts)
	if !ok {
		return nil, nil
	}
	var out []models.TopoEdge
	for _, e := range s.edges {
		if e.Type != edgeType {
			continue
		}
		from, fok := findByID(s, e.FromID)
		to, tok := findByID(s, e.ToID)
		if fok && tok && from.MachineID != to.MachineID {
			edge := e
			edge.FromNode = &from
			edge.ToNode = &to
			out = append(out, edge)
		}
	}
	return out, nil
}

func (f *Fake) snapshotAt(ts float64) (snapshot, bool) {
	for _, s := range f.snapshots {
		if s.ts == ts {
			return s, true
		}
	}
	return snapshot{}, false
}

func findByID(s snapshot, id string) (models.TopoNode, bool) {
	for _, n := range s.nodes {
		if n.EntityID == id {
			return n, true
		}
	}
	return models.TopoNode{}, false
}
