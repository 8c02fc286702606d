// Package topology implements the topology snapshot client:
// recent-snapshot lookup, single-entity lookup, bounded-hop host
// subgraph traversal, and cross-host edge queries against a
// timestamped topology graph.
package topology

import (
	"context"

	"github.com/miradorstack/mirador-rca/internal/models"
)

// Client is the narrow interface the inference loop depends on. The
// only concrete adapter is FalkorClient; tests use the in-memory fake
// in fake.go.
type Client interface {
	// RecentTS returns the largest snapshot timestamp <= tSec. Returns
	// an infererr.DB error if no snapshot exists, or if tSec minus the
	// found timestamp exceeds toleratedBias.
	RecentTS(ctx context.Context, tSec float64, toleratedBias float64) (float64, error)

	// EntityByID returns the unique node for entityID at snapshot ts.
	// Returns an infererr.DB error if zero or more than one node match.
	EntityByID(ctx context.Context, entityID string, ts float64) (models.TopoNode, error)

	// HostTopo returns the subgraph reachable from machineID's host
	// entity by following belongs_to/runs_on edges outward up to depth
	// hops, restricted to nodes sharing machineID.
	HostTopo(ctx context.Context, machineID string, ts float64, depth int) (*models.HostTopo, error)

	// CrossHostEdges returns every edge of edgeType at snapshot ts whose
	// endpoints carry different machine_ids. A missing edge collection
	// at that snapshot is an empty result, not an error.
	CrossHostEdges(ctx context.Context, edgeType models.RelationType, ts float64) ([]models.TopoEdge, error)
}
