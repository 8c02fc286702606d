package models

// EntityType names a topology node kind.
type EntityType string

const (
	EntityHost    EntityType = "host"
	EntityProcess EntityType = "process"
	EntityTCPLink EntityType = "tcp_link"
	EntitySLI     EntityType = "sli"
	EntityDisk    EntityType = "disk"
	EntityBlock   EntityType = "block"
	EntityCPU     EntityType = "cpu"
	EntityNetcard EntityType = "netcard"
)

// RelationType names a topology edge kind.
type RelationType string

const (
	RelationBelongsTo RelationType = "belongs_to"
	RelationRunsOn    RelationType = "runs_on"
	RelationIsPeer    RelationType = "is_peer"
	RelationIsClient  RelationType = "is_client"
	RelationIsServer  RelationType = "is_server"
	RelationStoreIn   RelationType = "store_in"
	RelationConnect   RelationType = "connect"
)

// TopoNode is a typed observation entity from a topology snapshot.
type TopoNode struct {
	ID         string // graph-db unique id
	EntityID   string // snapshot-scoped key
	EntityType EntityType
	MachineID  string
	Timestamp  int64
	RawData    map[string]string
}

// TopoEdge connects two topology nodes. FromNode/ToNode are resolved
// only for the query that produced the edge; they are weak references
// and must not be retained beyond that query's result.
type TopoEdge struct {
	ID       string
	Type     RelationType
	FromID   string
	ToID     string
	FromNode *TopoNode
	ToNode   *TopoNode
}

// HostTopo is the subgraph rooted at one host's entity.
type HostTopo struct {
	MachineID string
	Nodes     map[string]*TopoNode // keyed by TopoNode.ID
	Edges     map[string]*TopoEdge // keyed by TopoEdge.ID
}

// NewHostTopo builds a HostTopo, resolving every edge's endpoint
// pointers against the supplied node map. Edges whose endpoints are
// absent from nodes are kept with nil node pointers.
func NewHostTopo(machineID string, nodes map[string]*TopoNode, edges map[string]*TopoEdge) *HostTopo {
	for _, edge := range edges {
		edge.FromNode = nodes[edge.FromID]
		edge.ToNode = nodes[edge.ToID]
	}
	return &HostTopo{MachineID: machineID, Nodes: nodes, Edges: edges}
}

// NodesByType returns every node of the given entity type, in map
// iteration order (callers that need determinism should sort by ID).
func (h *HostTopo) NodesByType(t EntityType) []*TopoNode {
	var out []*TopoNode
	for _, n := range h.Nodes {
		if n.EntityType == t {
			out = append(out, n)
		}
	}
	return out
}
